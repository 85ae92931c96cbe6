package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/feedcache/core"
)

const defaultSweepInterval = 10 * time.Second

// MemoryStore 是进程内的 core.Store，用作 memory 缓存后端与测试替身。
// 过期 key 在读取时即视为不存在，后台定期清扫回收内存；进程退出即丢失。
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memItem
	now   func() time.Time
	sweep time.Duration

	stop      chan struct{}
	closeOnce sync.Once
}

type memItem struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (it memItem) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

// MemoryOption 配置 MemoryStore。
type MemoryOption func(*MemoryStore)

// WithSweepInterval 设置后台清扫间隔，<= 0 关闭后台清扫（只做读时过期）。
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *MemoryStore) { m.sweep = d }
}

// WithMemoryClock 替换时钟，测试用。
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		items: make(map[string]memItem),
		now:   time.Now,
		sweep: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sweep > 0 {
		m.stop = make(chan struct{})
		go m.sweepEvery(m.sweep, m.stop)
	}
	return m
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || it.expired(m.now()) {
		return nil, core.ErrStoreNotFound
	}
	return append([]byte(nil), it.value...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	it := memItem{value: append([]byte(nil), value...)}
	if len(ttl) > 0 && ttl[0] > 0 {
		it.expireAt = m.now().Add(time.Duration(ttl[0]) * time.Second)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Len 返回当前持有的 key 数量（含尚未清扫的过期 key）。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Sweep 立即删除所有过期 key。
func (m *MemoryStore) Sweep() {
	now := m.now()
	m.mu.Lock()
	for k, it := range m.items {
		if it.expired(now) {
			delete(m.items, k)
		}
	}
	m.mu.Unlock()
}

func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		if m.stop != nil {
			close(m.stop)
		}
	})
	return nil
}

func (m *MemoryStore) sweepEvery(d time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-stop:
			return
		}
	}
}

var _ core.Store = (*MemoryStore)(nil)
