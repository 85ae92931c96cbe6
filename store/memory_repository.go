package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/feedcache/core"
)

// MemoryUserRepository 是内存实现的用户 embedding 仓库，用于测试/开发。
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]core.UserEmbeddings
}

func NewMemoryUserRepository(users ...core.UserEmbeddings) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[int64]core.UserEmbeddings, len(users))}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

// Put 新增或覆盖一个用户。
func (r *MemoryUserRepository) Put(u core.UserEmbeddings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = u
}

func (r *MemoryUserRepository) FindByID(_ context.Context, userID int64) (*core.UserEmbeddings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, core.NewUserNotFound(userID)
	}
	return &u, nil
}

// ListUserIDs 按 ID 升序返回全部用户。
func (r *MemoryUserRepository) ListUserIDs(_ context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// MemoryCandidateRepository 是内存实现的候选池，保持写入顺序。
type MemoryCandidateRepository struct {
	mu         sync.RWMutex
	candidates []core.Candidate
}

func NewMemoryCandidateRepository(candidates ...core.Candidate) *MemoryCandidateRepository {
	return &MemoryCandidateRepository{candidates: append([]core.Candidate(nil), candidates...)}
}

// Add 追加候选。
func (r *MemoryCandidateRepository) Add(c ...core.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, c...)
}

func (r *MemoryCandidateRepository) FindAll(_ context.Context) ([]core.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.Candidate(nil), r.candidates...), nil
}

var (
	_ core.UserRepository      = (*MemoryUserRepository)(nil)
	_ core.UserLister          = (*MemoryUserRepository)(nil)
	_ core.CandidateRepository = (*MemoryCandidateRepository)(nil)
)
