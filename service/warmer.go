package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rushteam/feedcache/core"
)

// 预热中单个用户的处理结果。
const (
	WarmRefreshed = "refreshed"
	WarmSkipped   = "skipped"
	WarmFailed    = "failed"
)

// WarmReport 汇总一次预热。
type WarmReport struct {
	Total     int
	Refreshed int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Warmer 批量刷新全部用户的 Feed 缓存，避免请求路径上的冷启动。
//
// 单个用户刷新失败只记日志，不影响其他用户。
type Warmer struct {
	svc   *FeedCacheService
	users core.UserLister

	// Concurrency 同时刷新的用户数
	Concurrency int
	// OnlyExpired 为 true 时跳过缓存仍然新鲜的用户
	OnlyExpired bool

	limiter *rate.Limiter

	mu   sync.Mutex
	cron *cron.Cron
}

// NewWarmer 创建预热器。perSecond <= 0 表示不限速。
func NewWarmer(svc *FeedCacheService, users core.UserLister, concurrency int, perSecond float64, onlyExpired bool) *Warmer {
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	burst := 0
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = concurrency
	}
	return &Warmer{
		svc:         svc,
		users:       users,
		Concurrency: concurrency,
		OnlyExpired: onlyExpired,
		limiter:     rate.NewLimiter(limit, burst),
	}
}

// WarmAll 遍历全部用户并刷新。只有列举用户失败或 ctx 取消时返回 error。
func (w *Warmer) WarmAll(ctx context.Context) (WarmReport, error) {
	start := time.Now()
	ids, err := w.users.ListUserIDs(ctx)
	if err != nil {
		return WarmReport{}, fmt.Errorf("list users: %w", err)
	}

	var refreshed, skipped, failed atomic.Int64

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(w.Concurrency)
	for _, id := range ids {
		id := id
		eg.Go(func() error {
			if err := w.limiter.Wait(egCtx); err != nil {
				return err
			}
			switch w.warmOne(egCtx, id) {
			case WarmRefreshed:
				refreshed.Add(1)
			case WarmSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	waitErr := eg.Wait()

	report := WarmReport{
		Total:     len(ids),
		Refreshed: int(refreshed.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}
	w.svc.log.Info("feed warmup finished",
		"total", report.Total,
		"refreshed", report.Refreshed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	if waitErr != nil {
		return report, waitErr
	}
	return report, ctx.Err()
}

func (w *Warmer) warmOne(ctx context.Context, userID int64) string {
	outcome := w.refresh(ctx, userID)
	w.svc.metrics.ObserveWarmup(outcome)
	return outcome
}

func (w *Warmer) refresh(ctx context.Context, userID int64) string {
	if w.OnlyExpired {
		entry, err := w.svc.cache.FindByUserID(ctx, userID)
		if err != nil {
			w.svc.log.Warn("warmup: load feed cache failed", "user_id", userID, "error", err)
			return WarmFailed
		}
		if !entry.Expired(w.svc.now(), w.svc.cfg.TTL) {
			return WarmSkipped
		}
	}

	if _, err := w.svc.GenerateAndCacheUserFeed(ctx, userID); err != nil {
		if core.IsUserNotFound(err) {
			// 列举之后被删除的用户
			return WarmSkipped
		}
		w.svc.log.Warn("warmup: refresh failed", "user_id", userID, "error", err)
		return WarmFailed
	}
	return WarmRefreshed
}

// Schedule 按 cron 表达式周期性执行 WarmAll，同一时刻最多一轮在跑。
// 支持标准 5 段表达式与 @every 30m 这类描述符。
func (w *Warmer) Schedule(spec string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return fmt.Errorf("warmer already scheduled")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := w.WarmAll(context.Background()); err != nil {
			w.svc.log.Error("scheduled warmup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("add cron job %q: %w", spec, err)
	}
	c.Start()
	w.cron = c
	return nil
}

// Stop 停止定时任务并等待正在执行的一轮结束。
func (w *Warmer) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
