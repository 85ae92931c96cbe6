package feast

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pkg/logger"
)

// FeatureRefs 是四路用户信号在 Feast 中的特征引用，为空表示该信号不从 Feast 读取。
type FeatureRefs struct {
	General    string
	Liked      string
	Bookmarked string
	SeeLess    string
}

// signalRef 把一个特征引用绑定到 UserEmbeddings 的某一路信号上。
type signalRef struct {
	ref string
	dst *core.Vector
}

// bind 按固定顺序返回已配置的 (ref, 信号) 对；多路信号可以共用同一个 ref。
func (r FeatureRefs) bind(u *core.UserEmbeddings) []signalRef {
	out := make([]signalRef, 0, 4)
	for _, b := range []signalRef{
		{r.General, &u.General},
		{r.Liked, &u.Liked},
		{r.Bookmarked, &u.Bookmarked},
		{r.SeeLess, &u.SeeLess},
	} {
		if b.ref != "" {
			out = append(out, b)
		}
	}
	return out
}

// list 返回去重后的特征引用，用于请求 Feast。
func (r FeatureRefs) list() []string {
	out := make([]string, 0, 4)
	seen := make(map[string]bool, 4)
	for _, b := range r.bind(&core.UserEmbeddings{}) {
		if !seen[b.ref] {
			seen[b.ref] = true
			out = append(out, b.ref)
		}
	}
	return out
}

// BreakerSettings 熔断参数。
type BreakerSettings struct {
	// MaxRequests 半开状态允许通过的请求数
	MaxRequests uint32
	// Interval 闭合状态下计数清零周期
	Interval time.Duration
	// Timeout 打开状态持续时间
	Timeout time.Duration
	// FailureThreshold 连续失败多少次后打开
	FailureThreshold uint32
}

// DefaultBreakerSettings 返回默认熔断参数。
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5}
}

// EmbeddingOverlay 在数据库用户仓库之上叠加 Feast 在线 embedding。
//
//   - 用户是否存在由 Base 决定，Base 返回 UserNotFound 时直接返回
//   - Feast 返回非空列表的信号覆盖 Base 中的同名信号
//   - Feast 调用失败或熔断打开时记录告警并返回 Base 的向量
type EmbeddingOverlay struct {
	Base      core.UserRepository
	Client    Client
	Project   string
	EntityKey string
	Refs      FeatureRefs
	Logger    *logger.Logger

	breaker *gobreaker.CircuitBreaker[*GetOnlineFeaturesResponse]
}

// NewEmbeddingOverlay 创建叠加仓库。entityKey 为空时使用 "user_id"。
func NewEmbeddingOverlay(base core.UserRepository, client Client, project, entityKey string, refs FeatureRefs, bs BreakerSettings, log *logger.Logger) *EmbeddingOverlay {
	if entityKey == "" {
		entityKey = "user_id"
	}
	log = logger.OrNop(log)
	threshold := bs.FailureThreshold
	if threshold == 0 {
		threshold = DefaultBreakerSettings().FailureThreshold
	}

	o := &EmbeddingOverlay{
		Base:      base,
		Client:    client,
		Project:   project,
		EntityKey: entityKey,
		Refs:      refs,
		Logger:    log,
	}
	o.breaker = gobreaker.NewCircuitBreaker[*GetOnlineFeaturesResponse](gobreaker.Settings{
		Name:        "feast",
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return o
}

// FindByID 实现 core.UserRepository。
func (o *EmbeddingOverlay) FindByID(ctx context.Context, userID int64) (*core.UserEmbeddings, error) {
	u, err := o.Base.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	refs := o.Refs.list()
	if len(refs) == 0 {
		return u, nil
	}

	resp, err := o.breaker.Execute(func() (*GetOnlineFeaturesResponse, error) {
		return o.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
			Features:   refs,
			EntityRows: []map[string]interface{}{{o.EntityKey: userID}},
			Project:    o.Project,
		})
	})
	if err != nil {
		o.Logger.Warn("feast unavailable, using stored embeddings", "user_id", userID, "error", err)
		return u, nil
	}
	if len(resp.FeatureVectors) == 0 {
		return u, nil
	}

	merged := *u
	values := resp.FeatureVectors[0].Values
	for _, b := range o.Refs.bind(&merged) {
		v, err := toVector(values[b.ref])
		if err != nil {
			o.Logger.Warn("ignore feast feature", "user_id", userID, "feature", b.ref, "error", err)
			continue
		}
		if len(v) > 0 {
			*b.dst = v
		}
	}
	return &merged, nil
}

// ListUserIDs 委托给 Base（若 Base 支持）。
func (o *EmbeddingOverlay) ListUserIDs(ctx context.Context) ([]int64, error) {
	lister, ok := o.Base.(core.UserLister)
	if !ok {
		return nil, core.NewDomainError(core.ModuleUser, core.ErrorCodeNotSupported, "feast: base repository cannot list users")
	}
	return lister.ListUserIDs(ctx)
}

// toVector 把 Feast 返回的列表值转为 core.Vector，缺失返回 nil。
func toVector(v interface{}) (core.Vector, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []float32:
		return core.Vector(val), nil
	case []float64:
		out := make(core.Vector, len(val))
		for i, x := range val {
			out[i] = float32(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected feature type %T", v)
	}
}

var (
	_ core.UserRepository = (*EmbeddingOverlay)(nil)
	_ core.UserLister     = (*EmbeddingOverlay)(nil)
)
