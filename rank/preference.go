package rank

import (
	"context"
	"fmt"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/vector"
)

// PreferenceBuilder 把用户的四路 embedding 合成为偏好向量（V-actor）。
//
//	V = U*W_U + L*W_L + B*W_B - S*W_S
//
// 缺失的信号视为零向量。Build 只读，不产生副作用。
type PreferenceBuilder struct {
	Users  core.UserRepository
	Config core.FeedConfig
}

// NewPreferenceBuilder 创建偏好向量构建器。
func NewPreferenceBuilder(users core.UserRepository, cfg core.FeedConfig) *PreferenceBuilder {
	return &PreferenceBuilder{Users: users, Config: cfg}
}

// Build 读取用户 embedding 并合成偏好向量；用户不存在时返回 IsUserNotFound 为 true 的错误。
func (b *PreferenceBuilder) Build(ctx context.Context, userID int64) (*core.Preference, error) {
	u, err := b.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, core.NewUserNotFound(userID)
	}
	return BuildPreference(u, b.Config)
}

// BuildPreference 是 Build 的纯函数部分。
func BuildPreference(u *core.UserEmbeddings, cfg core.FeedConfig) (*core.Preference, error) {
	dim := cfg.Dimension
	general, err := vector.Resolve(u.General, dim)
	if err != nil {
		return nil, fmt.Errorf("user %d general embedding: %w", u.UserID, err)
	}
	liked, err := vector.Resolve(u.Liked, dim)
	if err != nil {
		return nil, fmt.Errorf("user %d liked embedding: %w", u.UserID, err)
	}
	bookmarked, err := vector.Resolve(u.Bookmarked, dim)
	if err != nil {
		return nil, fmt.Errorf("user %d bookmarked embedding: %w", u.UserID, err)
	}
	seeLess, err := vector.Resolve(u.SeeLess, dim)
	if err != nil {
		return nil, fmt.Errorf("user %d see-less embedding: %w", u.UserID, err)
	}

	return &core.Preference{
		UserID:     u.UserID,
		Actor:      vector.Combine(general, liked, bookmarked, seeLess, cfg.Weights),
		Liked:      liked,
		Bookmarked: bookmarked,
	}, nil
}
