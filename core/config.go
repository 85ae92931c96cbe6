package core

import (
	"fmt"
	"time"
)

// 默认参数。全仓库只在这里出现一次，其余位置通过 FeedConfig 注入。
const (
	DefaultDimension = 1024
	DefaultTopN      = 500
	DefaultTTL       = time.Hour
)

// Weights 是四路用户信号合成偏好向量（V-actor）时的权重。
// SeeLess 在合成时取负号。
type Weights struct {
	User     float32 `yaml:"user" json:"user"`
	Like     float32 `yaml:"like" json:"like"`
	Bookmark float32 `yaml:"bookmark" json:"bookmark"`
	SeeLess  float32 `yaml:"see_less" json:"see_less"`
}

// DefaultWeights 返回默认权重 W_U=0.3, W_L=0.2, W_B=0.2, W_S=0.3。
func DefaultWeights() Weights {
	return Weights{User: 0.3, Like: 0.2, Bookmark: 0.2, SeeLess: 0.3}
}

// FeedConfig 是 Feed 排序与缓存的全部可调参数。
type FeedConfig struct {
	// Dimension 所有 embedding 的长度
	Dimension int `yaml:"dimension" json:"dimension"`

	// TopN 缓存中保留的物品数量
	TopN int `yaml:"top_n" json:"top_n"`

	// TTL 缓存有效期，UpdatedAt+TTL 早于当前时间即视为过期
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// Weights 偏好向量合成权重
	Weights Weights `yaml:"weights" json:"weights"`

	// ScoreWorkers 打分并发度；<= 1 时在调用方 goroutine 内同步完成
	ScoreWorkers int `yaml:"score_workers" json:"score_workers"`
}

// DefaultFeedConfig 返回默认配置。
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Dimension:    DefaultDimension,
		TopN:         DefaultTopN,
		TTL:          DefaultTTL,
		Weights:      DefaultWeights(),
		ScoreWorkers: 1,
	}
}

// Validate 校验配置。
func (c FeedConfig) Validate() error {
	if c.Dimension <= 0 {
		return NewDomainError(ModuleFeed, ErrorCodeInvalidInput, fmt.Sprintf("feed: dimension must be > 0, got %d", c.Dimension))
	}
	if c.TopN <= 0 {
		return NewDomainError(ModuleFeed, ErrorCodeInvalidInput, fmt.Sprintf("feed: top_n must be > 0, got %d", c.TopN))
	}
	if c.TTL <= 0 {
		return NewDomainError(ModuleFeed, ErrorCodeInvalidInput, fmt.Sprintf("feed: ttl must be > 0, got %s", c.TTL))
	}
	return nil
}
