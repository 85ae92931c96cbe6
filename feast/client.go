// Package feast 从 Feast Feature Store 读取用户的在线 embedding。
//
// 用户是否存在仍由数据库决定；Feast 中有值的信号覆盖数据库中的同名信号，
// Feast 不可用时回退到数据库向量（见 EmbeddingOverlay）。
package feast

import (
	"context"
	"time"
)

// Client 是读取在线特征的最小接口，EmbeddingOverlay 只依赖它。
type Client interface {
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)
	Close() error
}

// GetOnlineFeaturesRequest 一次批量读取。
// Features 为特征引用（如 user_embeddings:general），EntityRows 如 [{"user_id": 1001}]。
type GetOnlineFeaturesRequest struct {
	Features   []string
	EntityRows []map[string]interface{}
	Project    string // 为空时使用客户端默认项目
}

// GetOnlineFeaturesResponse 的 FeatureVectors 与请求的 EntityRows 一一对应。
type GetOnlineFeaturesResponse struct {
	FeatureVectors []FeatureVector
}

// FeatureVector 是一个实体的特征值，key 为特征引用；列表类特征为 []float32，缺失的特征不出现。
type FeatureVector struct {
	Values    map[string]interface{}
	EntityRow map[string]interface{}
}

type clientOptions struct {
	timeout     time.Duration
	token       string
	tls         bool
	tlsCertPath string
}

// ClientOption 配置 GrpcClient。
type ClientOption func(*clientOptions)

// WithTimeout 设置单次调用超时，<= 0 表示只受调用方 ctx 约束。
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = timeout }
}

// WithToken 使用静态 token 认证。
func WithToken(token string) ClientOption {
	return func(o *clientOptions) { o.token = token }
}

// WithTLS 启用 TLS；certPath 为空时使用系统根证书。
func WithTLS(certPath string) ClientOption {
	return func(o *clientOptions) {
		o.tls = true
		o.tlsCertPath = certPath
	}
}
