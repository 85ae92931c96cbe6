package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/pipeline"
)

// AppConfig 是 feedcache 进程的完整配置。
type AppConfig struct {
	Feed     core.FeedConfig  `yaml:"feed"`
	Server   ServerConfig     `yaml:"server"`
	Database DatabaseConfig   `yaml:"database"`
	Cache    CacheConfig      `yaml:"cache"`
	Feast    FeastConfig      `yaml:"feast"`
	Warmup   WarmupConfig     `yaml:"warmup"`
	Log      LogConfig        `yaml:"log"`
	Pipeline *pipeline.Config `yaml:"pipeline"`

	// PipelineFile 独立的 Pipeline YAML 文件，仅在 pipeline 段为空时生效。
	// 相对路径相对于主配置文件所在目录。
	PipelineFile string `yaml:"pipeline_file"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DatabaseConfig 用户、候选物品与 Feed 缓存所在的关系库。
// Driver 为 memory 时使用进程内仓库（仅用于本地调试）。
type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // postgres / sqlite / memory
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// CacheConfig 选择 Feed 缓存的存放位置。
type CacheConfig struct {
	Backend   string `yaml:"backend"` // database / redis / memory
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type FeastConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Project   string `yaml:"project"`
	EntityKey string `yaml:"entity_key"`
	Token     string `yaml:"token"`

	TLS         bool   `yaml:"tls"`
	TLSCertPath string `yaml:"tls_cert_path"`

	Timeout time.Duration `yaml:"timeout"`

	// 特征引用，形如 user_embeddings:general；留空的信号不从 Feast 读取
	Features struct {
		General    string `yaml:"general"`
		Liked      string `yaml:"liked"`
		Bookmarked string `yaml:"bookmarked"`
		SeeLess    string `yaml:"see_less"`
	} `yaml:"features"`

	Breaker struct {
		MaxRequests      uint32        `yaml:"max_requests"`
		Interval         time.Duration `yaml:"interval"`
		Timeout          time.Duration `yaml:"timeout"`
		FailureThreshold uint32        `yaml:"failure_threshold"`
	} `yaml:"breaker"`
}

// WarmupConfig 定时预热：按 Cron 周期为全部用户刷新过期缓存。
type WarmupConfig struct {
	Cron        string  `yaml:"cron"`
	Concurrency int     `yaml:"concurrency"`
	Rate        float64 `yaml:"rate"` // 每秒刷新的用户数，<= 0 不限速
	OnlyExpired bool    `yaml:"only_expired"`
}

type LogConfig struct {
	Mode string `yaml:"mode"` // dev / prod
}

// Default 返回全部默认值。
func Default() *AppConfig {
	cfg := &AppConfig{
		Feed: core.DefaultFeedConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "feedcache.db", AutoMigrate: true},
		Cache:    CacheConfig{Backend: "database", KeyPrefix: "feedcache"},
		Warmup:   WarmupConfig{Cron: "@every 30m", Concurrency: 4, Rate: 50, OnlyExpired: true},
		Log:      LogConfig{Mode: "dev"},
	}
	cfg.Feast.Port = 6565
	cfg.Feast.EntityKey = "user_id"
	cfg.Feast.Timeout = 2 * time.Second
	cfg.Feast.Breaker.MaxRequests = 1
	cfg.Feast.Breaker.Interval = time.Minute
	cfg.Feast.Breaker.Timeout = 30 * time.Second
	cfg.Feast.Breaker.FailureThreshold = 5
	return cfg
}

// Load 读取 YAML 配置文件；文件中缺失的 key 保留默认值。path 为空时只返回默认值。
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.loadPipelineFile(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *AppConfig) loadPipelineFile(baseDir string) error {
	if c.PipelineFile == "" || (c.Pipeline != nil && len(c.Pipeline.Nodes) > 0) {
		return nil
	}
	path := c.PipelineFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	p, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return fmt.Errorf("load pipeline file %s: %w", path, err)
	}
	c.Pipeline = p
	return nil
}

// Parse 把 YAML 覆盖到 cfg 之上并校验。
func Parse(data []byte, cfg *AppConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate 校验配置组合是否可用。
func (c *AppConfig) Validate() error {
	if err := c.Feed.Validate(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver: unsupported %q (postgres, sqlite, memory)", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "database":
		if c.Database.Driver == "memory" {
			return fmt.Errorf("cache.backend database requires a sql database driver")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("cache.backend: unsupported %q (database, redis, memory)", c.Cache.Backend)
	}
	if c.Feast.Enabled && (c.Feast.Host == "" || c.Feast.Project == "") {
		return fmt.Errorf("feast.host and feast.project are required when feast is enabled")
	}
	if c.Warmup.Concurrency <= 0 {
		return fmt.Errorf("warmup.concurrency must be > 0, got %d", c.Warmup.Concurrency)
	}
	switch c.Log.Mode {
	case "dev", "prod":
	default:
		return fmt.Errorf("log.mode: unsupported %q (dev, prod)", c.Log.Mode)
	}
	if c.Pipeline != nil && len(c.Pipeline.Nodes) > 0 {
		return ValidatePipelineConfig(c.Pipeline)
	}
	return nil
}
