// Package server 通过 HTTP 暴露 Feed 读取与刷新。
//
//	GET  /api/v1/users/:id/feed          读取（缓存过期时刷新）
//	POST /api/v1/users/:id/feed/refresh  强制刷新
//	GET  /healthz
//	GET  /metrics
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rushteam/feedcache/core"
	"github.com/rushteam/feedcache/metrics"
	"github.com/rushteam/feedcache/pkg/logger"
)

// FeedService 是 HTTP 层依赖的 Feed 操作，由 service.FeedCacheService 实现。
type FeedService interface {
	GetUserRecommendedProgramIDs(ctx context.Context, userID int64) ([]int64, error)
	GenerateAndCacheUserFeed(ctx context.Context, userID int64) ([]int64, error)
}

// FeedResponse 是两个 Feed 接口的响应体。
type FeedResponse struct {
	UserID     int64   `json:"user_id"`
	ProgramIDs []int64 `json:"program_ids"`
}

// ErrorResponse 是错误响应体。
type ErrorResponse struct {
	Code    string `json:"code"`
	Module  string `json:"module,omitempty"`
	Message string `json:"message"`
}

type Server struct {
	echo    *echo.Echo
	svc     FeedService
	log     *logger.Logger
	timeout time.Duration
}

// New 创建 HTTP 服务。requestTimeout <= 0 表示不设置单请求超时。
func New(svc FeedService, requestTimeout time.Duration, log *logger.Logger, m *metrics.FeedMetrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	s := &Server{echo: e, svc: svc, log: logger.OrNop(log), timeout: requestTimeout}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				s.log.Warn("request failed", append(kv, "error", v.Error)...)
				return nil
			}
			s.log.Debug("request", kv...)
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api/v1")
	api.GET("/users/:id/feed", s.getFeed)
	api.POST("/users/:id/feed/refresh", s.refreshFeed)

	return s
}

// Handler 返回底层 http.Handler，便于测试与嵌入。
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start 监听 addr，直到 Shutdown 被调用；正常关闭时返回 nil。
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅关闭。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) getFeed(c echo.Context) error {
	return s.serveFeed(c, s.svc.GetUserRecommendedProgramIDs)
}

func (s *Server) refreshFeed(c echo.Context) error {
	return s.serveFeed(c, s.svc.GenerateAndCacheUserFeed)
}

func (s *Server) serveFeed(c echo.Context, op func(context.Context, int64) ([]int64, error)) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return core.NewDomainError(core.ModuleUser, core.ErrorCodeInvalidInput, "invalid user id "+strconv.Quote(c.Param("id")))
	}

	ctx := c.Request().Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ids, err := op(ctx, userID)
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []int64{}
	}
	return c.JSON(http.StatusOK, FeedResponse{UserID: userID, ProgramIDs: ids})
}
