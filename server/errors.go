package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rushteam/feedcache/core"
)

// statusOf 把领域错误码映射为 HTTP 状态码。
// 只有 user 模块的 INVALID_INPUT 来自请求参数（4xx）；其他模块的 INVALID_INPUT
// 是库内数据不一致（如存储的向量维度错误），按服务端错误返回。
func statusOf(d *core.DomainError) int {
	switch d.Code {
	case core.ErrorCodeNotFound:
		return http.StatusNotFound
	case core.ErrorCodeInvalidInput:
		if d.Module != core.ModuleUser {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	case core.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case core.ErrorCodeNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := ErrorResponse{Code: core.ErrorCodeInternalError, Message: "internal error"}

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		body.Code = http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(he.Code)
		}
	case core.GetDomainError(err) != nil:
		d := core.GetDomainError(err)
		status = statusOf(d)
		body = ErrorResponse{Code: d.Code, Module: d.Module, Message: d.Message}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		body = ErrorResponse{Code: core.ErrorCodeUnavailable, Message: "request timed out"}
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request error", "path", c.Path(), "status", status, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.log.Warn("write error response failed", "error", err)
	}
}
