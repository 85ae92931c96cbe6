package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），被 fmt.Errorf("%w") 包装后依然可识别
//
// 使用场景：
//   - 用户不存在：user / NOT_FOUND
//   - 向量维度不一致：vector / INVALID_INPUT
//   - 存储后端不可用：store / UNAVAILABLE
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_INPUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "user", "feed", "store"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 按 Module + Code 匹配，便于 errors.Is(err, ErrUserNotFound) 这类写法。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleUser     = "user"     // 用户（外部协作方）
	ModuleFeed     = "feed"     // Feed 缓存
	ModuleStore    = "store"    // 存储模块
	ModuleVector   = "vector"   // 向量模块
	ModulePipeline = "pipeline" // Pipeline 编排
)

// ErrUserNotFound 用于 errors.Is 匹配；返回给调用方时建议使用 NewUserNotFound 带上 ID。
var ErrUserNotFound = NewDomainError(ModuleUser, ErrorCodeNotFound, "user not found")

// NewUserNotFound 创建带用户 ID 的 NOT_FOUND 错误。
func NewUserNotFound(userID int64) *DomainError {
	return NewDomainError(ModuleUser, ErrorCodeNotFound, fmt.Sprintf("user %d not found", userID))
}

// IsUserNotFound 检查错误是否为用户不存在
func IsUserNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleUser && domainErr.Code == ErrorCodeNotFound
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}
