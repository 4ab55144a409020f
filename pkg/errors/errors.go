// Package errors 定义跨层共享的错误分类。
//
// 分类与 HTTP 响应的对应关系由 handler 层负责：
// ErrUnauthorized → 401，ErrBadRequest → 400，ErrUpstreamAuth → 502，
// ErrStore / ErrInternal → 500。
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("未授权")
	ErrBadRequest   = errors.New("请求参数错误")
	ErrUpstreamAuth = errors.New("LINE 认证服务异常")
	ErrStore        = errors.New("数据存储失败")
	ErrInternal     = errors.New("服务器内部错误")
)

// FieldError 字段级校验错误，errors.Is(err, ErrBadRequest) 成立
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *FieldError) Is(target error) bool { return target == ErrBadRequest }

// NewFieldError 创建字段校验错误
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// StoreError 包装底层驱动错误。
// errors.Is(err, ErrStore) 成立，同时可以继续匹配 gorm.ErrRecordNotFound 等驱动错误。
type StoreError struct {
	Op    string // find | insert | update | delete | upsert
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// WrapStore 包装存储错误，nil 原样返回
func WrapStore(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Table: table, Err: err}
}
