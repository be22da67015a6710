package service

import (
	"errors"
	"fmt"
)

// Code 服务层错误分类，handler 据此映射 HTTP 状态码.
type Code string

const (
	CodeUnauthorized    Code = "unauthorized"     // 调用方身份缺失
	CodeForbidden       Code = "forbidden"        // 身份明确但无权访问目标资产
	CodeNotFound        Code = "not_found"        // 资产不存在
	CodeInvalidArgument Code = "invalid_argument" // 参数非法或状态机不允许该迁移
	CodeInternal        Code = "internal"         // 存储、数据库等基础设施故障
)

// Error 携带分类码的服务层错误.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf 提取错误分类；非 *Error 一律归为 internal.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}

	return CodeInternal
}

func errUnauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }

func errForbidden(msg string) *Error { return &Error{Code: CodeForbidden, Message: msg} }

func errNotFound(msg string) *Error { return &Error{Code: CodeNotFound, Message: msg} }

func errInvalid(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func errInternal(msg string, err error) *Error {
	return &Error{Code: CodeInternal, Message: msg, Err: err}
}
