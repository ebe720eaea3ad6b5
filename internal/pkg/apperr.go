package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码分类，handler按code映射HTTP状态
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeEdgeInconsistent    = "EDGE_INCONSISTENT" // 关注边只写成功一半，需要人工对账
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

type AppError struct {
	Code string
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, msg string, err error) *AppError {
	return &AppError{Code: code, Msg: msg, Err: err}
}

func InvalidArgument(msg string) *AppError { return &AppError{Code: CodeInvalidArgument, Msg: msg} }

func Unauthorized(msg string) *AppError { return &AppError{Code: CodeUnauthorized, Msg: msg} }

func NotFound(msg string) *AppError { return &AppError{Code: CodeNotFound, Msg: msg} }

func EdgeInconsistent(msg string, err error) *AppError {
	return &AppError{Code: CodeEdgeInconsistent, Msg: msg, Err: err}
}

func Upstream(msg string, err error) *AppError {
	return &AppError{Code: CodeUpstreamUnavailable, Msg: msg, Err: err}
}

// CodeOf 从错误链提取code，非AppError一律当作上游故障
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUpstreamUnavailable
}

// HTTPStatus code到HTTP状态码
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeEdgeInconsistent:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
