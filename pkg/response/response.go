// Package response HTTP 响应与错误
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应结构
type ErrorBody struct {
	Detail string `json:"detail"`
}

// HTTPError 带状态码的错误，由错误处理中间件统一转换为响应
type HTTPError struct {
	Status int
	Detail string
	Header map[string]string
	Err    error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Detail, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Detail)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// WithErr 附带底层错误（仅用于日志）
func (e *HTTPError) WithErr(err error) *HTTPError {
	e.Err = err
	return e
}

func newError(status int, detail string) *HTTPError {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &HTTPError{Status: status, Detail: detail}
}

// NotFound 404 资源不存在
func NotFound(detail string) *HTTPError {
	return newError(http.StatusNotFound, detail)
}

// Conflict 409 冲突（重复、账户类型不符、密码未变化）
func Conflict(detail string) *HTTPError {
	return newError(http.StatusConflict, detail)
}

// BadRequest 400 请求错误
func BadRequest(detail string) *HTTPError {
	return newError(http.StatusBadRequest, detail)
}

// Unprocessable 422 参数校验失败
func Unprocessable(detail string) *HTTPError {
	return newError(http.StatusUnprocessableEntity, detail)
}

// TooManyRequests 429 请求过于频繁
func TooManyRequests(detail string) *HTTPError {
	return newError(http.StatusTooManyRequests, detail)
}

// ServerConfig 500 服务端配置错误
func ServerConfig(detail string) *HTTPError {
	return newError(http.StatusInternalServerError, detail)
}

// Unauthorized 401 认证失败，scopes 非空时在质询头中列出缺少的权限范围
func Unauthorized(detail string, scopes ...string) *HTTPError {
	e := newError(http.StatusUnauthorized, detail)
	e.Header = map[string]string{"WWW-Authenticate": Challenge(scopes...)}
	return e
}

// Challenge 生成 WWW-Authenticate 头的值
func Challenge(scopes ...string) string {
	if len(scopes) == 0 {
		return "Bearer"
	}
	return fmt.Sprintf(`Bearer scope="%s"`, strings.Join(scopes, " "))
}

// Success 200 直接返回数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created 201
func Created(c *gin.Context, data any) {
	if data == nil {
		c.Status(http.StatusCreated)
		return
	}
	c.JSON(http.StatusCreated, data)
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 直接写出错误响应并中止后续处理
func Error(c *gin.Context, err error) {
	he := AsHTTPError(err)
	for k, v := range he.Header {
		c.Header(k, v)
	}
	c.AbortWithStatusJSON(he.Status, ErrorBody{Detail: he.Detail})
}

// AsHTTPError 将任意错误转换为 HTTPError，未知错误视为 500
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return &HTTPError{
		Status: http.StatusInternalServerError,
		Detail: "服务器内部错误",
		Err:    err,
	}
}
