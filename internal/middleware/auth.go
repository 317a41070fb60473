// Package middleware 中间件
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
)

// 上下文键
const (
	ContextUsername = "username"
	ContextPayload  = "token_payload"
)

// BearerToken 从 Authorization 头取出令牌，前缀不区分大小写
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireScopes 校验访问令牌并要求拥有全部 required 权限范围
// 通过后在上下文中写入用户名和令牌声明
func RequireScopes(tokens service.TokenService, required ...scope.Scope) gin.HandlerFunc {
	wanted := scope.Strings(required...)
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			response.Error(c, response.Unauthorized("未提供认证令牌", wanted...))
			return
		}

		payload, err := tokens.ValidateAccess(token, required...)
		if err != nil {
			var scopeErr *service.ScopeError
			switch {
			case errors.As(err, &scopeErr):
				// 挑战头只列出缺少的权限范围
				response.Error(c, response.Unauthorized(scopeErr.Error(), scopeErr.Missing...))
			case errors.Is(err, service.ErrTokenExpired):
				response.Error(c, response.Unauthorized("令牌已过期", wanted...))
			default:
				response.Error(c, response.Unauthorized("无法验证凭据", wanted...))
			}
			return
		}

		c.Set(ContextUsername, payload.Subject)
		c.Set(ContextPayload, payload)
		c.Next()
	}
}

// Username 当前用户名，未认证时为空
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

// Payload 当前令牌声明
func Payload(c *gin.Context) *service.Payload {
	if v, ok := c.Get(ContextPayload); ok {
		if p, ok := v.(*service.Payload); ok {
			return p
		}
	}
	return nil
}
