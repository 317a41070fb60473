// Package handler HTTP 处理器与功能模块安装器
//
// 每个功能模块提供一个 Installer，在 App 上注册权限范围、模型和路由。
// 处理器只调用 c.Error 登记错误，由错误处理中间件统一写出响应。
package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
)

// 依赖标识
const (
	KeyTokens           app.Key = "tokens"
	KeyPasswords        app.Key = "passwords"
	KeySSOClient        app.Key = "sso_client"
	KeyAccountValidator app.Key = "account_validator"
	KeyRegisterLimiter  app.Key = "register_limiter"
)

// Register 按固定顺序注册全部功能模块
func Register(b *app.Builder) *app.Builder {
	return b.
		Register("core", InstallCore).
		Register("auth", InstallAuth).
		Register("oauth2password", InstallOAuth2Password).
		Register("xysso", InstallXYSSO).
		Register("user", InstallUser).
		Register("department", InstallDepartment).
		Register("role", InstallRole).
		Register("permission", InstallPermission).
		Register("dict", InstallDictionary).
		Register("device", InstallDevice)
}

// PageResult 分页响应
type PageResult[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func paged[T any](items []T, total int64, page *repository.Pagination) *PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PageResult[T]{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}
}

// tokenService 安装阶段解析令牌服务
func tokenService(a *app.App) (service.TokenService, error) {
	return app.Dependency[service.TokenService](a.Container, KeyTokens)
}

func bind(c *gin.Context, obj any, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		_ = c.Error(response.Unprocessable("参数错误: " + err.Error()))
		return false
	}
	return true
}

func bindJSON(c *gin.Context, obj any) bool {
	return bind(c, obj, binding.JSON)
}

func bindForm(c *gin.Context, obj any) bool {
	return bind(c, obj, binding.Form)
}

func bindQuery(c *gin.Context, obj any) bool {
	return bind(c, obj, binding.Query)
}

// pagination 读取 page / page_size 查询参数
func pagination(c *gin.Context) (*repository.Pagination, bool) {
	var page repository.Pagination
	if !bindQuery(c, &page) {
		return nil, false
	}
	page.Normalize()
	return &page, true
}

// paramID 读取路径中的正整数 ID
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		_ = c.Error(response.Unprocessable(fmt.Sprintf("无效的 %s: %q", name, c.Param(name))))
		return 0, false
	}
	return uint(id), true
}
