package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/metrics"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
)

// AuthHandler 令牌刷新与密码登录
type AuthHandler struct {
	authService service.AuthService
	container   *app.Container
	metrics     *metrics.Metrics
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authSvc service.AuthService, container *app.Container, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{authService: authSvc, container: container, metrics: m}
}

func newAuthHandler(a *app.App) (*AuthHandler, error) {
	tokens, err := tokenService(a)
	if err != nil {
		return nil, err
	}
	passwords, err := app.Dependency[*password.Context](a.Container, KeyPasswords)
	if err != nil {
		return nil, err
	}
	authSvc := service.NewAuthService(repository.NewUserRepository(a.DB), tokens, passwords, a.Scopes, a.Logger)
	return NewAuthHandler(authSvc, a.Container, a.Metrics), nil
}

// InstallAuth 令牌刷新
func InstallAuth(a *app.App) error {
	h, err := newAuthHandler(a)
	if err != nil {
		return err
	}
	a.API.POST("/auth/refresh_token", h.Refresh)
	return nil
}

// InstallOAuth2Password 本地账户密码换取令牌
func InstallOAuth2Password(a *app.App) error {
	h, err := newAuthHandler(a)
	if err != nil {
		return err
	}
	a.API.POST("/oauth2password/token", h.PasswordToken)
	return nil
}

// RefreshRequest 刷新令牌请求，表单或查询参数
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" binding:"required"`
}

// PasswordTokenRequest 密码登录请求，scope 以空格分隔
type PasswordTokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Scope    string `form:"scope"`
}

// Refresh 用刷新令牌换取新的令牌对
// POST /auth/refresh_token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindForm(c, &req) {
		return
	}

	// 按请求解析，允许部署时覆盖账户校验
	validator, err := app.Dependency[service.AccountValidator](h.container, KeyAccountValidator)
	if err != nil {
		_ = c.Error(err)
		return
	}

	data, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, validator)
	h.metrics.Login(metrics.MethodRefresh, err)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, data)
}

// PasswordToken 本地账户登录
// POST /oauth2password/token
func (h *AuthHandler) PasswordToken(c *gin.Context) {
	var req PasswordTokenRequest
	if !bindForm(c, &req) {
		return
	}

	data, _, err := h.authService.PasswordLogin(c.Request.Context(), req.Username, req.Password, scope.Parse(req.Scope))
	h.metrics.Login(metrics.MethodPassword, err)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, data)
}
