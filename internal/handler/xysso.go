package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/metrics"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/internal/sso"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
)

// XYSSOHandler 心源单点登录
type XYSSOHandler struct {
	ssoService service.SSOService
	auth       *AuthHandler
	scopes     *scope.Registry
	container  *app.Container
	metrics    *metrics.Metrics
}

// InstallXYSSO 单点登录模块
func InstallXYSSO(a *app.App) error {
	tokens, err := tokenService(a)
	if err != nil {
		return err
	}
	auth, err := newAuthHandler(a)
	if err != nil {
		return err
	}

	h := &XYSSOHandler{
		ssoService: service.NewSSOService(repository.NewUserRepository(a.DB), tokens, a.Logger),
		auth:       auth,
		scopes:     a.Scopes,
		container:  a.Container,
		metrics:    a.Metrics,
	}

	g := a.API.Group("/xysso")
	g.GET("", h.Authorize)
	g.OPTIONS("", h.Authorize)
	g.POST("/userinfo", h.UserInfo)
	g.POST("/token", h.Token)
	g.GET("/refresh_token", auth.Refresh)
	return nil
}

// SSOCodeRequest 授权码请求，表单中的客户端凭据优先于配置
type SSOCodeRequest struct {
	Code         string `form:"code" binding:"required"`
	GrantType    string `form:"grant_type"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
	RedirectURI  string `form:"redirect_uri"`
	Scope        string `form:"scope"`
}

func (r *SSOCodeRequest) credentials() sso.Credentials {
	return sso.Credentials{ClientID: r.ClientID, ClientSecret: r.ClientSecret}
}

// client 按请求解析，测试和部署可以覆盖
func (h *XYSSOHandler) client(c *gin.Context) (sso.Client, bool) {
	client, err := app.Dependency[sso.Client](h.container, KeySSOClient)
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	return client, true
}

// Authorize 返回授权页面信息
// GET /xysso?redirect_uri=
func (h *XYSSOHandler) Authorize(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	redirectURI := c.Query("redirect_uri")
	c.JSON(http.StatusOK, gin.H{
		"client_id":     client.ClientID(),
		"response_type": "code",
		"redirect_uri":  redirectURI,
		"scopes":        h.scopes.Map(),
		"url":           client.AuthorizeURL(redirectURI),
	})
}

// UserInfo 用授权码换取单点登录用户信息，不创建本地用户
// POST /xysso/userinfo
func (h *XYSSOHandler) UserInfo(c *gin.Context) {
	var req SSOCodeRequest
	if !bindForm(c, &req) {
		return
	}
	client, ok := h.client(c)
	if !ok {
		return
	}

	resp, err := h.ssoService.UserInfo(c.Request.Context(), client, req.Code, req.credentials())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, resp)
}

// Token 用授权码登录，首次登录时创建用户
// POST /xysso/token
func (h *XYSSOHandler) Token(c *gin.Context) {
	var req SSOCodeRequest
	if !bindForm(c, &req) {
		return
	}
	client, ok := h.client(c)
	if !ok {
		return
	}

	scopes := scope.Parse(req.Scope)
	if err := h.scopes.Validate(scopes); err != nil {
		_ = c.Error(err)
		return
	}

	data, _, err := h.ssoService.Login(c.Request.Context(), client, req.Code, req.credentials(), scopes)
	h.metrics.Login(metrics.MethodXYSSO, err)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, data)
}
