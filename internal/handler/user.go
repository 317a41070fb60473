package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/middleware"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/redis"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
)

// UserHandler 用户处理器
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userService: userSvc}
}

// InstallUser 用户模块
func InstallUser(a *app.App) error {
	tokens, err := tokenService(a)
	if err != nil {
		return err
	}
	passwords, err := app.Dependency[*password.Context](a.Container, KeyPasswords)
	if err != nil {
		return err
	}
	// 未启用 Redis 时不限流
	limiter, err := app.Dependency[redis.Limiter](a.Container, KeyRegisterLimiter)
	if err != nil && !errors.Is(err, app.ErrDependencyMissing) {
		return err
	}

	if err := a.Scopes.Register(scope.UserRead, "查看用户"); err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.UserWrite, "修改用户"); err != nil {
		return err
	}

	h := NewUserHandler(service.NewUserService(
		repository.NewUserRepository(a.DB),
		repository.NewRoleRepository(a.DB),
		repository.NewPermissionRepository(a.DB),
		repository.NewMenuRepository(a.DB),
		passwords,
	))

	g := a.API.Group("/user")
	g.POST("", middleware.RateLimit(limiter, a.Metrics), h.Register)

	authed := middleware.RequireScopes(tokens)
	g.GET("/me", authed, h.Me)
	g.PATCH("/me", authed, h.UpdateMe)
	g.PATCH("/me/password", authed, h.ChangePassword)
	g.GET("/me/menus", authed, h.Menus)

	read := middleware.RequireScopes(tokens, scope.UserRead)
	g.GET("", read, h.List)
	g.GET("/:id", read, h.Get)
	return nil
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Mail        string `json:"mail"`
}

// UpdateProfileRequest 修改个人资料请求
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Mail        *string `json:"mail"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// Register 注册本地账户
// POST /user
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &service.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Mail:        req.Mail,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, user)
}

// Me 当前用户
// GET /user/me
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.userService.GetByUsername(c.Request.Context(), middleware.Username(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, user)
}

// UpdateMe 修改当前用户资料
// PATCH /user/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.Username(c), &service.ProfileInput{
		DisplayName: req.DisplayName,
		Mail:        req.Mail,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, user)
}

// ChangePassword 修改当前用户密码
// PATCH /user/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.userService.ChangePassword(c.Request.Context(), middleware.Username(c), req.OldPassword, req.NewPassword)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// Menus 当前用户可见的菜单
// GET /user/me/menus
func (h *UserHandler) Menus(c *gin.Context) {
	menus, err := h.userService.Menus(c.Request.Context(), middleware.Username(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if menus == nil {
		menus = []*model.Menu{}
	}
	response.Success(c, menus)
}

// List 用户列表
// GET /user
func (h *UserHandler) List(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}
	var filter repository.UserFilter
	if !bindQuery(c, &filter) {
		return
	}

	users, total, err := h.userService.List(c.Request.Context(), &filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, paged(users, total, page))
}

// Get 用户详情
// GET /user/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, user)
}
