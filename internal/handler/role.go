package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/middleware"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
)

// RoleHandler 角色处理器
type RoleHandler struct {
	roleService service.RoleService
}

// NewRoleHandler 创建角色处理器
func NewRoleHandler(svc service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: svc}
}

// InstallRole 角色模块
func InstallRole(a *app.App) error {
	tokens, err := tokenService(a)
	if err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.RoleRead, "查看角色"); err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.RoleWrite, "管理角色"); err != nil {
		return err
	}

	h := NewRoleHandler(service.NewRoleService(
		repository.NewRoleRepository(a.DB),
		repository.NewUserRepository(a.DB),
	))

	read := middleware.RequireScopes(tokens, scope.RoleRead)
	write := middleware.RequireScopes(tokens, scope.RoleWrite)

	g := a.API.Group("/role")
	g.GET("", read, h.List)
	g.POST("", write, h.Create)
	g.GET("/:id", read, h.Get)
	g.PATCH("/:id", write, h.Update)
	g.DELETE("/:id", write, h.Delete)
	g.PUT("/:id/members/:user_id", write, h.AddMember)
	g.DELETE("/:id/members/:user_id", write, h.RemoveMember)
	g.PUT("/:id/permissions", write, h.SetPermissions)
	return nil
}

// RoleRequest 创建或修改角色
type RoleRequest struct {
	Key       string           `json:"key"`
	Name      string           `json:"name"`
	Sort      *int             `json:"sort"`
	Admin     *bool            `json:"admin"`
	DataScope *model.DataScope `json:"data_scope"`
	Comment   *string          `json:"comment"`
}

// RolePermissionsRequest 整体替换角色权限
type RolePermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids"`
}

// List 角色列表
// GET /role
func (h *RoleHandler) List(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}

	items, total, err := h.roleService.List(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, paged(items, total, page))
}

// Create 创建角色
// POST /role
func (h *RoleHandler) Create(c *gin.Context) {
	var req RoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.Create(c.Request.Context(), &service.RoleInput{
		Key:       req.Key,
		Name:      req.Name,
		Sort:      req.Sort,
		Admin:     req.Admin,
		DataScope: req.DataScope,
		Comment:   req.Comment,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, role)
}

// Get 角色详情，包含权限
// GET /role/:id
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	role, err := h.roleService.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, role)
}

// Update 修改角色
// PATCH /role/:id
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.Update(c.Request.Context(), id, &service.RoleInput{
		Key:       req.Key,
		Name:      req.Name,
		Sort:      req.Sort,
		Admin:     req.Admin,
		DataScope: req.DataScope,
		Comment:   req.Comment,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, role)
}

// Delete 删除角色
// DELETE /role/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.roleService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// AddMember 授予用户角色
// PUT /role/:id/members/:user_id
func (h *RoleHandler) AddMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := h.roleService.AddMember(c.Request.Context(), id, userID); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// RemoveMember 收回用户角色
// DELETE /role/:id/members/:user_id
func (h *RoleHandler) RemoveMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := h.roleService.RemoveMember(c.Request.Context(), id, userID); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// SetPermissions 替换角色权限
// PUT /role/:id/permissions
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req RolePermissionsRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.SetPermissions(c.Request.Context(), id, req.PermissionIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, role)
}
