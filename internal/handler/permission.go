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

// PermissionHandler 权限与菜单处理器
type PermissionHandler struct {
	permissionService service.PermissionService
}

// NewPermissionHandler 创建权限处理器
func NewPermissionHandler(svc service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: svc}
}

// InstallPermission 权限与菜单模块，菜单沿用权限的权限范围
func InstallPermission(a *app.App) error {
	tokens, err := tokenService(a)
	if err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.PermissionRead, "查看权限和菜单"); err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.PermissionWrite, "管理权限和菜单"); err != nil {
		return err
	}

	h := NewPermissionHandler(service.NewPermissionService(
		repository.NewPermissionRepository(a.DB),
		repository.NewMenuRepository(a.DB),
	))

	read := middleware.RequireScopes(tokens, scope.PermissionRead)
	write := middleware.RequireScopes(tokens, scope.PermissionWrite)

	g := a.API.Group("/permission")
	g.GET("", read, h.List)
	g.POST("", write, h.Create)
	g.GET("/:id", read, h.Get)
	g.DELETE("/:id", write, h.Delete)
	g.POST("/:id/actions", write, h.AddAction)
	g.DELETE("/:id/actions/:action_id", write, h.DeleteAction)

	m := a.API.Group("/menu")
	m.GET("", read, h.ListMenus)
	m.POST("", write, h.CreateMenu)
	m.GET("/:id", read, h.GetMenu)
	m.PATCH("/:id", write, h.UpdateMenu)
	m.DELETE("/:id", write, h.DeleteMenu)
	return nil
}

// PermissionRequest 创建权限
type PermissionRequest struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Sort     *int   `json:"sort"`
	ParentID *uint  `json:"parent_id"`
}

// ActionRequest 添加操作
type ActionRequest struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	API    string `json:"api"`
	Method string `json:"method"`
}

// MenuRequest 创建或修改菜单，permission_id 为 0 表示所有人可见
type MenuRequest struct {
	Name          string  `json:"name"`
	Icon          *string `json:"icon"`
	IsLink        *bool   `json:"is_link"`
	RoutePath     *string `json:"route_path"`
	Component     *string `json:"component"`
	ComponentName *string `json:"component_name"`
	Enabled       *bool   `json:"enabled"`
	Hidden        *bool   `json:"hidden"`
	Sort          *int    `json:"sort"`
	PermissionID  *uint   `json:"permission_id"`
}

func (r *MenuRequest) input() *service.MenuInput {
	return &service.MenuInput{
		Name:          r.Name,
		Icon:          r.Icon,
		IsLink:        r.IsLink,
		RoutePath:     r.RoutePath,
		Component:     r.Component,
		ComponentName: r.ComponentName,
		Enabled:       r.Enabled,
		Hidden:        r.Hidden,
		Sort:          r.Sort,
		PermissionID:  r.PermissionID,
	}
}

// List 权限列表
// GET /permission
func (h *PermissionHandler) List(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}

	items, total, err := h.permissionService.List(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, paged(items, total, page))
}

// Create 创建权限
// POST /permission
func (h *PermissionHandler) Create(c *gin.Context) {
	var req PermissionRequest
	if !bindJSON(c, &req) {
		return
	}

	perm, err := h.permissionService.Create(c.Request.Context(), &service.PermissionInput{
		Key:      req.Key,
		Name:     req.Name,
		Sort:     req.Sort,
		ParentID: req.ParentID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, perm)
}

// Get 权限详情，包含操作
// GET /permission/:id
func (h *PermissionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	perm, err := h.permissionService.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, perm)
}

// Delete 删除权限
// DELETE /permission/:id
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.permissionService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// AddAction 添加操作
// POST /permission/:id/actions
func (h *PermissionHandler) AddAction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ActionRequest
	if !bindJSON(c, &req) {
		return
	}

	action, err := h.permissionService.AddAction(c.Request.Context(), id, &service.ActionInput{
		Name:   req.Name,
		Value:  req.Value,
		API:    req.API,
		Method: req.Method,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, action)
}

// DeleteAction 删除操作
// DELETE /permission/:id/actions/:action_id
func (h *PermissionHandler) DeleteAction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actionID, ok := paramID(c, "action_id")
	if !ok {
		return
	}

	if err := h.permissionService.DeleteAction(c.Request.Context(), id, actionID); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// ListMenus 全部菜单
// GET /menu
func (h *PermissionHandler) ListMenus(c *gin.Context) {
	menus, err := h.permissionService.ListMenus(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if menus == nil {
		menus = []*model.Menu{}
	}
	response.Success(c, menus)
}

// CreateMenu 创建菜单
// POST /menu
func (h *PermissionHandler) CreateMenu(c *gin.Context) {
	var req MenuRequest
	if !bindJSON(c, &req) {
		return
	}

	menu, err := h.permissionService.CreateMenu(c.Request.Context(), req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, menu)
}

// GetMenu 菜单详情
// GET /menu/:id
func (h *PermissionHandler) GetMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	menu, err := h.permissionService.GetMenu(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, menu)
}

// UpdateMenu 修改菜单
// PATCH /menu/:id
func (h *PermissionHandler) UpdateMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req MenuRequest
	if !bindJSON(c, &req) {
		return
	}

	menu, err := h.permissionService.UpdateMenu(c.Request.Context(), id, req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, menu)
}

// DeleteMenu 删除菜单
// DELETE /menu/:id
func (h *PermissionHandler) DeleteMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.permissionService.DeleteMenu(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}
