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

// DepartmentHandler 部门处理器
type DepartmentHandler struct {
	departmentService service.DepartmentService
}

// NewDepartmentHandler 创建部门处理器
func NewDepartmentHandler(svc service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departmentService: svc}
}

// InstallDepartment 部门模块
func InstallDepartment(a *app.App) error {
	tokens, err := tokenService(a)
	if err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.DepartmentRead, "查看部门"); err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.DepartmentWrite, "管理部门"); err != nil {
		return err
	}

	h := NewDepartmentHandler(service.NewDepartmentService(
		repository.NewDepartmentRepository(a.DB),
		repository.NewUserRepository(a.DB),
	))

	read := middleware.RequireScopes(tokens, scope.DepartmentRead)
	write := middleware.RequireScopes(tokens, scope.DepartmentWrite)

	g := a.API.Group("/department")
	g.GET("", read, h.List)
	g.POST("", write, h.Create)
	g.GET("/:id", read, h.Get)
	g.PATCH("/:id", write, h.Update)
	g.DELETE("/:id", write, h.Delete)
	g.GET("/:id/children", read, h.Children)
	g.PUT("/:id/members/:user_id", write, h.AddMember)
	g.DELETE("/:id/members/:user_id", write, h.RemoveMember)
	return nil
}

// DepartmentRequest 创建或修改部门，修改时省略的字段保持不变
// parent_id 为 0 表示移到顶级，owner_id 为 0 表示清除负责人
type DepartmentRequest struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Sort     *int   `json:"sort"`
	Active   *bool  `json:"active"`
	OwnerID  *uint  `json:"owner_id"`
	ParentID *uint  `json:"parent_id"`
}

func (r *DepartmentRequest) input() *service.DepartmentInput {
	return &service.DepartmentInput{
		Key:      r.Key,
		Name:     r.Name,
		Sort:     r.Sort,
		Active:   r.Active,
		OwnerID:  r.OwnerID,
		ParentID: r.ParentID,
	}
}

// List 部门列表
// GET /department
func (h *DepartmentHandler) List(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}
	var filter repository.DepartmentFilter
	if !bindQuery(c, &filter) {
		return
	}

	items, total, err := h.departmentService.List(c.Request.Context(), &filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, paged(items, total, page))
}

// Create 创建部门
// POST /department
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req DepartmentRequest
	if !bindJSON(c, &req) {
		return
	}

	dept, err := h.departmentService.Create(c.Request.Context(), req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, dept)
}

// Get 部门详情
// GET /department/:id
func (h *DepartmentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	dept, err := h.departmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, dept)
}

// Update 修改部门
// PATCH /department/:id
func (h *DepartmentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req DepartmentRequest
	if !bindJSON(c, &req) {
		return
	}

	dept, err := h.departmentService.Update(c.Request.Context(), id, req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, dept)
}

// Delete 删除部门，存在子部门时拒绝
// DELETE /department/:id
func (h *DepartmentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.departmentService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// Children 直接子部门
// GET /department/:id/children
func (h *DepartmentHandler) Children(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	children, err := h.departmentService.Children(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if children == nil {
		children = []*model.Department{}
	}
	response.Success(c, children)
}

// AddMember 添加部门成员
// PUT /department/:id/members/:user_id
func (h *DepartmentHandler) AddMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := h.departmentService.AddMember(c.Request.Context(), id, userID); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// RemoveMember 移除部门成员
// DELETE /department/:id/members/:user_id
func (h *DepartmentHandler) RemoveMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := h.departmentService.RemoveMember(c.Request.Context(), id, userID); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}
