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

// DictionaryHandler 字典处理器，字典按编号定位
type DictionaryHandler struct {
	dictionaryService service.DictionaryService
}

// NewDictionaryHandler 创建字典处理器
func NewDictionaryHandler(svc service.DictionaryService) *DictionaryHandler {
	return &DictionaryHandler{dictionaryService: svc}
}

// InstallDictionary 字典模块
func InstallDictionary(a *app.App) error {
	tokens, err := tokenService(a)
	if err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.DictRead, "查看字典"); err != nil {
		return err
	}
	if err := a.Scopes.Register(scope.DictWrite, "管理字典"); err != nil {
		return err
	}

	h := NewDictionaryHandler(service.NewDictionaryService(repository.NewDictionaryRepository(a.DB)))

	read := middleware.RequireScopes(tokens, scope.DictRead)
	write := middleware.RequireScopes(tokens, scope.DictWrite)

	g := a.API.Group("/dict")
	g.GET("", read, h.List)
	g.POST("", write, h.Create)
	g.GET("/:key", read, h.Get)
	g.PATCH("/:key", write, h.Update)
	g.DELETE("/:key", write, h.Delete)
	g.GET("/:key/values", read, h.ListValues)
	g.POST("/:key/values", write, h.AddValue)
	g.GET("/:key/values/:id", read, h.GetValue)
	g.DELETE("/:key/values/:id", write, h.DeleteValue)
	return nil
}

// DictionaryRequest 创建或修改字典
type DictionaryRequest struct {
	Key     string           `json:"key"`
	Name    string           `json:"name"`
	Type    *model.ValueType `json:"type"`
	Enable  *bool            `json:"enable"`
	Sort    *int             `json:"sort"`
	Comment *string          `json:"comment"`
}

func (r *DictionaryRequest) input() *service.DictionaryInput {
	return &service.DictionaryInput{
		Key:     r.Key,
		Name:    r.Name,
		Type:    r.Type,
		Enable:  r.Enable,
		Sort:    r.Sort,
		Comment: r.Comment,
	}
}

// DictionaryValueRequest 添加字典键值，type 缺省时沿用字典的类型
type DictionaryValueRequest struct {
	Name   string           `json:"name"`
	Value  string           `json:"value"`
	Type   *model.ValueType `json:"type"`
	Enable *bool            `json:"enable"`
	Sort   *int             `json:"sort"`
	Color  string           `json:"color"`
}

// List 字典列表
// GET /dict
func (h *DictionaryHandler) List(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}

	items, total, err := h.dictionaryService.List(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, paged(items, total, page))
}

// Create 创建字典
// POST /dict
func (h *DictionaryHandler) Create(c *gin.Context) {
	var req DictionaryRequest
	if !bindJSON(c, &req) {
		return
	}

	dict, err := h.dictionaryService.Create(c.Request.Context(), req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, dict)
}

// Get 字典详情
// GET /dict/:key
func (h *DictionaryHandler) Get(c *gin.Context) {
	dict, err := h.dictionaryService.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, dict)
}

// Update 修改字典
// PATCH /dict/:key
func (h *DictionaryHandler) Update(c *gin.Context) {
	var req DictionaryRequest
	if !bindJSON(c, &req) {
		return
	}

	dict, err := h.dictionaryService.Update(c.Request.Context(), c.Param("key"), req.input())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, dict)
}

// Delete 删除字典及其键值
// DELETE /dict/:key
func (h *DictionaryHandler) Delete(c *gin.Context) {
	if err := h.dictionaryService.Delete(c.Request.Context(), c.Param("key")); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}

// ListValues 字典键值列表
// GET /dict/:key/values
func (h *DictionaryHandler) ListValues(c *gin.Context) {
	values, err := h.dictionaryService.ListValues(c.Request.Context(), c.Param("key"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if values == nil {
		values = []*model.DictionaryKeyValue{}
	}
	response.Success(c, values)
}

// AddValue 添加字典键值
// POST /dict/:key/values
func (h *DictionaryHandler) AddValue(c *gin.Context) {
	var req DictionaryValueRequest
	if !bindJSON(c, &req) {
		return
	}

	value, err := h.dictionaryService.AddValue(c.Request.Context(), c.Param("key"), &service.DictionaryValueInput{
		Name:   req.Name,
		Value:  req.Value,
		Type:   req.Type,
		Enable: req.Enable,
		Sort:   req.Sort,
		Color:  req.Color,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, value)
}

// GetValue 字典键值详情
// GET /dict/:key/values/:id
func (h *DictionaryHandler) GetValue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	value, err := h.dictionaryService.GetValue(c.Request.Context(), c.Param("key"), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, value)
}

// DeleteValue 删除字典键值
// DELETE /dict/:key/values/:id
func (h *DictionaryHandler) DeleteValue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.dictionaryService.DeleteValue(c.Request.Context(), c.Param("key"), id); err != nil {
		_ = c.Error(err)
		return
	}
	response.NoContent(c)
}
