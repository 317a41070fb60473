package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrDepartmentNotFound    = errors.New("部门不存在")
	ErrDepartmentKeyExists   = errors.New("部门编号已存在")
	ErrDepartmentHasChildren = errors.New("部门下存在子部门，无法删除")
)

// DepartmentRepository 部门数据访问接口
type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	GetByID(ctx context.Context, id uint) (*model.Department, error)
	GetByKey(ctx context.Context, key string) (*model.Department, error)
	Update(ctx context.Context, id uint, fields Fields) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter *DepartmentFilter, page *Pagination) ([]*model.Department, int64, error)
	ListChildren(ctx context.Context, parentID uint) ([]*model.Department, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	FirstOrCreate(ctx context.Context, dept *model.Department) (*model.Department, bool, error)
	AddMember(ctx context.Context, id, userID uint) error
	RemoveMember(ctx context.Context, id, userID uint) error
}

// DepartmentFilter 部门查询过滤器
type DepartmentFilter struct {
	Name string `form:"name"` // 名称（模糊匹配）
	// ParentID 为 0 时不过滤；RootOnly 只查顶级部门
	ParentID uint `form:"parent_id"`
	RootOnly bool `form:"root_only"`
}

// departmentRepository 部门数据访问实现
type departmentRepository struct {
	base
}

// NewDepartmentRepository 创建部门数据访问实例
func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{base{db: db}}
}

// Create 创建部门
func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	return r.conn(ctx).Create(dept).Error
}

// GetByID 获取部门及其负责人、成员
func (r *departmentRepository) GetByID(ctx context.Context, id uint) (*model.Department, error) {
	query := r.conn(ctx).Preload("Owner").Preload("Members")
	return first[model.Department](query, ErrDepartmentNotFound, "id = ?", id)
}

// GetByKey 根据编号获取部门
func (r *departmentRepository) GetByKey(ctx context.Context, key string) (*model.Department, error) {
	return first[model.Department](r.conn(ctx), ErrDepartmentNotFound, byKey(key))
}

// Update 部分更新
func (r *departmentRepository) Update(ctx context.Context, id uint, fields Fields) error {
	return update[model.Department](r.conn(ctx), id, fields, ErrDepartmentNotFound)
}

// Delete 删除部门，同时解除成员关系
func (r *departmentRepository) Delete(ctx context.Context, id uint) error {
	hasChildren, err := exists[model.Department](r.conn(ctx), "parent_id = ?", id)
	if err != nil {
		return err
	}
	if hasChildren {
		return ErrDepartmentHasChildren
	}

	dept := &model.Department{BaseModel: model.BaseModel{ID: id}}
	result := r.conn(ctx).Select("Members").Delete(dept)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

// List 分页查询
func (r *departmentRepository) List(ctx context.Context, filter *DepartmentFilter, page *Pagination) ([]*model.Department, int64, error) {
	query := r.conn(ctx).Model(&model.Department{})
	if filter != nil {
		if filter.Name != "" {
			query = query.Where("name LIKE ?", "%"+filter.Name+"%")
		}
		if filter.ParentID != 0 {
			query = query.Where("parent_id = ?", filter.ParentID)
		} else if filter.RootOnly {
			query = query.Where("parent_id IS NULL")
		}
	}
	return paginate[model.Department](query, page, "sort ASC, id ASC")
}

// ListChildren 直接子部门
func (r *departmentRepository) ListChildren(ctx context.Context, parentID uint) ([]*model.Department, error) {
	var children []*model.Department
	err := r.conn(ctx).Where("parent_id = ?", parentID).Order("sort ASC, id ASC").Find(&children).Error
	return children, err
}

// ExistsByKey 检查编号是否存在
func (r *departmentRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	return exists[model.Department](r.conn(ctx), byKey(key))
}

// FirstOrCreate 按编号查找，不存在时创建
func (r *departmentRepository) FirstOrCreate(ctx context.Context, dept *model.Department) (*model.Department, bool, error) {
	existing, err := r.GetByKey(ctx, dept.Key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrDepartmentNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, dept); err != nil {
		return nil, false, err
	}
	return dept, true, nil
}

// AddMember 添加成员，重复添加无副作用
func (r *departmentRepository) AddMember(ctx context.Context, id, userID uint) error {
	dept, err := first[model.Department](r.conn(ctx), ErrDepartmentNotFound, "id = ?", id)
	if err != nil {
		return err
	}
	user, err := first[model.User](r.conn(ctx), ErrUserNotFound, "id = ?", userID)
	if err != nil {
		return err
	}
	return r.conn(ctx).Model(dept).Association("Members").Append(user)
}

// RemoveMember 移除成员
func (r *departmentRepository) RemoveMember(ctx context.Context, id, userID uint) error {
	dept, err := first[model.Department](r.conn(ctx), ErrDepartmentNotFound, "id = ?", id)
	if err != nil {
		return err
	}
	user := &model.User{BaseModel: model.BaseModel{ID: userID}}
	return r.conn(ctx).Model(dept).Association("Members").Delete(user)
}
