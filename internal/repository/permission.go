package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"gorm.io/gorm"
)

var (
	ErrPermissionNotFound  = errors.New("权限不存在")
	ErrPermissionKeyExists = errors.New("权限编号已存在")
	ErrActionNotFound      = errors.New("操作不存在")
	ErrMenuNotFound        = errors.New("菜单不存在")
)

// PermissionRepository 权限仓库接口
type PermissionRepository interface {
	Create(ctx context.Context, perm *model.Permission) error
	GetByID(ctx context.Context, id uint) (*model.Permission, error)
	GetByKey(ctx context.Context, key string) (*model.Permission, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page *Pagination) ([]*model.Permission, int64, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	FirstOrCreate(ctx context.Context, perm *model.Permission) (*model.Permission, bool, error)
	AddAction(ctx context.Context, action *model.Action) error
	DeleteAction(ctx context.Context, permissionID, actionID uint) error
	// IDsByUser 用户通过角色获得的全部权限 ID
	IDsByUser(ctx context.Context, userID uint) ([]uint, error)
}

// MenuRepository 菜单仓库接口
type MenuRepository interface {
	Create(ctx context.Context, menu *model.Menu) error
	GetByID(ctx context.Context, id uint) (*model.Menu, error)
	Update(ctx context.Context, id uint, fields Fields) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]*model.Menu, error)
	// ListVisible 未绑定权限或绑定权限在 permissionIDs 中的启用菜单
	ListVisible(ctx context.Context, permissionIDs []uint) ([]*model.Menu, error)
	FirstOrCreate(ctx context.Context, menu *model.Menu) (*model.Menu, bool, error)
}

type permissionRepository struct {
	base
}

// NewPermissionRepository 创建权限仓库
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{base{db: db}}
}

func (r *permissionRepository) Create(ctx context.Context, perm *model.Permission) error {
	return r.conn(ctx).Create(perm).Error
}

func (r *permissionRepository) GetByID(ctx context.Context, id uint) (*model.Permission, error) {
	query := r.conn(ctx).Preload("Actions")
	return first[model.Permission](query, ErrPermissionNotFound, "id = ?", id)
}

func (r *permissionRepository) GetByKey(ctx context.Context, key string) (*model.Permission, error) {
	return first[model.Permission](r.conn(ctx).Preload("Actions"), ErrPermissionNotFound, byKey(key))
}

// Delete 删除权限及其操作，解除角色与菜单的绑定
func (r *permissionRepository) Delete(ctx context.Context, id uint) error {
	conn := r.conn(ctx)
	if err := conn.Exec("DELETE FROM role_permissions WHERE permission_id = ?", id).Error; err != nil {
		return err
	}
	if err := conn.Model(&model.Menu{}).Where("permission_id = ?", id).Update("permission_id", nil).Error; err != nil {
		return err
	}
	if err := conn.Model(&model.Permission{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
		return err
	}

	perm := &model.Permission{BaseModel: model.BaseModel{ID: id}}
	result := conn.Select("Actions").Delete(perm)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

func (r *permissionRepository) List(ctx context.Context, page *Pagination) ([]*model.Permission, int64, error) {
	query := r.conn(ctx).Model(&model.Permission{}).Preload("Actions")
	return paginate[model.Permission](query, page, "sort ASC, id ASC")
}

func (r *permissionRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	return exists[model.Permission](r.conn(ctx), byKey(key))
}

func (r *permissionRepository) FirstOrCreate(ctx context.Context, perm *model.Permission) (*model.Permission, bool, error) {
	existing, err := r.GetByKey(ctx, perm.Key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrPermissionNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, perm); err != nil {
		return nil, false, err
	}
	return perm, true, nil
}

func (r *permissionRepository) AddAction(ctx context.Context, action *model.Action) error {
	ok, err := exists[model.Permission](r.conn(ctx), "id = ?", action.PermissionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionNotFound
	}
	return r.conn(ctx).Create(action).Error
}

func (r *permissionRepository) DeleteAction(ctx context.Context, permissionID, actionID uint) error {
	result := r.conn(ctx).Where("id = ? AND permission_id = ?", actionID, permissionID).Delete(&model.Action{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrActionNotFound
	}
	return nil
}

func (r *permissionRepository) IDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.conn(ctx).
		Table("role_permissions").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Distinct().
		Pluck("role_permissions.permission_id", &ids).Error
	return ids, err
}

type menuRepository struct {
	base
}

// NewMenuRepository 创建菜单仓库
func NewMenuRepository(db *gorm.DB) MenuRepository {
	return &menuRepository{base{db: db}}
}

func (r *menuRepository) Create(ctx context.Context, menu *model.Menu) error {
	return r.conn(ctx).Create(menu).Error
}

func (r *menuRepository) GetByID(ctx context.Context, id uint) (*model.Menu, error) {
	return first[model.Menu](r.conn(ctx), ErrMenuNotFound, "id = ?", id)
}

func (r *menuRepository) Update(ctx context.Context, id uint, fields Fields) error {
	return update[model.Menu](r.conn(ctx), id, fields, ErrMenuNotFound)
}

func (r *menuRepository) Delete(ctx context.Context, id uint) error {
	result := r.conn(ctx).Delete(&model.Menu{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMenuNotFound
	}
	return nil
}

func (r *menuRepository) List(ctx context.Context) ([]*model.Menu, error) {
	var menus []*model.Menu
	err := r.conn(ctx).Order("sort ASC, id ASC").Find(&menus).Error
	return menus, err
}

func (r *menuRepository) ListVisible(ctx context.Context, permissionIDs []uint) ([]*model.Menu, error) {
	var menus []*model.Menu
	query := r.conn(ctx).Where("enabled = ?", true)
	if len(permissionIDs) > 0 {
		query = query.Where("(permission_id IS NULL OR permission_id IN ?)", permissionIDs)
	} else {
		query = query.Where("permission_id IS NULL")
	}
	err := query.Order("sort ASC, id ASC").Find(&menus).Error
	return menus, err
}

// FirstOrCreate 按名称和路由查找
func (r *menuRepository) FirstOrCreate(ctx context.Context, menu *model.Menu) (*model.Menu, bool, error) {
	existing, err := first[model.Menu](r.conn(ctx), ErrMenuNotFound, "name = ? AND route_path = ?", menu.Name, menu.RoutePath)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrMenuNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, menu); err != nil {
		return nil, false, err
	}
	return menu, true, nil
}
