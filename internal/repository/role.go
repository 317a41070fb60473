package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"gorm.io/gorm"
)

var (
	ErrRoleNotFound  = errors.New("角色不存在")
	ErrRoleKeyExists = errors.New("角色编号已存在")
)

// RoleRepository 角色仓库接口
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	GetByID(ctx context.Context, id uint) (*model.Role, error)
	GetByKey(ctx context.Context, key string) (*model.Role, error)
	Update(ctx context.Context, id uint, fields Fields) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page *Pagination) ([]*model.Role, int64, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	FirstOrCreate(ctx context.Context, role *model.Role) (*model.Role, bool, error)
	AddMember(ctx context.Context, id, userID uint) error
	RemoveMember(ctx context.Context, id, userID uint) error
	ReplacePermissions(ctx context.Context, id uint, permissionIDs []uint) error
	// ListByUser 用户拥有的角色
	ListByUser(ctx context.Context, userID uint) ([]*model.Role, error)
}

// roleRepository 角色仓库实现
type roleRepository struct {
	base
}

// NewRoleRepository 创建角色仓库
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{base{db: db}}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return r.conn(ctx).Create(role).Error
}

func (r *roleRepository) GetByID(ctx context.Context, id uint) (*model.Role, error) {
	query := r.conn(ctx).Preload("Permissions").Preload("Members")
	return first[model.Role](query, ErrRoleNotFound, "id = ?", id)
}

func (r *roleRepository) GetByKey(ctx context.Context, key string) (*model.Role, error) {
	return first[model.Role](r.conn(ctx), ErrRoleNotFound, byKey(key))
}

func (r *roleRepository) Update(ctx context.Context, id uint, fields Fields) error {
	return update[model.Role](r.conn(ctx), id, fields, ErrRoleNotFound)
}

// Delete 删除角色，同时清理成员和权限关联
func (r *roleRepository) Delete(ctx context.Context, id uint) error {
	role := &model.Role{BaseModel: model.BaseModel{ID: id}}
	result := r.conn(ctx).Select("Members", "Permissions").Delete(role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *roleRepository) List(ctx context.Context, page *Pagination) ([]*model.Role, int64, error) {
	return paginate[model.Role](r.conn(ctx).Model(&model.Role{}), page, "sort ASC, id ASC")
}

func (r *roleRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	return exists[model.Role](r.conn(ctx), byKey(key))
}

func (r *roleRepository) FirstOrCreate(ctx context.Context, role *model.Role) (*model.Role, bool, error) {
	existing, err := r.GetByKey(ctx, role.Key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, role); err != nil {
		return nil, false, err
	}
	return role, true, nil
}

func (r *roleRepository) AddMember(ctx context.Context, id, userID uint) error {
	role, err := first[model.Role](r.conn(ctx), ErrRoleNotFound, "id = ?", id)
	if err != nil {
		return err
	}
	user, err := first[model.User](r.conn(ctx), ErrUserNotFound, "id = ?", userID)
	if err != nil {
		return err
	}
	return r.conn(ctx).Model(role).Association("Members").Append(user)
}

func (r *roleRepository) RemoveMember(ctx context.Context, id, userID uint) error {
	role, err := first[model.Role](r.conn(ctx), ErrRoleNotFound, "id = ?", id)
	if err != nil {
		return err
	}
	return r.conn(ctx).Model(role).Association("Members").Delete(&model.User{BaseModel: model.BaseModel{ID: userID}})
}

// ReplacePermissions 用给定权限替换角色现有权限
func (r *roleRepository) ReplacePermissions(ctx context.Context, id uint, permissionIDs []uint) error {
	role, err := first[model.Role](r.conn(ctx), ErrRoleNotFound, "id = ?", id)
	if err != nil {
		return err
	}

	var perms []model.Permission
	if len(permissionIDs) > 0 {
		if err := r.conn(ctx).Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
			return err
		}
		if len(perms) != len(uniqueIDs(permissionIDs)) {
			return ErrPermissionNotFound
		}
	}
	return r.conn(ctx).Model(role).Association("Permissions").Replace(perms)
}

func (r *roleRepository) ListByUser(ctx context.Context, userID uint) ([]*model.Role, error) {
	var roles []*model.Role
	err := r.conn(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.sort ASC, roles.id ASC").
		Find(&roles).Error
	return roles, err
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
