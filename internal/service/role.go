package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
)

var (
	ErrRoleKeyEmpty     = errors.New("角色编号不能为空")
	ErrRoleNameEmpty    = errors.New("角色名称不能为空")
	ErrDataScopeInvalid = errors.New("数据权限范围无效")
)

// RoleInput 角色参数，指针字段为 nil 时不修改
type RoleInput struct {
	Key       string
	Name      string
	Sort      *int
	Admin     *bool
	DataScope *model.DataScope
	Comment   *string
}

// RoleService 角色服务接口
type RoleService interface {
	Create(ctx context.Context, in *RoleInput) (*model.Role, error)
	GetByID(ctx context.Context, id uint) (*model.Role, error)
	Update(ctx context.Context, id uint, in *RoleInput) (*model.Role, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page *repository.Pagination) ([]*model.Role, int64, error)

	AddMember(ctx context.Context, id, userID uint) error
	RemoveMember(ctx context.Context, id, userID uint) error
	// SetPermissions 整体替换角色权限
	SetPermissions(ctx context.Context, id uint, permissionIDs []uint) (*model.Role, error)
	// Grant 按用户名和角色编号授予角色
	Grant(ctx context.Context, username, roleKey string) error
}

type roleService struct {
	repo     repository.RoleRepository
	userRepo repository.UserRepository
}

// NewRoleService 创建角色服务
func NewRoleService(repo repository.RoleRepository, userRepo repository.UserRepository) RoleService {
	return &roleService{repo: repo, userRepo: userRepo}
}

func (s *roleService) Create(ctx context.Context, in *RoleInput) (*model.Role, error) {
	role := &model.Role{
		Key:  strings.TrimSpace(in.Key),
		Name: strings.TrimSpace(in.Name),
		Sort: 1,
	}
	if role.Key == "" {
		return nil, ErrRoleKeyEmpty
	}
	if role.Name == "" {
		return nil, ErrRoleNameEmpty
	}
	if in.Sort != nil {
		role.Sort = *in.Sort
	}
	if in.Admin != nil {
		role.Admin = *in.Admin
	}
	if in.DataScope != nil {
		if !in.DataScope.Valid() {
			return nil, ErrDataScopeInvalid
		}
		role.DataScope = *in.DataScope
	}
	if in.Comment != nil {
		role.Comment = *in.Comment
	}

	exists, err := s.repo.ExistsByKey(ctx, role.Key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrRoleKeyExists
	}

	if err := s.repo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) GetByID(ctx context.Context, id uint) (*model.Role, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *roleService) Update(ctx context.Context, id uint, in *RoleInput) (*model.Role, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := repository.Fields{}
	if key := strings.TrimSpace(in.Key); key != "" && key != current.Key {
		exists, err := s.repo.ExistsByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, repository.ErrRoleKeyExists
		}
		fields["key"] = key
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		fields["name"] = name
	}
	if in.Sort != nil {
		fields["sort"] = *in.Sort
	}
	if in.Admin != nil {
		fields["admin"] = *in.Admin
	}
	if in.DataScope != nil {
		if !in.DataScope.Valid() {
			return nil, ErrDataScopeInvalid
		}
		fields["data_scope"] = *in.DataScope
	}
	if in.Comment != nil {
		fields["comment"] = *in.Comment
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *roleService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *roleService) List(ctx context.Context, page *repository.Pagination) ([]*model.Role, int64, error) {
	return s.repo.List(ctx, page)
}

func (s *roleService) AddMember(ctx context.Context, id, userID uint) error {
	return s.repo.AddMember(ctx, id, userID)
}

func (s *roleService) RemoveMember(ctx context.Context, id, userID uint) error {
	return s.repo.RemoveMember(ctx, id, userID)
}

func (s *roleService) SetPermissions(ctx context.Context, id uint, permissionIDs []uint) (*model.Role, error) {
	if err := s.repo.ReplacePermissions(ctx, id, permissionIDs); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *roleService) Grant(ctx context.Context, username, roleKey string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	role, err := s.repo.GetByKey(ctx, roleKey)
	if err != nil {
		return err
	}
	return s.repo.AddMember(ctx, role.ID, user.ID)
}
