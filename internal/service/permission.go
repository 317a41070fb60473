package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
)

var (
	ErrPermissionKeyEmpty  = errors.New("权限编号不能为空")
	ErrPermissionNameEmpty = errors.New("权限名称不能为空")
	ErrActionInvalid       = errors.New("操作名称和权限值不能为空")
	ErrActionMethodInvalid = errors.New("请求方式无效")
	ErrMenuNameEmpty       = errors.New("菜单名称不能为空")
)

var actionMethods = map[string]struct{}{
	"":                 {},
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

// PermissionInput 权限参数
type PermissionInput struct {
	Key      string
	Name     string
	Sort     *int
	ParentID *uint
}

// ActionInput 操作参数
type ActionInput struct {
	Name   string
	Value  string
	API    string
	Method string
}

// MenuInput 菜单参数，指针字段为 nil 时不修改
// PermissionID 指向 0 表示解除权限绑定
type MenuInput struct {
	Name          string
	Icon          *string
	IsLink        *bool
	RoutePath     *string
	Component     *string
	ComponentName *string
	Enabled       *bool
	Hidden        *bool
	Sort          *int
	PermissionID  *uint
}

// PermissionService 权限与菜单服务接口
type PermissionService interface {
	Create(ctx context.Context, in *PermissionInput) (*model.Permission, error)
	GetByID(ctx context.Context, id uint) (*model.Permission, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page *repository.Pagination) ([]*model.Permission, int64, error)
	AddAction(ctx context.Context, permissionID uint, in *ActionInput) (*model.Action, error)
	DeleteAction(ctx context.Context, permissionID, actionID uint) error

	CreateMenu(ctx context.Context, in *MenuInput) (*model.Menu, error)
	GetMenu(ctx context.Context, id uint) (*model.Menu, error)
	UpdateMenu(ctx context.Context, id uint, in *MenuInput) (*model.Menu, error)
	DeleteMenu(ctx context.Context, id uint) error
	ListMenus(ctx context.Context) ([]*model.Menu, error)
}

type permissionService struct {
	repo     repository.PermissionRepository
	menuRepo repository.MenuRepository
}

// NewPermissionService 创建权限服务
func NewPermissionService(repo repository.PermissionRepository, menuRepo repository.MenuRepository) PermissionService {
	return &permissionService{repo: repo, menuRepo: menuRepo}
}

func (s *permissionService) Create(ctx context.Context, in *PermissionInput) (*model.Permission, error) {
	perm := &model.Permission{
		Key:  strings.TrimSpace(in.Key),
		Name: strings.TrimSpace(in.Name),
		Sort: 1,
	}
	if perm.Key == "" {
		return nil, ErrPermissionKeyEmpty
	}
	if perm.Name == "" {
		return nil, ErrPermissionNameEmpty
	}
	if in.Sort != nil {
		perm.Sort = *in.Sort
	}

	exists, err := s.repo.ExistsByKey(ctx, perm.Key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrPermissionKeyExists
	}

	if in.ParentID != nil && *in.ParentID != 0 {
		if _, err := s.repo.GetByID(ctx, *in.ParentID); err != nil {
			return nil, err
		}
		perm.ParentID = in.ParentID
	}

	if err := s.repo.Create(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *permissionService) GetByID(ctx context.Context, id uint) (*model.Permission, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *permissionService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *permissionService) List(ctx context.Context, page *repository.Pagination) ([]*model.Permission, int64, error) {
	return s.repo.List(ctx, page)
}

func (s *permissionService) AddAction(ctx context.Context, permissionID uint, in *ActionInput) (*model.Action, error) {
	action := &model.Action{
		Name:         strings.TrimSpace(in.Name),
		Value:        strings.TrimSpace(in.Value),
		API:          strings.TrimSpace(in.API),
		Method:       strings.ToUpper(strings.TrimSpace(in.Method)),
		PermissionID: permissionID,
	}
	if action.Name == "" || action.Value == "" {
		return nil, ErrActionInvalid
	}
	if _, ok := actionMethods[action.Method]; !ok {
		return nil, ErrActionMethodInvalid
	}
	if err := s.repo.AddAction(ctx, action); err != nil {
		return nil, err
	}
	return action, nil
}

func (s *permissionService) DeleteAction(ctx context.Context, permissionID, actionID uint) error {
	return s.repo.DeleteAction(ctx, permissionID, actionID)
}

// 菜单

func (s *permissionService) CreateMenu(ctx context.Context, in *MenuInput) (*model.Menu, error) {
	menu := &model.Menu{
		Name:    strings.TrimSpace(in.Name),
		Enabled: true,
		Sort:    1,
	}
	if menu.Name == "" {
		return nil, ErrMenuNameEmpty
	}
	if in.Icon != nil {
		menu.Icon = *in.Icon
	}
	if in.IsLink != nil {
		menu.IsLink = *in.IsLink
	}
	if in.RoutePath != nil {
		menu.RoutePath = *in.RoutePath
	}
	if in.Component != nil {
		menu.Component = *in.Component
	}
	if in.ComponentName != nil {
		menu.ComponentName = *in.ComponentName
	}
	if in.Enabled != nil {
		menu.Enabled = *in.Enabled
	}
	if in.Hidden != nil {
		menu.Hidden = *in.Hidden
	}
	if in.Sort != nil {
		menu.Sort = *in.Sort
	}
	if in.PermissionID != nil && *in.PermissionID != 0 {
		if _, err := s.repo.GetByID(ctx, *in.PermissionID); err != nil {
			return nil, err
		}
		menu.PermissionID = in.PermissionID
	}

	if err := s.menuRepo.Create(ctx, menu); err != nil {
		return nil, err
	}
	return menu, nil
}

func (s *permissionService) GetMenu(ctx context.Context, id uint) (*model.Menu, error) {
	return s.menuRepo.GetByID(ctx, id)
}

func (s *permissionService) UpdateMenu(ctx context.Context, id uint, in *MenuInput) (*model.Menu, error) {
	fields := repository.Fields{}
	if name := strings.TrimSpace(in.Name); name != "" {
		fields["name"] = name
	}
	if in.Icon != nil {
		fields["icon"] = *in.Icon
	}
	if in.IsLink != nil {
		fields["is_link"] = *in.IsLink
	}
	if in.RoutePath != nil {
		fields["route_path"] = *in.RoutePath
	}
	if in.Component != nil {
		fields["component"] = *in.Component
	}
	if in.ComponentName != nil {
		fields["component_name"] = *in.ComponentName
	}
	if in.Enabled != nil {
		fields["enabled"] = *in.Enabled
	}
	if in.Hidden != nil {
		fields["hidden"] = *in.Hidden
	}
	if in.Sort != nil {
		fields["sort"] = *in.Sort
	}
	if in.PermissionID != nil {
		if *in.PermissionID == 0 {
			fields["permission_id"] = nil
		} else {
			if _, err := s.repo.GetByID(ctx, *in.PermissionID); err != nil {
				return nil, err
			}
			fields["permission_id"] = *in.PermissionID
		}
	}

	if _, err := s.menuRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.menuRepo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.menuRepo.GetByID(ctx, id)
}

func (s *permissionService) DeleteMenu(ctx context.Context, id uint) error {
	return s.menuRepo.Delete(ctx, id)
}

func (s *permissionService) ListMenus(ctx context.Context) ([]*model.Menu, error) {
	return s.menuRepo.List(ctx)
}
