package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
)

var (
	ErrUsernameEmpty     = errors.New("用户名不能为空")
	ErrUsernameInvalid   = errors.New("用户名只能包含字母、数字、下划线、点和短横线")
	ErrUsernameTooShort  = errors.New("用户名长度不能少于 3 个字符")
	ErrMailInvalid       = errors.New("邮箱格式无效")
	ErrPasswordEmpty     = errors.New("密码不能为空")
	ErrPasswordTooShort  = errors.New("密码长度不能少于 6 个字符")
	ErrPasswordIncorrect = errors.New("原密码不正确")
	ErrPasswordUnchanged = errors.New("新密码不能与原密码相同")
	ErrPasswordNotLocal  = errors.New("非本地账户不能修改密码")
	ErrUserExists        = errors.New("用户名已存在")
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
	mailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// RegisterInput 注册参数
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Mail        string
}

// ProfileInput 个人资料，nil 字段不修改
type ProfileInput struct {
	DisplayName *string
	Mail        *string
}

type UserService interface {
	Register(ctx context.Context, in *RegisterInput) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error)
	UpdateProfile(ctx context.Context, username string, in *ProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
	// Menus 用户可见的菜单，管理员角色可见全部启用菜单
	Menus(ctx context.Context, username string) ([]*model.Menu, error)
}

type userService struct {
	userRepo  repository.UserRepository
	roleRepo  repository.RoleRepository
	permRepo  repository.PermissionRepository
	menuRepo  repository.MenuRepository
	passwords *password.Context
}

func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	permRepo repository.PermissionRepository,
	menuRepo repository.MenuRepository,
	passwords *password.Context,
) UserService {
	return &userService{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		permRepo:  permRepo,
		menuRepo:  menuRepo,
		passwords: passwords,
	}
}

// Register 注册本地账户，用户名唯一性在创建前检查
func (s *userService) Register(ctx context.Context, in *RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Mail != "" && !mailRegex.MatchString(in.Mail) {
		return nil, ErrMailInvalid
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = in.Username
	}
	user := &model.User{
		Username:    in.Username,
		Password:    hash,
		DisplayName: displayName,
		Mail:        in.Mail,
		AccountType: model.AccountLocal,
		Status:      model.StatusActive,
		IsStaff:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, ErrUsernameEmpty
	}
	return s.userRepo.GetByUsername(ctx, username)
}

func (s *userService) List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	return s.userRepo.List(ctx, filter, page)
}

func (s *userService) UpdateProfile(ctx context.Context, username string, in *ProfileInput) (*model.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	fields := repository.Fields{}
	if in.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.Mail != nil {
		if *in.Mail != "" && !mailRegex.MatchString(*in.Mail) {
			return nil, ErrMailInvalid
		}
		fields["mail"] = *in.Mail
	}
	if err := s.userRepo.Update(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, user.ID)
}

func (s *userService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !user.IsLocal() {
		return ErrPasswordNotLocal
	}
	if !s.passwords.Verify(oldPassword, user.Password) {
		return ErrPasswordIncorrect
	}
	if oldPassword == newPassword {
		return ErrPasswordUnchanged
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}
	return s.userRepo.Update(ctx, user.ID, repository.Fields{"password": hash})
}

func (s *userService) Menus(ctx context.Context, username string) ([]*model.Menu, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	roles, err := s.roleRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Admin {
			menus, err := s.menuRepo.List(ctx)
			if err != nil {
				return nil, err
			}
			return enabledMenus(menus), nil
		}
	}

	ids, err := s.permRepo.IDsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.menuRepo.ListVisible(ctx, ids)
}

func enabledMenus(menus []*model.Menu) []*model.Menu {
	out := menus[:0]
	for _, m := range menus {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

func validateUsername(username string) error {
	if username == "" {
		return ErrUsernameEmpty
	}
	if len(username) < 3 {
		return ErrUsernameTooShort
	}
	if !usernameRegex.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

func validatePassword(plain string) error {
	if plain == "" {
		return ErrPasswordEmpty
	}
	if len(plain) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}
