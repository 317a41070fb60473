package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"go.uber.org/zap"
)

// 认证相关错误
var (
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrAccountDisabled     = errors.New("账户已禁用")
	ErrAccountTypeMismatch = errors.New("同名的其他类型用户已存在")
	ErrAccountInvalid      = errors.New("账户已失效")
)

// AccountValidator 刷新令牌时检查账户是否仍然有效
type AccountValidator interface {
	Validate(ctx context.Context, username string) error
}

// AccountValidatorFunc 函数形式的 AccountValidator
type AccountValidatorFunc func(ctx context.Context, username string) error

// Validate 实现 AccountValidator
func (f AccountValidatorFunc) Validate(ctx context.Context, username string) error {
	return f(ctx, username)
}

// NewUserExistsValidator 默认校验：账户仍然存在即视为有效
// 是否还要拒绝停用、注销的账户尚未确定，部署时可以覆盖
func NewUserExistsValidator(userRepo repository.UserRepository) AccountValidator {
	return AccountValidatorFunc(func(ctx context.Context, username string) error {
		if _, err := userRepo.GetByUsername(ctx, username); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrAccountInvalid
			}
			return err
		}
		return nil
	})
}

// AuthService 认证服务接口
type AuthService interface {
	// PasswordLogin 本地账户密码换取令牌
	PasswordLogin(ctx context.Context, username, plain string, scopes []string) (*TokenData, *model.User, error)
	// Refresh 用刷新令牌换取新令牌对，主体和权限范围保持不变
	Refresh(ctx context.Context, refreshToken string, validator AccountValidator) (*TokenData, error)
}

// authService 认证服务实现
type authService struct {
	userRepo  repository.UserRepository
	tokens    TokenService
	passwords *password.Context
	scopes    *scope.Registry
	logger    *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo repository.UserRepository, tokens TokenService, passwords *password.Context, scopes *scope.Registry, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		userRepo:  userRepo,
		tokens:    tokens,
		passwords: passwords,
		scopes:    scopes,
		logger:    logger,
	}
}

// PasswordLogin 只接受 local 类型账户
func (s *authService) PasswordLogin(ctx context.Context, username, plain string, scopes []string) (*TokenData, *model.User, error) {
	if s.scopes != nil {
		if err := s.scopes.Validate(scopes); err != nil {
			return nil, nil, err
		}
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.IsLocal() {
		return nil, nil, fmt.Errorf("%w: %s", ErrAccountTypeMismatch, user.AccountType)
	}
	if !s.passwords.Verify(plain, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, nil, ErrAccountDisabled
	}

	now := time.Now()
	fields := repository.Fields{"last_login_at": now}
	// 旧算法或参数变化的哈希在登录成功时透明升级
	if s.passwords.NeedsUpdate(user.Password) {
		hash, err := s.passwords.Hash(plain)
		if err != nil {
			return nil, nil, err
		}
		fields["password"] = hash
		s.logger.Info("密码哈希已升级", zap.String("username", user.Username))
	}
	if err := s.userRepo.Update(ctx, user.ID, fields); err != nil {
		return nil, nil, err
	}
	user.LastLoginAt = &now

	data, err := s.tokens.Issue(user.Username, scopes)
	if err != nil {
		return nil, nil, err
	}
	return data, user, nil
}

// Refresh 刷新令牌
func (s *authService) Refresh(ctx context.Context, refreshToken string, validator AccountValidator) (*TokenData, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if validator != nil {
		if err := validator.Validate(ctx, claims.Subject); err != nil {
			return nil, err
		}
	}
	return s.tokens.Issue(claims.Subject, claims.Scopes)
}
