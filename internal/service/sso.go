package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/sso"
	"go.uber.org/zap"
)

// ErrSSOUsernameEmpty 单点登录服务没有返回用户名
var ErrSSOUsernameEmpty = errors.New("单点登录服务未返回用户名")

// SSOService 单点登录服务接口
type SSOService interface {
	// UserInfo 用授权码换取用户信息，不创建本地账户
	UserInfo(ctx context.Context, client sso.Client, code string, cred sso.Credentials) (*sso.TokenResponse, error)
	// Login 用授权码登录：查找或创建 xysso 账户并签发令牌，scopes 为空时使用 all
	Login(ctx context.Context, client sso.Client, code string, cred sso.Credentials, scopes []string) (*TokenData, *model.User, error)
}

type ssoService struct {
	userRepo repository.UserRepository
	tokens   TokenService
	logger   *zap.Logger
}

// NewSSOService 创建单点登录服务
func NewSSOService(userRepo repository.UserRepository, tokens TokenService, logger *zap.Logger) SSOService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ssoService{userRepo: userRepo, tokens: tokens, logger: logger}
}

func (s *ssoService) UserInfo(ctx context.Context, client sso.Client, code string, cred sso.Credentials) (*sso.TokenResponse, error) {
	resp, err := client.Exchange(ctx, code, cred)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ssoService) Login(ctx context.Context, client sso.Client, code string, cred sso.Credentials, scopes []string) (*TokenData, *model.User, error) {
	if !client.Configured() {
		return nil, nil, sso.ErrNotConfigured
	}

	resp, err := s.UserInfo(ctx, client, code, cred)
	if err != nil {
		return nil, nil, err
	}
	username := strings.TrimSpace(resp.Username)
	if username == "" {
		return nil, nil, ErrSSOUsernameEmpty
	}

	user, err := s.findOrCreate(ctx, username, resp)
	if err != nil {
		return nil, nil, err
	}

	// 单点登录回调不会带回 scope 参数
	if len(scopes) == 0 {
		scopes = []string{string(scope.All)}
	}

	data, err := s.tokens.Issue(user.Username, scopes)
	if err != nil {
		return nil, nil, err
	}
	return data, user, nil
}

func (s *ssoService) findOrCreate(ctx context.Context, username string, resp *sso.TokenResponse) (*model.User, error) {
	now := time.Now()

	user, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if user.AccountType != model.AccountXYSSO {
			return nil, fmt.Errorf("%w: %s", ErrAccountTypeMismatch, user.AccountType)
		}
		if err := s.userRepo.Update(ctx, user.ID, repository.Fields{"last_login_at": now}); err != nil {
			return nil, err
		}
		user.LastLoginAt = &now
		return user, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, err
	}

	user = &model.User{
		Username:    username,
		DisplayName: resp.DisplayName(),
		Mail:        resp.Mail(),
		AccountType: model.AccountXYSSO,
		Status:      model.StatusActive,
		IsStaff:     true,
		LastLoginAt: &now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("单点登录创建用户", zap.String("username", username))
	return user, nil
}
