// Package service 业务服务层
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
)

// 令牌类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeBearer  = "bearer"
)

// 令牌相关错误
var (
	ErrInvalidToken      = errors.New("无效的令牌")
	ErrTokenExpired      = errors.New("令牌已过期")
	ErrWrongTokenType    = errors.New("令牌类型错误")
	ErrUnsupportedMethod = errors.New("不支持的签名算法")
	ErrEmptySecret       = errors.New("签名密钥不能为空")
)

// Payload 令牌声明
type Payload struct {
	jwt.RegisteredClaims
	Type   string   `json:"typ"`
	Scopes []string `json:"scopes"`
}

// HasScope 是否拥有权限范围，all 视为拥有全部
func (p *Payload) HasScope(s scope.Scope) bool {
	return len(scope.Missing(p.Scopes, s)) == 0
}

// TokenData 返回给调用方的令牌对
type TokenData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ScopeError 缺少权限范围
type ScopeError struct {
	Missing []string
}

func (e *ScopeError) Error() string {
	return "权限不足，缺少: " + strings.Join(e.Missing, " ")
}

// TokenService 令牌服务接口
type TokenService interface {
	// Issue 为用户签发访问令牌和刷新令牌
	Issue(username string, scopes []string) (*TokenData, error)
	// Decode 校验签名、算法与有效期
	Decode(tokenString string) (*Payload, error)
	// ValidateAccess 校验访问令牌及所需权限范围
	ValidateAccess(tokenString string, required ...scope.Scope) (*Payload, error)
	// ValidateRefresh 校验刷新令牌
	ValidateRefresh(tokenString string) (*Payload, error)
}

// TokenServiceConfig 令牌服务配置
type TokenServiceConfig struct {
	Secret        string
	Algorithm     string // HS256 / HS384 / HS512
	Issuer        string
	Audience      string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	// Now 测试时注入时钟
	Now func() time.Time
}

// tokenService 令牌服务实现
type tokenService struct {
	secret        []byte
	method        jwt.SigningMethod
	issuer        string
	audience      string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
	parser        *jwt.Parser
}

// NewTokenService 创建令牌服务
func NewTokenService(cfg *TokenServiceConfig) (TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}

	alg := strings.ToUpper(cfg.Algorithm)
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, cfg.Algorithm)
	}

	s := &tokenService{
		secret:        []byte(cfg.Secret),
		method:        method,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		now:           cfg.Now,
	}
	if s.accessExpiry <= 0 {
		s.accessExpiry = DefaultAccessExpiry
	}
	if s.refreshExpiry <= 0 {
		s.refreshExpiry = DefaultRefreshExpiry
	}
	if s.now == nil {
		s.now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	s.parser = jwt.NewParser(opts...)

	return s, nil
}

// Issue 签发令牌对，两个令牌主体与权限范围相同，各自独立的 jti 和过期时间
func (s *tokenService) Issue(username string, scopes []string) (*TokenData, error) {
	if scopes == nil {
		scopes = []string{}
	}

	access, err := s.sign(username, scopes, TokenTypeAccess, s.accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(username, scopes, TokenTypeRefresh, s.refreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenData{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
	}, nil
}

func (s *tokenService) sign(subject string, scopes []string, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Payload{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Type:   typ,
		Scopes: scopes,
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Decode 解析令牌
func (s *tokenService) Decode(tokenString string) (*Payload, error) {
	token, err := s.parser.ParseWithClaims(tokenString, &Payload{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Payload)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccess 校验访问令牌
func (s *tokenService) ValidateAccess(tokenString string, required ...scope.Scope) (*Payload, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if missing := scope.Missing(claims.Scopes, required...); len(missing) > 0 {
		return nil, &ScopeError{Missing: missing}
	}
	return claims, nil
}

// ValidateRefresh 校验刷新令牌
func (s *tokenService) ValidateRefresh(tokenString string) (*Payload, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// 令牌有效期默认值
const (
	DefaultAccessExpiry  = 30 * time.Minute
	DefaultRefreshExpiry = 43200 * time.Minute
)
