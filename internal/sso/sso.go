// Package sso 心源单点登录客户端
package sso

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNotConfigured 客户端 ID 或密文未配置
	ErrNotConfigured = errors.New("XYSSO_CLIENT_ID、XYSSO_CLIENT_SECRET 没有配置")
	// ErrBadResponse 服务端返回无法解析
	ErrBadResponse = errors.New("单点登录服务返回异常")
)

// ProviderError 单点登录服务返回的业务错误
type ProviderError struct {
	Code int
	Msg  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("单点登录失败(%d): %s", e.Code, e.Msg)
}

// Config 客户端配置
type Config struct {
	ClientID          string
	ClientSecret      string
	AuthorizeEndpoint string
	TokenEndpoint     string
	ProfileEndpoint   string
}

// Credentials 客户端凭据，表单提交的凭据优先于配置
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// UserInfo 目录服务中的用户属性，每个属性都是字符串列表
type UserInfo struct {
	Description        []string `json:"description"`
	TelephoneNumber    []string `json:"telephoneNumber"`
	WhenCreated        []string `json:"whenCreated"`
	MemberOf           []string `json:"memberOf"`
	Name               []string `json:"name"`
	PrimaryGroupID     []string `json:"primaryGroupID"`
	ObjectCategory     []string `json:"objectCategory"`
	LastLogonTimestamp []string `json:"lastLogonTimestamp"`
	UID                []string `json:"uid"`
	Mail               []string `json:"mail"`
	Department         []string `json:"department"`
}

// TokenResponse 令牌端点返回的数据
type TokenResponse struct {
	ErrCode  int                        `json:"errcode"`
	ErrMsg   string                     `json:"errmsg"`
	ClientID string                     `json:"client_id"`
	Username string                     `json:"username"`
	User     map[string]json.RawMessage `json:"user"`
	Admin    []string                   `json:"admin"`
}

// Err 业务错误码不为 0 时返回 ProviderError
func (r *TokenResponse) Err() error {
	if r.ErrCode != 0 {
		return &ProviderError{Code: r.ErrCode, Msg: r.ErrMsg}
	}
	return nil
}

// Info 解析 user 中的属性，值可能是 UserInfo 也可能是字符串
// 优先取以用户名为键的条目
func (r *TokenResponse) Info() *UserInfo {
	keys := make([]string, 0, len(r.User))
	for k := range r.User {
		if k != r.Username {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := r.User[r.Username]; ok {
		keys = append([]string{r.Username}, keys...)
	}

	for _, k := range keys {
		var info UserInfo
		if err := json.Unmarshal(r.User[k], &info); err == nil && (len(info.Name) > 0 || len(info.Mail) > 0) {
			return &info
		}
	}
	return &UserInfo{}
}

// DisplayName 显示名，取 name 属性，缺省为用户名
func (r *TokenResponse) DisplayName() string {
	if info := r.Info(); len(info.Name) > 0 && info.Name[0] != "" {
		return info.Name[0]
	}
	return r.Username
}

// Mail 邮箱
func (r *TokenResponse) Mail() string {
	if info := r.Info(); len(info.Mail) > 0 {
		return info.Mail[0]
	}
	return ""
}

// Client 单点登录客户端
type Client interface {
	// ClientID 配置的客户端 ID
	ClientID() string
	// Configured 配置中是否有客户端 ID 和密文
	Configured() bool
	// AuthorizeURL 生成授权页面地址
	AuthorizeURL(redirectURI string) string
	// Exchange 用授权码换取用户信息
	Exchange(ctx context.Context, code string, cred Credentials) (*TokenResponse, error)
}

type client struct {
	cfg  Config
	http *http.Client
}

// NewClient 创建客户端，httpClient 为空时使用 10 秒超时的默认客户端
func NewClient(cfg Config, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &client{cfg: cfg, http: httpClient}
}

func (c *client) ClientID() string {
	return c.cfg.ClientID
}

func (c *client) Configured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

func (c *client) AuthorizeURL(redirectURI string) string {
	oc := &oauth2.Config{
		ClientID:    c.cfg.ClientID,
		RedirectURL: redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.cfg.AuthorizeEndpoint,
			TokenURL: c.cfg.TokenEndpoint,
		},
	}
	return oc.AuthCodeURL("")
}

// Exchange 令牌端点不是标准 OAuth2：GET 请求，凭据以 base64(id:secret) 放在 auth_string 中
func (c *client) Exchange(ctx context.Context, code string, cred Credentials) (*TokenResponse, error) {
	cred = c.resolve(cred)
	if cred.ClientID == "" || cred.ClientSecret == "" {
		return nil, ErrNotConfigured
	}

	u, err := url.Parse(c.cfg.TokenEndpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: XYSSO_TOKEN_ENDPOINT 无效", ErrNotConfigured)
	}
	q := u.Query()
	q.Set("auth_string", AuthString(cred.ClientID, cred.ClientSecret))
	q.Set("xycode", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求单点登录服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrBadResponse, resp.StatusCode)
	}

	var out TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &out, nil
}

func (c *client) resolve(cred Credentials) Credentials {
	if strings.TrimSpace(cred.ClientID) == "" {
		cred.ClientID = c.cfg.ClientID
	}
	if strings.TrimSpace(cred.ClientSecret) == "" {
		cred.ClientSecret = c.cfg.ClientSecret
	}
	return cred
}

// AuthString base64(client_id:client_secret)
func AuthString(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}
