// Package password 密码哈希管理
//
// Context 相当于一个哈希层：同时只启用一种算法（列表第一个），
// 其余算法仅用于校验旧密码，并可通过 NeedsUpdate 判断是否需要迁移。
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// 支持的哈希算法标识
const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"
)

var (
	ErrNoScheme      = errors.New("没有配置哈希算法")
	ErrUnknownScheme = errors.New("不支持的哈希算法")
)

// Scheme 哈希算法
type Scheme interface {
	// Name 算法标识
	Name() string
	// Identify 判断哈希串是否属于该算法
	Identify(hash string) bool
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	// NeedsUpdate 参数（如 cost）与当前配置不一致时返回 true
	NeedsUpdate(hash string) bool
}

// Context 密码哈希上下文
type Context struct {
	schemes []Scheme
}

// NewContext 创建哈希上下文，第一个算法为当前启用算法，其余视为已弃用
func NewContext(schemes ...Scheme) (*Context, error) {
	if len(schemes) == 0 {
		return nil, ErrNoScheme
	}
	return &Context{schemes: schemes}, nil
}

// Default 默认上下文：bcrypt 启用，argon2id 仅用于校验
func Default() *Context {
	return &Context{schemes: []Scheme{Bcrypt(bcrypt.DefaultCost), Argon2id()}}
}

// Active 当前启用的算法
func (c *Context) Active() string {
	return c.schemes[0].Name()
}

// Hash 使用启用算法哈希明文密码
func (c *Context) Hash(plain string) (string, error) {
	return c.schemes[0].Hash(plain)
}

// Verify 校验密码，哈希串格式错误或算法不识别时返回 false
func (c *Context) Verify(plain, hash string) bool {
	s := c.identify(hash)
	if s == nil {
		return false
	}
	return s.Verify(plain, hash)
}

// NeedsUpdate 哈希串使用的是弃用算法或参数过期时返回 true
func (c *Context) NeedsUpdate(hash string) bool {
	s := c.identify(hash)
	if s == nil {
		return true
	}
	if s.Name() != c.Active() {
		return true
	}
	return s.NeedsUpdate(hash)
}

// Identify 返回哈希串对应的算法标识
func (c *Context) Identify(hash string) (string, error) {
	s := c.identify(hash)
	if s == nil {
		return "", ErrUnknownScheme
	}
	return s.Name(), nil
}

func (c *Context) identify(hash string) Scheme {
	for _, s := range c.schemes {
		if s.Identify(hash) {
			return s
		}
	}
	return nil
}

var defaultContext = Default()

// Hash 使用默认上下文哈希
func Hash(plain string) (string, error) {
	return defaultContext.Hash(plain)
}

// Verify 使用默认上下文校验
func Verify(plain, hash string) bool {
	return defaultContext.Verify(plain, hash)
}

// NeedsUpdate 使用默认上下文判断是否需要重新哈希
func NeedsUpdate(hash string) bool {
	return defaultContext.NeedsUpdate(hash)
}

type bcryptScheme struct {
	cost int
}

// Bcrypt 创建 bcrypt 算法，明文超过 72 字节的部分会被忽略
func Bcrypt(cost int) Scheme {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptScheme{cost: cost}
}

func (s *bcryptScheme) Name() string { return SchemeBcrypt }

func (s *bcryptScheme) Identify(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func (s *bcryptScheme) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (s *bcryptScheme) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func (s *bcryptScheme) NeedsUpdate(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != s.cost
}

// argon2id 参数
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

type argon2Scheme struct{}

// Argon2id 创建 argon2id 算法，哈希格式为 $argon2id$v=19$m=...,t=...,p=...$salt$key
func Argon2id() Scheme {
	return argon2Scheme{}
}

func (argon2Scheme) Name() string { return SchemeArgon2id }

func (argon2Scheme) Identify(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}

func (argon2Scheme) Hash(plain string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (argon2Scheme) Verify(plain, hash string) bool {
	p, salt, key, err := decodeArgon2(hash)
	if err != nil {
		return false
	}
	other := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1
}

func (argon2Scheme) NeedsUpdate(hash string) bool {
	p, _, _, err := decodeArgon2(hash)
	if err != nil {
		return true
	}
	return p.time != argonTime || p.memory != argonMemory || p.threads != argonThreads
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodeArgon2(hash string) (*argonParams, []byte, []byte, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != SchemeArgon2id {
		return nil, nil, nil, ErrUnknownScheme
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, err
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrUnknownScheme
	}
	p := &argonParams{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, nil, nil, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, err
	}
	if len(key) == 0 {
		return nil, nil, nil, ErrUnknownScheme
	}
	return p, salt, key, nil
}
