// Package scope 权限范围定义与注册表
package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Scope 权限范围标识
type Scope string

// 已知权限范围
const (
	All             Scope = "all"
	UserRead        Scope = "user:read"
	UserWrite       Scope = "user:write"
	DepartmentRead  Scope = "department:read"
	DepartmentWrite Scope = "department:write"
	RoleRead        Scope = "role:read"
	RoleWrite       Scope = "role:write"
	PermissionRead  Scope = "permission:read"
	PermissionWrite Scope = "permission:write"
	DictRead        Scope = "dict:read"
	DictWrite       Scope = "dict:write"
)

// Known 全部已定义的权限范围
var Known = []Scope{
	All,
	UserRead, UserWrite,
	DepartmentRead, DepartmentWrite,
	RoleRead, RoleWrite,
	PermissionRead, PermissionWrite,
	DictRead, DictWrite,
}

// 注册表错误
var (
	ErrFrozen       = errors.New("权限范围注册表已冻结")
	ErrUndefined    = errors.New("未定义的权限范围")
	ErrUnknownScope = errors.New("未注册的权限范围")
)

func (s Scope) String() string {
	return string(s)
}

// Defined 是否为已定义的权限范围
func (s Scope) Defined() bool {
	for _, k := range Known {
		if k == s {
			return true
		}
	}
	return false
}

// Registry 权限范围 -> 描述
// 只增不删，重复注册只覆盖描述；Freeze 之后只读
type Registry struct {
	mu     sync.RWMutex
	items  map[Scope]string
	frozen bool
}

// NewRegistry 创建注册表，默认包含 all
func NewRegistry() *Registry {
	return &Registry{
		items: map[Scope]string{All: "全范围权限"},
	}
}

// Register 注册权限范围
func (r *Registry) Register(s Scope, description string) error {
	if !s.Defined() {
		return fmt.Errorf("%w: %s", ErrUndefined, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: %s", ErrFrozen, s)
	}
	r.items[s] = description
	return nil
}

// MustRegister 注册失败时 panic，仅用于安装阶段
func (r *Registry) MustRegister(s Scope, description string) {
	if err := r.Register(s, description); err != nil {
		panic(err)
	}
}

// Freeze 冻结注册表
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen 是否已冻结
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Description 获取描述
func (r *Registry) Description(s Scope) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[s]
	return d, ok
}

// Map 返回副本，键为权限范围字符串
func (r *Registry) Map() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := make(map[string]string, len(r.items))
	for k, v := range r.items {
		m[string(k)] = v
	}
	return m
}

// Len 已注册数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Validate 检查权限范围是否都已注册
func (r *Registry) Validate(scopes []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var unknown []string
	for _, s := range scopes {
		if _, ok := r.items[Scope(s)]; !ok {
			unknown = append(unknown, s)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownScope, strings.Join(unknown, " "))
	}
	return nil
}

// Strings 转为字符串切片
func Strings(scopes ...Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

// Missing 返回 granted 中缺少的 required 权限范围
// granted 包含 all 时视为拥有全部权限
func Missing(granted []string, required ...Scope) []string {
	have := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		if g == string(All) {
			return nil
		}
		have[g] = struct{}{}
	}

	var missing []string
	for _, r := range required {
		if _, ok := have[string(r)]; !ok {
			missing = append(missing, string(r))
		}
	}
	return missing
}

// Parse 解析空格分隔的权限范围，OAuth2 表单格式
func Parse(raw string) []string {
	return strings.Fields(raw)
}
