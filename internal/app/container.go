package app

import (
	"errors"
	"fmt"
	"sync"
)

// Key 依赖标识
type Key string

// ErrDependencyMissing 依赖未提供
var ErrDependencyMissing = errors.New("依赖未提供")

// Container 依赖容器
// Provide 提供默认实现，Override 覆盖实现（测试或部署替换）；Resolve 时覆盖优先
type Container struct {
	mu        sync.RWMutex
	providers map[Key]any
	overrides map[Key]any
}

// NewContainer 创建依赖容器
func NewContainer() *Container {
	return &Container{
		providers: make(map[Key]any),
		overrides: make(map[Key]any),
	}
}

// Provide 注册默认实现
func (c *Container) Provide(key Key, value any) {
	c.mu.Lock()
	c.providers[key] = value
	c.mu.Unlock()
}

// Override 覆盖实现
func (c *Container) Override(key Key, value any) {
	c.mu.Lock()
	c.overrides[key] = value
	c.mu.Unlock()
}

// Resolve 解析依赖
func (c *Container) Resolve(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.overrides[key]; ok {
		return v, true
	}
	v, ok := c.providers[key]
	return v, ok
}

// Dependency 按类型解析依赖
func Dependency[T any](c *Container, key Key) (T, error) {
	var zero T
	v, ok := c.Resolve(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrDependencyMissing, key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("依赖 %s 类型不匹配: %T", key, v)
	}
	return t, nil
}
