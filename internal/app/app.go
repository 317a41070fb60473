// Package app 应用对象与安装器注册
package app

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/config"
	"github.com/pu-ac-cn/qual-backend/internal/metrics"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 共享的应用对象，安装器在其上挂载路由、模型和权限范围
type App struct {
	Config    *config.Config
	Engine    *gin.Engine
	API       *gin.RouterGroup
	Scopes    *scope.Registry
	Container *Container
	Logger    *zap.Logger
	DB        *gorm.DB
	Metrics   *metrics.Metrics

	mu     sync.Mutex
	models []any
}

// New 创建应用对象，API 路由组以 API_PATH 为前缀
func New(cfg *config.Config, engine *gin.Engine, db *gorm.DB, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Config:    cfg,
		Engine:    engine,
		API:       engine.Group(cfg.APIPath),
		Scopes:    scope.NewRegistry(),
		Container: NewContainer(),
		Logger:    logger,
		DB:        db,
		Metrics:   metrics.New(nil),
	}
}

// RegisterModels 登记需要迁移的模型
func (a *App) RegisterModels(models ...any) {
	a.mu.Lock()
	a.models = append(a.models, models...)
	a.mu.Unlock()
}

// Models 已登记的模型
func (a *App) Models() []any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]any(nil), a.models...)
}

// Installer 功能模块安装函数
type Installer func(a *App) error

type entry struct {
	name    string
	install Installer
}

// Builder 安装器注册表
// 按注册顺序执行安装器，再应用依赖覆盖，最后冻结权限范围注册表
type Builder struct {
	installers []entry
	overrides  []override
}

type override struct {
	key   Key
	value any
}

// NewBuilder 创建安装器注册表
func NewBuilder() *Builder {
	return &Builder{}
}

// Register 注册安装器，同名重复注册替换函数但保留原位置
func (b *Builder) Register(name string, install Installer) *Builder {
	for i := range b.installers {
		if b.installers[i].name == name {
			b.installers[i].install = install
			return b
		}
	}
	b.installers = append(b.installers, entry{name: name, install: install})
	return b
}

// Override 登记依赖覆盖
func (b *Builder) Override(key Key, value any) *Builder {
	b.overrides = append(b.overrides, override{key: key, value: value})
	return b
}

// Names 已注册安装器名称，按执行顺序
func (b *Builder) Names() []string {
	names := make([]string, len(b.installers))
	for i, e := range b.installers {
		names[i] = e.name
	}
	return names
}

// Build 执行全部安装器
func (b *Builder) Build(a *App) error {
	for _, e := range b.installers {
		if err := e.install(a); err != nil {
			return fmt.Errorf("安装 %s 失败: %w", e.name, err)
		}
		a.Logger.Debug("模块已安装", zap.String("module", e.name))
	}
	for _, o := range b.overrides {
		a.Container.Override(o.key, o.value)
	}
	a.Scopes.Freeze()
	return nil
}
