// Package bootstrap 服务和命令行工具共用的装配过程
package bootstrap

import (
	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/config"
	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/handler"
	"github.com/pu-ac-cn/qual-backend/internal/logger"
	"github.com/pu-ac-cn/qual-backend/internal/middleware"
	"github.com/pu-ac-cn/qual-backend/web"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LoadConfig path 为空时读取工作目录下的 .env
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}

// Runtime 已初始化的日志和数据库
type Runtime struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
}

// Open 初始化全局日志和数据库连接
func Open(cfg *config.Config) (*Runtime, error) {
	log, err := logger.Init(cfg.Debug)
	if err != nil {
		return nil, err
	}
	db, err := database.Init(cfg.DBDSN, database.Options{Debug: cfg.Debug, Logger: log})
	if err != nil {
		return nil, err
	}
	return &Runtime{Config: cfg, Logger: log, DB: db}, nil
}

// Close 关闭数据库连接并刷新日志
func (r *Runtime) Close() {
	if err := database.Close(); err != nil {
		r.Logger.Warn("关闭数据库失败", zap.Error(err))
	}
	logger.Sync()
}

// App 使用默认功能模块组装应用
func (r *Runtime) App() (*app.App, error) {
	return NewApp(r.Config, r.DB, r.Logger, handler.Register(app.NewBuilder()))
}

// NewApp 创建引擎、挂载中间件并执行全部安装器
//
// 事务中间件只挂在 API 路由组上，健康检查和指标端点不占用数据库连接。
// 配置了 STATIC_PATH 时，未匹配的路由交给前端静态文件处理。
func NewApp(cfg *config.Config, db *gorm.DB, log *zap.Logger, b *app.Builder) (*app.App, error) {
	engine := gin.New()
	engine.Use(
		middleware.ErrorHandler(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSOrigins...),
	)

	a := app.New(cfg, engine, db, log)
	a.API.Use(middleware.Metrics(a.Metrics), middleware.Transaction(db))

	if err := b.Build(a); err != nil {
		return nil, err
	}

	if cfg.StaticPath != "" {
		web.NewStaticHandler(web.DiskConfig(cfg.StaticPath, cfg.APIPath)).SetupRoutes(engine)
		log.Info("前端静态文件已启用", zap.String("path", cfg.StaticPath))
	}
	return a, nil
}

// Migrate 迁移应用登记的全部模型
func Migrate(a *app.App) error {
	return database.AutoMigrate(a.DB, a.Models()...)
}
