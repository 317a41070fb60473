package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/redis"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/scope"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/internal/sso"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"go.uber.org/zap"
)

// InstallCore 提供公共依赖，挂载健康检查和指标端点
//
// 依赖在这里提供默认实现，单点登录客户端和账户校验器由处理器按请求解析，
// 因此 Builder.Override 可以替换它们。
func InstallCore(a *app.App) error {
	cfg := a.Config

	tokens, err := service.NewTokenService(&service.TokenServiceConfig{
		Secret:        cfg.JWTSecret(),
		Algorithm:     cfg.JWT.Algorithm,
		Issuer:        cfg.JWT.Issuer,
		AccessExpiry:  cfg.JWT.AccessExpiry(),
		RefreshExpiry: cfg.JWT.RefreshExpiry(),
	})
	if err != nil {
		return err
	}
	a.Container.Provide(KeyTokens, tokens)
	a.Container.Provide(KeyPasswords, password.Default())
	a.Container.Provide(KeySSOClient, sso.NewClient(sso.Config{
		ClientID:          cfg.XYSSO.ClientID,
		ClientSecret:      cfg.XYSSO.ClientSecret,
		AuthorizeEndpoint: cfg.XYSSO.AuthorizeEndpoint,
		TokenEndpoint:     cfg.XYSSO.TokenEndpoint,
		ProfileEndpoint:   cfg.XYSSO.ProfileEndpoint,
	}, &http.Client{Timeout: 10 * time.Second}))
	a.Container.Provide(KeyAccountValidator,
		service.NewUserExistsValidator(repository.NewUserRepository(a.DB)))

	if rdb := redis.GetClient(); rdb != nil && cfg.RateLimit.RegisterLimit > 0 {
		a.Container.Provide(KeyRegisterLimiter, redis.NewSlideWindowLimiter(
			rdb, "register:", cfg.RateLimit.RegisterWindow, cfg.RateLimit.RegisterLimit))
		a.Logger.Info("注册接口限流已启用",
			zap.Int("limit", cfg.RateLimit.RegisterLimit),
			zap.Duration("window", cfg.RateLimit.RegisterWindow))
	}

	if err := a.Scopes.Register(scope.All, "全范围权限"); err != nil {
		return err
	}
	a.RegisterModels(model.All()...)

	a.Engine.GET("/health", health(a))
	a.Engine.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	return nil
}

// health 检查数据库和 Redis 连接
// GET /health
func health(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{"database": "ok", "redis": "disabled"}

		if err := database.Ping(ctx, a.DB); err != nil {
			a.Logger.Warn("数据库健康检查失败", zap.Error(err))
			result["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if redis.Enabled() {
			result["redis"] = "ok"
			if err := redis.Ping(ctx); err != nil {
				a.Logger.Warn("Redis 健康检查失败", zap.Error(err))
				result["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		if status == http.StatusOK {
			result["status"] = "ok"
		} else {
			result["status"] = "unavailable"
		}
		c.JSON(status, result)
	}
}
