package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// 运行环境
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// devJWTSecret 开发环境未配置密钥时使用
const devJWTSecret = "jwt_secret"

// Config 应用配置，键名与 .env / 环境变量一致
type Config struct {
	Environment string   `mapstructure:"ENVIRONMENT"`
	Debug       bool     `mapstructure:"DEBUG"`
	Host        string   `mapstructure:"HOST"`
	Port        int      `mapstructure:"PORT"`
	APIPath     string   `mapstructure:"API_PATH"`
	DBDSN       string   `mapstructure:"DB_DSN"`
	SecretKey   string   `mapstructure:"SECRET_KEY"`
	StaticPath  string   `mapstructure:"STATIC_PATH"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWT       JWTConfig       `mapstructure:",squash"`
	XYSSO     XYSSOConfig     `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	Secret               string `mapstructure:"JWT_SECRET"`
	Algorithm            string `mapstructure:"JWT_ALGORITHM"`
	Issuer               string `mapstructure:"JWT_ISSUER"`
	ExpireMinutes        int    `mapstructure:"JWT_EXPIRE_MINUTES"`
	RefreshExpireMinutes int    `mapstructure:"JWT_REFRESH_EXPIRE_MINUTES"`
}

// AccessExpiry 访问令牌有效期
func (c JWTConfig) AccessExpiry() time.Duration {
	return time.Duration(c.ExpireMinutes) * time.Minute
}

// RefreshExpiry 刷新令牌有效期
func (c JWTConfig) RefreshExpiry() time.Duration {
	return time.Duration(c.RefreshExpireMinutes) * time.Minute
}

// XYSSOConfig 心源单点登录配置
type XYSSOConfig struct {
	ClientID          string `mapstructure:"XYSSO_CLIENT_ID"`
	ClientSecret      string `mapstructure:"XYSSO_CLIENT_SECRET"`
	AuthorizeEndpoint string `mapstructure:"XYSSO_AUTHORIZE_ENDPOINT"`
	TokenEndpoint     string `mapstructure:"XYSSO_TOKEN_ENDPOINT"`
	ProfileEndpoint   string `mapstructure:"XYSSO_PROFILE_ENDPOINT"`
}

// Configured 客户端 ID 和密文都已配置
func (c XYSSOConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// RedisConfig Redis 配置，Addr 为空表示不启用
type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// RateLimitConfig 注册接口限流配置
type RateLimitConfig struct {
	RegisterLimit  int           `mapstructure:"REGISTER_RATE_LIMIT"`
	RegisterWindow time.Duration `mapstructure:"REGISTER_RATE_WINDOW"`
}

// Addr 监听地址
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// JWTSecret 签名密钥，JWT_SECRET 优先，其次 SECRET_KEY
func (c *Config) JWTSecret() string {
	if c.JWT.Secret != "" {
		return c.JWT.Secret
	}
	if c.SecretKey != "" {
		return c.SecretKey
	}
	if c.IsProduction() {
		return ""
	}
	return devJWTSecret
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("ENVIRONMENT 只能是 %s 或 %s: %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.JWTSecret() == "" {
		return errors.New("生产环境必须配置 JWT_SECRET 或 SECRET_KEY")
	}
	if c.JWT.ExpireMinutes <= 0 || c.JWT.RefreshExpireMinutes <= 0 {
		return errors.New("令牌有效期必须大于 0")
	}
	if c.DBDSN == "" {
		return errors.New("DB_DSN 不能为空")
	}
	return nil
}

// Load 加载配置：工作目录下的 .env（可选）+ 环境变量
func Load() (*Config, error) {
	return load(".env", true)
}

// LoadFromFile 从指定 .env 文件加载，文件必须存在
func LoadFromFile(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, optional bool) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	// 支持环境变量覆盖
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !optional || !(errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)) {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 设置默认值，未设置默认值的键不会被环境变量覆盖
func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", EnvDevelopment)
	v.SetDefault("DEBUG", false)
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PATH", "")
	v.SetDefault("DB_DSN", "sqlite:///.db.sqlite")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("STATIC_PATH", "")
	v.SetDefault("CORS_ORIGINS", []string{"*"})

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("JWT_ISSUER", "qual")
	v.SetDefault("JWT_EXPIRE_MINUTES", 30)
	v.SetDefault("JWT_REFRESH_EXPIRE_MINUTES", 43200)

	v.SetDefault("XYSSO_CLIENT_ID", "")
	v.SetDefault("XYSSO_CLIENT_SECRET", "")
	v.SetDefault("XYSSO_AUTHORIZE_ENDPOINT", "")
	v.SetDefault("XYSSO_TOKEN_ENDPOINT", "")
	v.SetDefault("XYSSO_PROFILE_ENDPOINT", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("REGISTER_RATE_LIMIT", 10)
	v.SetDefault("REGISTER_RATE_WINDOW", "1m")
}
