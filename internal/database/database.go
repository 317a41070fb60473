package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// Options 连接选项
type Options struct {
	Debug  bool
	Logger *zap.Logger
}

// Open 按 DSN 打开数据库连接
func Open(raw string, opts Options) (*gorm.DB, error) {
	dsn, err := ParseDSN(raw)
	if err != nil {
		return nil, err
	}
	return open(dsn, dsn.Source, opts)
}

func open(dsn *DSN, source string, opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dsn.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(source)
	case DriverPostgres:
		dialector = postgres.Open(source)
	case DriverMySQL:
		dialector = mysql.Open(source)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, dsn.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(opts),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 配置连接池
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接池失败: %w", err)
	}

	if dsn.Driver == DriverSQLite {
		// sqlite 单写者，内存库每个连接各自独立
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return conn, nil
}

// newGormLogger SQL 日志输出到 zap，DEBUG 时打印全部语句
func newGormLogger(opts Options) logger.Interface {
	if opts.Logger == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}
	return logger.New(zap.NewStdLog(opts.Logger.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Init 初始化全局数据库连接
func Init(raw string, opts Options) (*gorm.DB, error) {
	conn, err := Open(raw, opts)
	if err != nil {
		return nil, err
	}
	db = conn
	return db, nil
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return db
}

// Close 关闭数据库连接
func Close() error {
	if db == nil {
		return nil
	}
	err := CloseDB(db)
	db = nil
	return err
}

// CloseDB 关闭指定连接
func CloseDB(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 测试数据库连接
func Ping(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return errors.New("数据库未初始化")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(conn *gorm.DB, models ...any) error {
	if conn == nil {
		return errors.New("数据库未初始化")
	}
	return conn.AutoMigrate(models...)
}

// Exists 数据库是否存在
func Exists(ctx context.Context, raw string) (bool, error) {
	dsn, err := ParseDSN(raw)
	if err != nil {
		return false, err
	}

	switch dsn.Driver {
	case DriverSQLite:
		if isMemory(dsn.Name) {
			return true, nil
		}
		_, err := os.Stat(dsn.Name)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	case DriverPostgres:
		return adminQueryExists(ctx, dsn, "SELECT count(*) FROM pg_database WHERE datname = ?")
	default:
		return adminQueryExists(ctx, dsn, "SELECT count(*) FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?")
	}
}

// Create 创建数据库
func Create(ctx context.Context, raw string) error {
	dsn, err := ParseDSN(raw)
	if err != nil {
		return err
	}

	switch dsn.Driver {
	case DriverSQLite:
		if isMemory(dsn.Name) {
			return nil
		}
		if dir := filepath.Dir(dsn.Name); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := os.OpenFile(dsn.Name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		return f.Close()
	case DriverPostgres:
		return adminExec(ctx, dsn, `CREATE DATABASE "%s"`)
	default:
		return adminExec(ctx, dsn, "CREATE DATABASE `%s` CHARACTER SET utf8mb4")
	}
}

// Drop 删除数据库
func Drop(ctx context.Context, raw string) error {
	dsn, err := ParseDSN(raw)
	if err != nil {
		return err
	}

	switch dsn.Driver {
	case DriverSQLite:
		if isMemory(dsn.Name) {
			return nil
		}
		return os.Remove(dsn.Name)
	case DriverPostgres:
		return adminExec(ctx, dsn, `DROP DATABASE "%s"`)
	default:
		return adminExec(ctx, dsn, "DROP DATABASE `%s`")
	}
}

func isMemory(name string) bool {
	return name == ":memory:" || strings.HasPrefix(name, "file:") && strings.Contains(name, "mode=memory")
}

func withAdmin(dsn *DSN, fn func(conn *gorm.DB) error) error {
	conn, err := open(dsn, dsn.Admin, Options{})
	if err != nil {
		return err
	}
	defer CloseDB(conn)
	return fn(conn)
}

func adminQueryExists(ctx context.Context, dsn *DSN, query string) (bool, error) {
	var count int64
	err := withAdmin(dsn, func(conn *gorm.DB) error {
		return conn.WithContext(ctx).Raw(query, dsn.Name).Scan(&count).Error
	})
	return count > 0, err
}

func adminExec(ctx context.Context, dsn *DSN, stmt string) error {
	name, err := quoteName(dsn.Name)
	if err != nil {
		return err
	}
	return withAdmin(dsn, func(conn *gorm.DB) error {
		return conn.WithContext(ctx).Exec(fmt.Sprintf(stmt, name)).Error
	})
}
