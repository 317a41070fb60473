package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// New 构建日志实例，debug 时使用开发配置
func New(debug bool) (*zap.Logger, error) {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "msg"

	return config.Build()
}

// Init 初始化全局日志
func Init(debug bool) (*zap.Logger, error) {
	l, err := New(debug)
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

// Set 替换全局日志，测试中可注入 zaptest / observer
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L 获取全局日志，未初始化时为空操作日志
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync 刷新缓冲
func Sync() {
	_ = L().Sync()
}
