package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithTx 将请求级事务放入上下文
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom 从上下文取出事务
func TxFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Conn 上下文中有事务时使用事务，否则使用 fallback
func Conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := TxFrom(ctx); ok {
		return tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

// Transaction 在事务中执行 fn，上下文已有事务时直接复用
func Transaction(ctx context.Context, conn *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
