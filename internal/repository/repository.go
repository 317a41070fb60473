// Package repository 数据访问层
package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/qual-backend/internal/database"
	"gorm.io/gorm"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination 分页参数
type Pagination struct {
	Page     int `form:"page" json:"page"`           // 页码，从 1 开始
	PageSize int `form:"page_size" json:"page_size"` // 每页数量
}

// Normalize 修正非法取值
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset 偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Fields 部分更新的字段，键为列名
type Fields map[string]any

// base 所有仓库共用：请求上下文里有事务时走事务
type base struct {
	db *gorm.DB
}

func (b base) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, b.db)
}

// paginate 统计总数并分页查询
func paginate[T any](query *gorm.DB, page *Pagination, order string) ([]*T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page != nil {
		page.Normalize()
		query = query.Offset(page.Offset()).Limit(page.PageSize)
	}
	var items []*T
	if err := query.Order(order).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// first 查询单条，未找到时返回 notFound
func first[T any](query *gorm.DB, notFound error, conds ...any) (*T, error) {
	var item T
	if err := query.First(&item, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return &item, nil
}

// exists 按条件计数
func exists[T any](query *gorm.DB, cond any, args ...any) (bool, error) {
	var count int64
	err := query.Model(new(T)).Where(cond, args...).Count(&count).Error
	return count > 0, err
}

// byKey key 在 MySQL 中是保留字，用 map 条件让 gorm 负责转义
func byKey(key string) map[string]any {
	return map[string]any{"key": key}
}

// update 部分更新，受影响行数为 0 时返回 notFound
func update[T any](query *gorm.DB, id uint, fields Fields, notFound error) error {
	if len(fields) == 0 {
		return nil
	}
	result := query.Model(new(T)).Where("id = ?", id).Updates(map[string]any(fields))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound
	}
	return nil
}
