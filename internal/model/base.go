// Package model 定义数据模型
package model

import (
	"time"
)

// BaseModel 基础模型，包含通用字段
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All 需要迁移的全部模型
func All() []any {
	return []any{
		&User{},
		&Department{},
		&Role{},
		&Permission{},
		&Action{},
		&Menu{},
		&Dictionary{},
		&DictionaryKeyValue{},
	}
}
