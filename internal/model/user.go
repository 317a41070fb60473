package model

import (
	"time"
)

// AccountType 账户类型，区分账户是如何创建的
type AccountType string

const (
	AccountLocal AccountType = "local" // 本地注册
	AccountLDAP  AccountType = "ldap"
	AccountXYSSO AccountType = "xysso" // 心源单点登录
	AccountQYWX  AccountType = "qywx"  // 企业微信
)

// UserStatus 用户状态
type UserStatus string

// 状态常量
const (
	StatusActive    UserStatus = "active"    // 启用
	StatusInactive  UserStatus = "inactive"  // 未激活
	StatusPending   UserStatus = "pending"   // 待审核
	StatusSuspended UserStatus = "suspended" // 停用
	StatusClosed    UserStatus = "closed"    // 注销
)

// User 用户模型，只通过状态注销，从不物理删除
type User struct {
	BaseModel
	Username    string      `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Password    string      `gorm:"type:varchar(255);not null" json:"-"` // 密码哈希
	DisplayName string      `gorm:"type:varchar(100);index" json:"display_name"`
	Mail        string      `gorm:"type:varchar(255)" json:"mail"`
	AccountType AccountType `gorm:"type:varchar(20);default:local;not null" json:"account_type"`
	Status      UserStatus  `gorm:"type:varchar(20);default:active;not null" json:"status"`
	IsStaff     bool        `gorm:"not null" json:"is_staff"`
	LastLoginAt *time.Time  `json:"last_login_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsActive 检查用户是否启用
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsLocal 是否本地账户
func (u *User) IsLocal() bool {
	return u.AccountType == AccountLocal
}
