package model

// DataScope 数据权限范围
type DataScope int

const (
	// DataScopeSelf 仅本人
	DataScopeSelf DataScope = iota
	// DataScopeDepartmentAndBelow 本部门及以下
	DataScopeDepartmentAndBelow
	// DataScopeDepartmentOnly 仅本部门
	DataScopeDepartmentOnly
	// DataScopeAll 全部
	DataScopeAll
	// DataScopeCustom 自定义
	DataScopeCustom
)

// Valid 是否合法取值
func (d DataScope) Valid() bool {
	return d >= DataScopeSelf && d <= DataScopeCustom
}

// Role 角色模型
type Role struct {
	BaseModel
	Key       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Sort      int       `gorm:"default:1" json:"sort"`
	Admin     bool      `gorm:"default:false" json:"admin"` // 管理员角色拥有全部菜单
	DataScope DataScope `gorm:"default:0" json:"data_scope"`
	Comment   string    `gorm:"type:varchar(500)" json:"comment"`

	// 关联
	Members     []User       `gorm:"many2many:user_roles;" json:"members,omitempty"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// TableName 指定表名
func (Role) TableName() string {
	return "roles"
}

// 系统内置角色
const (
	RoleAdmin = "admin" // 超级管理员
)
