package model

// Permission 权限，Action 的集合
// 可以指代主菜单入口、页面等，可以自嵌套
type Permission struct {
	BaseModel
	Key      string `gorm:"type:varchar(150);uniqueIndex;not null" json:"key"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Sort     int    `gorm:"default:1" json:"sort"`
	ParentID *uint  `gorm:"index" json:"parent_id"`

	Actions  []Action     `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE" json:"actions,omitempty"`
	Children []Permission `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// TableName 指定表名
func (Permission) TableName() string {
	return "permissions"
}

// Action 权限下的具体操作
type Action struct {
	BaseModel
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	Value        string `gorm:"type:varchar(150);not null" json:"value"` // 权限值
	API          string `gorm:"type:varchar(255)" json:"api"`            // 接口地址
	Method       string `gorm:"type:varchar(10)" json:"method"`          // 请求方式
	PermissionID uint   `gorm:"index;not null" json:"permission_id"`
}

// TableName 指定表名
func (Action) TableName() string {
	return "actions"
}

// Menu 后台管理侧边导航菜单
type Menu struct {
	BaseModel
	Name          string `gorm:"type:varchar(100);not null" json:"name"`
	Icon          string `gorm:"type:varchar(100)" json:"icon"`
	IsLink        bool   `gorm:"default:false" json:"is_link"` // 是否外链
	RoutePath     string `gorm:"type:varchar(255)" json:"route_path"`
	Component     string `gorm:"type:varchar(255)" json:"component"`
	ComponentName string `gorm:"type:varchar(100)" json:"component_name"`
	Enabled       bool   `json:"enabled"`
	Hidden        bool   `gorm:"default:false" json:"hidden"`
	Sort          int    `gorm:"default:1" json:"sort"`
	PermissionID  *uint  `gorm:"index" json:"permission_id"` // 为空表示所有人可见
}

// TableName 指定表名
func (Menu) TableName() string {
	return "menus"
}
