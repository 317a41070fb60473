package model

// Department 部门模型
// 通过 ParentID 自关联成树，父子关系必须构成森林
type Department struct {
	BaseModel
	Key      string `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Sort     int    `gorm:"default:1" json:"sort"`
	Active   bool   `json:"active"`
	OwnerID  *uint  `gorm:"index" json:"owner_id"`
	ParentID *uint  `gorm:"index" json:"parent_id"`

	// 关联
	Owner    *User        `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Parent   *Department  `gorm:"foreignKey:ParentID" json:"-"`
	Children []Department `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Members  []User       `gorm:"many2many:user_departments;" json:"members,omitempty"`
}

// TableName 指定表名
func (Department) TableName() string {
	return "departments"
}
