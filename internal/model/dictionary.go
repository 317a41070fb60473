package model

// ValueType 字典值类型
type ValueType int

const (
	ValueText ValueType = iota
	ValueNumber
	ValueDate
	ValueDatetime
	ValueTime
	ValueFile
	ValueBoolean
	ValueImage
)

// Valid 是否合法取值
func (t ValueType) Valid() bool {
	return t >= ValueText && t <= ValueImage
}

// Dictionary 字典
type Dictionary struct {
	BaseModel
	Key     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Name    string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Type    ValueType `gorm:"default:0" json:"type"`
	Enable  bool      `json:"enable"`
	Sort    int       `gorm:"default:1" json:"sort"`
	Comment string    `gorm:"type:varchar(500);default:''" json:"comment"`

	// 随字典一起删除
	Children []DictionaryKeyValue `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"children,omitempty"`
}

// TableName 指定表名
func (Dictionary) TableName() string {
	return "dictionaries"
}

// DictionaryKeyValue 字典键值
type DictionaryKeyValue struct {
	BaseModel
	Name     string    `gorm:"type:varchar(100);not null" json:"name"`
	Value    string    `gorm:"type:varchar(500);not null" json:"value"`
	Type     ValueType `gorm:"default:0" json:"type"`
	Enable   bool      `json:"enable"`
	Sort     int       `gorm:"default:1" json:"sort"`
	Color    string    `gorm:"type:varchar(20)" json:"color"`
	ParentID uint      `gorm:"index;not null" json:"parent_id"`
}

// TableName 指定表名
func (DictionaryKeyValue) TableName() string {
	return "dictionary_key_values"
}
