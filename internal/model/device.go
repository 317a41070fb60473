package model

// Device 设备，按资产编号定位
type Device struct {
	ResID string `gorm:"type:varchar(100);primaryKey" json:"res_id"`
	Name  string `gorm:"type:varchar(100);index;not null" json:"name"`
}

// TableName 指定表名
func (Device) TableName() string {
	return "devices"
}
