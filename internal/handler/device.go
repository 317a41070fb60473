package handler

import (
	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/model"
)

// InstallDevice 设备模块，目前只有数据表
func InstallDevice(a *app.App) error {
	a.RegisterModels(&model.Device{})
	return nil
}
