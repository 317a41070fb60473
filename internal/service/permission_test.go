package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pu-ac-cn/qual-backend/internal/repository"
)

// TestPermissionService 测试权限与操作
func TestPermissionService(t *testing.T) {
	db := newTestDB(t)
	svc := NewPermissionService(repository.NewPermissionRepository(db), repository.NewMenuRepository(db))
	ctx := context.Background()

	parent, err := svc.Create(ctx, &PermissionInput{Key: "system", Name: "系统管理"})
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	child, err := svc.Create(ctx, &PermissionInput{Key: "system.user", Name: "用户管理", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("创建子权限失败: %v", err)
	}
	if _, err := svc.Create(ctx, &PermissionInput{Key: "system", Name: "重复"}); !errors.Is(err, repository.ErrPermissionKeyExists) {
		t.Errorf("期望 ErrPermissionKeyExists, 实际 %v", err)
	}

	action, err := svc.AddAction(ctx, child.ID, &ActionInput{Name: "新增", Value: "user:add", API: "/user", Method: "post"})
	if err != nil {
		t.Fatalf("添加操作失败: %v", err)
	}
	if action.Method != "POST" {
		t.Errorf("请求方式应转为大写, 实际 %s", action.Method)
	}
	if _, err := svc.AddAction(ctx, child.ID, &ActionInput{Name: "x", Value: "y", Method: "FETCH"}); !errors.Is(err, ErrActionMethodInvalid) {
		t.Errorf("期望 ErrActionMethodInvalid, 实际 %v", err)
	}
	if _, err := svc.AddAction(ctx, child.ID, &ActionInput{Name: "x"}); !errors.Is(err, ErrActionInvalid) {
		t.Errorf("期望 ErrActionInvalid, 实际 %v", err)
	}
	if _, err := svc.AddAction(ctx, 999, &ActionInput{Name: "x", Value: "y"}); !errors.Is(err, repository.ErrPermissionNotFound) {
		t.Errorf("期望 ErrPermissionNotFound, 实际 %v", err)
	}

	got, _ := svc.GetByID(ctx, child.ID)
	if len(got.Actions) != 1 {
		t.Errorf("期望 1 个操作, 实际 %d", len(got.Actions))
	}
	if err := svc.DeleteAction(ctx, parent.ID, action.ID); !errors.Is(err, repository.ErrActionNotFound) {
		t.Errorf("其他权限下的操作不能删除, 实际 %v", err)
	}
	if err := svc.DeleteAction(ctx, child.ID, action.ID); err != nil {
		t.Fatalf("删除操作失败: %v", err)
	}

	// 删除上级后子权限成为顶级
	if err := svc.Delete(ctx, parent.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	got, err = svc.GetByID(ctx, child.ID)
	if err != nil {
		t.Fatalf("子权限应保留: %v", err)
	}
	if got.ParentID != nil {
		t.Errorf("子权限应成为顶级, 实际 %v", *got.ParentID)
	}
}

// TestPermissionService_Menus 测试菜单管理
func TestPermissionService_Menus(t *testing.T) {
	db := newTestDB(t)
	svc := NewPermissionService(repository.NewPermissionRepository(db), repository.NewMenuRepository(db))
	ctx := context.Background()

	perm, _ := svc.Create(ctx, &PermissionInput{Key: "dict", Name: "字典"})

	menu, err := svc.CreateMenu(ctx, &MenuInput{Name: "字典管理", RoutePath: ptr("/dict"), PermissionID: &perm.ID})
	if err != nil {
		t.Fatalf("创建菜单失败: %v", err)
	}
	if !menu.Enabled {
		t.Error("菜单默认启用")
	}
	if _, err := svc.CreateMenu(ctx, &MenuInput{Name: " "}); !errors.Is(err, ErrMenuNameEmpty) {
		t.Errorf("期望 ErrMenuNameEmpty, 实际 %v", err)
	}
	if _, err := svc.CreateMenu(ctx, &MenuInput{Name: "x", PermissionID: ptr(uint(999))}); !errors.Is(err, repository.ErrPermissionNotFound) {
		t.Errorf("期望 ErrPermissionNotFound, 实际 %v", err)
	}

	updated, err := svc.UpdateMenu(ctx, menu.ID, &MenuInput{Hidden: ptr(true), Enabled: ptr(false), PermissionID: ptr(uint(0))})
	if err != nil {
		t.Fatalf("修改菜单失败: %v", err)
	}
	if !updated.Hidden || updated.Enabled || updated.PermissionID != nil {
		t.Errorf("修改结果不正确: %+v", updated)
	}
	if _, err := svc.UpdateMenu(ctx, 999, &MenuInput{Name: "x"}); !errors.Is(err, repository.ErrMenuNotFound) {
		t.Errorf("期望 ErrMenuNotFound, 实际 %v", err)
	}

	menus, err := svc.ListMenus(ctx)
	if err != nil || len(menus) != 1 {
		t.Fatalf("菜单列表不正确: %v %v", menus, err)
	}
	if err := svc.DeleteMenu(ctx, menu.ID); err != nil {
		t.Fatalf("删除菜单失败: %v", err)
	}
	if _, err := svc.GetMenu(ctx, menu.ID); !errors.Is(err, repository.ErrMenuNotFound) {
		t.Errorf("期望 ErrMenuNotFound, 实际 %v", err)
	}
}
