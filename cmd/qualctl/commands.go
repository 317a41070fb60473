package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pu-ac-cn/qual-backend/internal/app"
	"github.com/pu-ac-cn/qual-backend/internal/bootstrap"
	"github.com/pu-ac-cn/qual-backend/internal/config"
	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/handler"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/seed"
	"github.com/pu-ac-cn/qual-backend/internal/service"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"go.uber.org/zap"
)

// errAborted 用户取消
var errAborted = errors.New("操作已取消")

type installOptions struct {
	Reinstall bool
	Yes       bool
}

// install 数据库不存在时创建，-reinstall 先删除再创建，最后迁移全部模型
func install(ctx context.Context, cfg *config.Config, opts installOptions, stdin io.Reader, out io.Writer) error {
	exists, err := database.Exists(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("检查数据库失败: %w", err)
	}

	if exists && opts.Reinstall {
		if !opts.Yes && !confirm(stdin, out, "将删除数据库中的全部数据，确认继续? [y/N] ") {
			return errAborted
		}
		if err := database.Drop(ctx, cfg.DBDSN); err != nil {
			return fmt.Errorf("删除数据库失败: %w", err)
		}
		fmt.Fprintln(out, "数据库已删除")
		exists = false
	}
	if !exists {
		if err := database.Create(ctx, cfg.DBDSN); err != nil {
			return fmt.Errorf("创建数据库失败: %w", err)
		}
		fmt.Fprintln(out, "数据库已创建")
	}

	rt, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	a, err := rt.App()
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(a); err != nil {
		return fmt.Errorf("迁移失败: %w", err)
	}
	fmt.Fprintf(out, "已迁移 %d 张表\n", len(a.Models()))
	return nil
}

func confirm(stdin io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// runSeed 执行内置种子，dir 不为空时再执行目录中的种子文件
func runSeed(ctx context.Context, cfg *config.Config, dir string, out io.Writer) error {
	files, err := seed.Load(seed.Files())
	if err != nil {
		return err
	}
	if dir != "" {
		extra, err := loadDir(dir)
		if err != nil {
			return err
		}
		files = append(files, extra...)
	}

	rt, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	// 与服务使用同一个密码哈希方案
	a, err := rt.App()
	if err != nil {
		return err
	}
	passwords, err := app.Dependency[*password.Context](a.Container, handler.KeyPasswords)
	if err != nil {
		return err
	}

	res, err := seed.NewSeeder(rt.DB, passwords, rt.Logger).Run(ctx, files)
	if err != nil {
		return err
	}
	rt.Logger.Info("种子数据已写入",
		zap.Int("files", len(files)),
		zap.Int("users", res.Users),
		zap.Int("roles", res.Roles),
		zap.Int("departments", res.Departments),
		zap.Int("permissions", res.Permissions),
		zap.Int("menus", res.Menus),
		zap.Int("dictionaries", res.Dictionaries),
	)
	fmt.Fprintf(out, "已执行 %d 个种子文件，新增用户 %d、角色 %d、部门 %d、权限 %d、菜单 %d、字典 %d\n",
		len(files), res.Users, res.Roles, res.Departments, res.Permissions, res.Menus, res.Dictionaries)
	return nil
}

func loadDir(dir string) ([]*seed.File, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s 不是目录", dir)
	}
	files, err := seed.Load(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		f.Path = dir + ":" + f.Path
	}
	return files, nil
}

// grant 授予用户角色，已拥有时不报错
func grant(ctx context.Context, cfg *config.Config, username, roleKey string, out io.Writer) error {
	rt, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	roles := service.NewRoleService(
		repository.NewRoleRepository(rt.DB),
		repository.NewUserRepository(rt.DB),
	)
	err = database.Transaction(ctx, rt.DB, func(ctx context.Context) error {
		return roles.Grant(ctx, username, roleKey)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "已授予 %s 角色 %s\n", username, roleKey)
	return nil
}

