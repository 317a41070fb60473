// qualctl 数据库安装、种子数据和授权工具
//
// 用法:
//
//	qualctl [-config .env] install [-reinstall] [-yes]
//	qualctl [-config .env] seed [-dir ./seeds]
//	qualctl [-config .env] grant <用户名> <角色编号>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pu-ac-cn/qual-backend/internal/bootstrap"
)

// errUsage 参数错误，已输出用法
var errUsage = errors.New("参数错误")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		}
		os.Exit(1)
	}
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "用法: qualctl [-config 文件] <命令> [参数]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "命令:")
	fmt.Fprintln(out, "  install [-reinstall] [-yes]   创建数据库并迁移表结构")
	fmt.Fprintln(out, "  seed [-dir 目录]              写入种子数据")
	fmt.Fprintln(out, "  grant <用户名> <角色编号>     授予用户角色")
}

func run(ctx context.Context, args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("qualctl", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { usage(out) }
	configPath := fs.String("config", "", "配置文件路径，默认读取 .env")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		usage(out)
		return errUsage
	}

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "install":
		sub := flag.NewFlagSet("install", flag.ContinueOnError)
		sub.SetOutput(out)
		reinstall := sub.Bool("reinstall", false, "删除已有数据库后重新创建")
		yes := sub.Bool("yes", false, "跳过删除确认")
		if err := sub.Parse(rest); err != nil {
			return errUsage
		}
		return install(ctx, cfg, installOptions{Reinstall: *reinstall, Yes: *yes}, stdin, out)
	case "seed":
		sub := flag.NewFlagSet("seed", flag.ContinueOnError)
		sub.SetOutput(out)
		dir := sub.String("dir", "", "额外的种子文件目录，在内置种子之后执行")
		if err := sub.Parse(rest); err != nil {
			return errUsage
		}
		return runSeed(ctx, cfg, *dir, out)
	case "grant":
		if len(rest) != 2 {
			usage(out)
			return errUsage
		}
		return grant(ctx, cfg, rest[0], rest[1], out)
	default:
		fmt.Fprintf(out, "未知命令: %s\n\n", cmd)
		usage(out)
		return errUsage
	}
}
