// Package discover 按文件名约定扫描文件树
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// reserved 保留文件名，不允许被扫描模式匹配
var reserved = []string{"doc", "main"}

// ErrReservedPattern 模式会匹配保留文件名
var ErrReservedPattern = errors.New("扫描模式匹配了保留文件名")

// Discover 返回 fsys 中文件名（去掉 ext）匹配 pattern 的全部文件路径
// 路径以 / 分隔且不含扩展名，根目录文件同样包含在内，结果按字典序排列
func Discover(fsys fs.FS, pattern, ext string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("无效的扫描模式 %q: %w", pattern, err)
	}

	var found []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if ext != "" {
			if !strings.HasSuffix(name, ext) {
				return nil
			}
			name = strings.TrimSuffix(name, ext)
		}
		if ok, _ := path.Match(pattern, name); ok {
			found = append(found, strings.TrimSuffix(p, ext))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// LoadFunc 加载单个文件
type LoadFunc[T any] func(fsys fs.FS, file string) (T, error)

// AutoDiscover 扫描并逐个加载，返回 路径 -> 加载结果
func AutoDiscover[T any](fsys fs.FS, pattern, ext string, load LoadFunc[T]) (map[string]T, error) {
	if err := checkReserved(pattern); err != nil {
		return nil, err
	}

	paths, err := Discover(fsys, pattern, ext)
	if err != nil {
		return nil, err
	}

	out := make(map[string]T, len(paths))
	for _, p := range paths {
		v, err := load(fsys, p+ext)
		if err != nil {
			return nil, fmt.Errorf("加载 %s 失败: %w", p+ext, err)
		}
		out[p] = v
	}
	return out, nil
}

func checkReserved(pattern string) error {
	for _, name := range reserved {
		if ok, _ := path.Match(pattern, name); ok {
			return fmt.Errorf("%w: %q 匹配 %q", ErrReservedPattern, pattern, name)
		}
	}
	return nil
}
