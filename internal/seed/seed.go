// Package seed 种子数据
//
// 种子数据只新增，已存在的记录不做任何修改，系统依赖数据存在而不依赖数据正确。
// 种子文件按 seed*.yaml 约定从文件树中发现，按路径字典序执行。
package seed

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/discover"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// 种子文件约定
const (
	Pattern = "seed*"
	Ext     = ".yaml"
)

//go:embed data
var embedded embed.FS

// Files 内置种子文件
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// File 一个种子文件
type File struct {
	Path         string           `yaml:"-"`
	Users        []UserSeed       `yaml:"users"`
	Roles        []RoleSeed       `yaml:"roles"`
	Departments  []DepartmentSeed `yaml:"departments"`
	Permissions  []PermissionSeed `yaml:"permissions"`
	Menus        []MenuSeed       `yaml:"menus"`
	Dictionaries []DictionarySeed `yaml:"dictionaries"`
	Grants       []GrantSeed      `yaml:"grants"`
}

// UserSeed 本地账户，密码为明文，写入前哈希
type UserSeed struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
	Mail        string `yaml:"mail"`
	IsStaff     bool   `yaml:"is_staff"`
}

type RoleSeed struct {
	Key         string          `yaml:"key"`
	Name        string          `yaml:"name"`
	Admin       bool            `yaml:"admin"`
	DataScope   model.DataScope `yaml:"data_scope"`
	Comment     string          `yaml:"comment"`
	Permissions []string        `yaml:"permissions"` // 权限编号
}

type DepartmentSeed struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"` // 上级部门编号
	Sort   int    `yaml:"sort"`
}

type PermissionSeed struct {
	Key     string       `yaml:"key"`
	Name    string       `yaml:"name"`
	Sort    int          `yaml:"sort"`
	Actions []ActionSeed `yaml:"actions"`
}

type ActionSeed struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	API    string `yaml:"api"`
	Method string `yaml:"method"`
}

type MenuSeed struct {
	Name          string `yaml:"name"`
	Icon          string `yaml:"icon"`
	RoutePath     string `yaml:"route_path"`
	Component     string `yaml:"component"`
	ComponentName string `yaml:"component_name"`
	Sort          int    `yaml:"sort"`
	Hidden        bool   `yaml:"hidden"`
	Permission    string `yaml:"permission"` // 权限编号，为空表示所有人可见
}

type DictionarySeed struct {
	Key     string          `yaml:"key"`
	Name    string          `yaml:"name"`
	Type    model.ValueType `yaml:"type"`
	Comment string          `yaml:"comment"`
	Values  []ValueSeed     `yaml:"values"`
}

type ValueSeed struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Color string `yaml:"color"`
	Sort  int    `yaml:"sort"`
}

// GrantSeed 授予用户角色
type GrantSeed struct {
	Username string `yaml:"username"`
	Role     string `yaml:"role"`
}

// Load 发现并解析 fsys 中的全部种子文件，按路径排序
func Load(fsys fs.FS) ([]*File, error) {
	found, err := discover.AutoDiscover(fsys, Pattern, Ext, loadFile)
	if err != nil {
		return nil, err
	}

	files := make([]*File, 0, len(found))
	for p, f := range found {
		f.Path = p
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func loadFile(fsys fs.FS, name string) (*File, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}
	return &f, nil
}

// Result 本次新建的记录数
type Result struct {
	Users        int
	Roles        int
	Departments  int
	Permissions  int
	Menus        int
	Dictionaries int
}

// Seeder 写入种子数据
type Seeder struct {
	db        *gorm.DB
	passwords *password.Context
	logger    *zap.Logger

	users       repository.UserRepository
	roles       repository.RoleRepository
	departments repository.DepartmentRepository
	permissions repository.PermissionRepository
	menus       repository.MenuRepository
	dicts       repository.DictionaryRepository
}

// NewSeeder 创建 Seeder
func NewSeeder(db *gorm.DB, passwords *password.Context, logger *zap.Logger) *Seeder {
	if passwords == nil {
		passwords = password.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		db:          db,
		passwords:   passwords,
		logger:      logger,
		users:       repository.NewUserRepository(db),
		roles:       repository.NewRoleRepository(db),
		departments: repository.NewDepartmentRepository(db),
		permissions: repository.NewPermissionRepository(db),
		menus:       repository.NewMenuRepository(db),
		dicts:       repository.NewDictionaryRepository(db),
	}
}

// Run 在一个事务中依次写入全部文件，任一失败整体回滚
func (s *Seeder) Run(ctx context.Context, files []*File) (*Result, error) {
	res := &Result{}
	err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		for _, f := range files {
			if err := s.apply(ctx, f, res); err != nil {
				return fmt.Errorf("种子文件 %s: %w", f.Path, err)
			}
			s.logger.Info("种子文件已执行", zap.String("file", f.Path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Seeder) apply(ctx context.Context, f *File, res *Result) error {
	for _, u := range f.Users {
		if err := s.user(ctx, u, res); err != nil {
			return err
		}
	}
	for _, p := range f.Permissions {
		if err := s.permission(ctx, p, res); err != nil {
			return err
		}
	}
	for _, r := range f.Roles {
		if err := s.role(ctx, r, res); err != nil {
			return err
		}
	}
	for _, d := range f.Departments {
		if err := s.department(ctx, d, res); err != nil {
			return err
		}
	}
	for _, m := range f.Menus {
		if err := s.menu(ctx, m, res); err != nil {
			return err
		}
	}
	for _, d := range f.Dictionaries {
		if err := s.dictionary(ctx, d, res); err != nil {
			return err
		}
	}
	for _, g := range f.Grants {
		if err := s.grant(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) user(ctx context.Context, u UserSeed, res *Result) error {
	exists, err := s.users.ExistsByUsername(ctx, u.Username)
	if err != nil || exists {
		return err
	}
	hash, err := s.passwords.Hash(u.Password)
	if err != nil {
		return err
	}
	displayName := u.DisplayName
	if displayName == "" {
		displayName = u.Username
	}
	_, created, err := s.users.FirstOrCreate(ctx, &model.User{
		Username:    u.Username,
		Password:    hash,
		DisplayName: displayName,
		Mail:        u.Mail,
		AccountType: model.AccountLocal,
		Status:      model.StatusActive,
		IsStaff:     u.IsStaff,
	})
	if created {
		res.Users++
	}
	return err
}

func (s *Seeder) permission(ctx context.Context, p PermissionSeed, res *Result) error {
	perm := &model.Permission{Key: p.Key, Name: p.Name, Sort: orDefault(p.Sort)}
	for _, a := range p.Actions {
		perm.Actions = append(perm.Actions, model.Action{Name: a.Name, Value: a.Value, API: a.API, Method: a.Method})
	}
	_, created, err := s.permissions.FirstOrCreate(ctx, perm)
	if created {
		res.Permissions++
	}
	return err
}

func (s *Seeder) role(ctx context.Context, r RoleSeed, res *Result) error {
	role, created, err := s.roles.FirstOrCreate(ctx, &model.Role{
		Key:       r.Key,
		Name:      r.Name,
		Sort:      1,
		Admin:     r.Admin,
		DataScope: r.DataScope,
		Comment:   r.Comment,
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	res.Roles++

	if len(r.Permissions) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(r.Permissions))
	for _, key := range r.Permissions {
		perm, err := s.permissions.GetByKey(ctx, key)
		if err != nil {
			return fmt.Errorf("角色 %s 的权限 %s: %w", r.Key, key, err)
		}
		ids = append(ids, perm.ID)
	}
	return s.roles.ReplacePermissions(ctx, role.ID, ids)
}

func (s *Seeder) department(ctx context.Context, d DepartmentSeed, res *Result) error {
	dept := &model.Department{Key: d.Key, Name: d.Name, Sort: orDefault(d.Sort), Active: true}
	if d.Parent != "" {
		parent, err := s.departments.GetByKey(ctx, d.Parent)
		if err != nil {
			return fmt.Errorf("部门 %s 的上级 %s: %w", d.Key, d.Parent, err)
		}
		dept.ParentID = &parent.ID
	}
	_, created, err := s.departments.FirstOrCreate(ctx, dept)
	if created {
		res.Departments++
	}
	return err
}

func (s *Seeder) menu(ctx context.Context, m MenuSeed, res *Result) error {
	menu := &model.Menu{
		Name:          m.Name,
		Icon:          m.Icon,
		RoutePath:     m.RoutePath,
		Component:     m.Component,
		ComponentName: m.ComponentName,
		Enabled:       true,
		Hidden:        m.Hidden,
		Sort:          orDefault(m.Sort),
	}
	if m.Permission != "" {
		perm, err := s.permissions.GetByKey(ctx, m.Permission)
		if err != nil {
			return fmt.Errorf("菜单 %s 的权限 %s: %w", m.Name, m.Permission, err)
		}
		menu.PermissionID = &perm.ID
	}
	_, created, err := s.menus.FirstOrCreate(ctx, menu)
	if created {
		res.Menus++
	}
	return err
}

func (s *Seeder) dictionary(ctx context.Context, d DictionarySeed, res *Result) error {
	dict := &model.Dictionary{
		Key:     d.Key,
		Name:    d.Name,
		Type:    d.Type,
		Enable:  true,
		Sort:    1,
		Comment: d.Comment,
	}
	for i, v := range d.Values {
		order := v.Sort
		if order == 0 {
			order = i + 1
		}
		dict.Children = append(dict.Children, model.DictionaryKeyValue{
			Name:   v.Name,
			Value:  v.Value,
			Type:   d.Type,
			Enable: true,
			Sort:   order,
			Color:  v.Color,
		})
	}
	_, created, err := s.dicts.FirstOrCreate(ctx, dict)
	if created {
		res.Dictionaries++
	}
	return err
}

func (s *Seeder) grant(ctx context.Context, g GrantSeed) error {
	user, err := s.users.GetByUsername(ctx, g.Username)
	if err != nil {
		return fmt.Errorf("授权 %s: %w", g.Username, err)
	}
	role, err := s.roles.GetByKey(ctx, g.Role)
	if err != nil {
		return fmt.Errorf("授权 %s: %w", g.Role, err)
	}
	return s.roles.AddMember(ctx, role.ID, user.ID)
}

func orDefault(n int) int {
	if n == 0 {
		return 1
	}
	return n
}
