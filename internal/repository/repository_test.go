package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite:///:memory:", database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })
	require.NoError(t, database.AutoMigrate(db, model.All()...))
	return db
}

func createUser(t *testing.T, repo UserRepository, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Password: "x", AccountType: model.AccountLocal, IsStaff: true}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestPaginationNormalize(t *testing.T) {
	p := &Pagination{}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)

	p = &Pagination{Page: 3, PageSize: 1000}
	p.Normalize()
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 2*MaxPageSize, p.Offset())
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	alice := createUser(t, repo, "alice")
	assert.NotZero(t, alice.ID)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, model.StatusActive, got.Status)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	ok, err := repo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Update(ctx, alice.ID, Fields{"display_name": "Alice", "mail": "a@x.io"}))
	got, _ = repo.GetByID(ctx, alice.ID)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, "a@x.io", got.Mail)

	assert.True(t, errors.Is(repo.Update(ctx, 999, Fields{"mail": "x"}), ErrUserNotFound))
	assert.NoError(t, repo.Update(ctx, 999, nil))
}

func TestUserRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	for _, name := range []string{"alice", "bob", "alina", "carol"} {
		createUser(t, repo, name)
	}

	users, total, err := repo.List(ctx, &UserFilter{Username: "al"}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(ctx, nil, &Pagination{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)
}

// 两次 first_or_create 只产生一行，且返回同一身份
func TestUserFirstOrCreateIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	u1, created, err := repo.FirstOrCreate(ctx, &model.User{Username: "admin", Password: "h1", DisplayName: "管理员"})
	require.NoError(t, err)
	assert.True(t, created)

	u2, created, err := repo.FirstOrCreate(ctx, &model.User{Username: "admin", Password: "h2", DisplayName: "改名"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, "管理员", u2.DisplayName)
	assert.Equal(t, "h1", u2.Password)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Where("username = ?", "admin").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDepartmentRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewDepartmentRepository(db)

	owner := createUser(t, users, "owner")
	root := &model.Department{Key: "root", Name: "总部", Active: true, OwnerID: &owner.ID}
	require.NoError(t, repo.Create(ctx, root))
	child := &model.Department{Key: "dev", Name: "研发部", ParentID: &root.ID}
	require.NoError(t, repo.Create(ctx, child))

	ok, _ := repo.ExistsByKey(ctx, "dev")
	assert.True(t, ok)

	children, err := repo.ListChildren(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "dev", children[0].Key)

	roots, total, err := repo.List(ctx, &DepartmentFilter{RootOnly: true}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "root", roots[0].Key)

	// 成员
	require.NoError(t, repo.AddMember(ctx, child.ID, owner.ID))
	require.NoError(t, repo.AddMember(ctx, child.ID, owner.ID))
	got, err := repo.GetByID(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)

	assert.True(t, errors.Is(repo.AddMember(ctx, child.ID, 999), ErrUserNotFound))
	assert.True(t, errors.Is(repo.AddMember(ctx, 999, owner.ID), ErrDepartmentNotFound))

	require.NoError(t, repo.RemoveMember(ctx, child.ID, owner.ID))
	got, _ = repo.GetByID(ctx, child.ID)
	assert.Empty(t, got.Members)

	got, _ = repo.GetByID(ctx, root.ID)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "owner", got.Owner.Username)

	// 有子部门时不能删除
	assert.True(t, errors.Is(repo.Delete(ctx, root.ID), ErrDepartmentHasChildren))
	require.NoError(t, repo.Delete(ctx, child.ID))
	require.NoError(t, repo.Delete(ctx, root.ID))
	assert.True(t, errors.Is(repo.Delete(ctx, root.ID), ErrDepartmentNotFound))
}

func TestRoleAndPermissionRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	roles := NewRoleRepository(db)
	perms := NewPermissionRepository(db)
	menus := NewMenuRepository(db)

	alice := createUser(t, users, "alice")

	userPerm := &model.Permission{Key: "user", Name: "用户管理"}
	require.NoError(t, perms.Create(ctx, userPerm))
	dictPerm := &model.Permission{Key: "dict", Name: "字典管理"}
	require.NoError(t, perms.Create(ctx, dictPerm))

	require.NoError(t, perms.AddAction(ctx, &model.Action{Name: "查看", Value: "user:read", API: "/user", Method: "GET", PermissionID: userPerm.ID}))
	assert.True(t, errors.Is(perms.AddAction(ctx, &model.Action{Name: "x", Value: "x", PermissionID: 999}), ErrPermissionNotFound))

	got, err := perms.GetByID(ctx, userPerm.ID)
	require.NoError(t, err)
	require.Len(t, got.Actions, 1)
	actionID := got.Actions[0].ID

	role := &model.Role{Key: "staff", Name: "员工"}
	require.NoError(t, roles.Create(ctx, role))
	require.NoError(t, roles.AddMember(ctx, role.ID, alice.ID))
	require.NoError(t, roles.ReplacePermissions(ctx, role.ID, []uint{userPerm.ID}))
	assert.True(t, errors.Is(roles.ReplacePermissions(ctx, role.ID, []uint{999}), ErrPermissionNotFound))

	ids, err := perms.IDsByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{userPerm.ID}, ids)

	userRoles, err := roles.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, userRoles, 1)
	assert.Equal(t, "staff", userRoles[0].Key)

	// 菜单可见性
	require.NoError(t, menus.Create(ctx, &model.Menu{Name: "首页", RoutePath: "/", Enabled: true}))
	require.NoError(t, menus.Create(ctx, &model.Menu{Name: "用户", RoutePath: "/user", Enabled: true, PermissionID: &userPerm.ID}))
	require.NoError(t, menus.Create(ctx, &model.Menu{Name: "字典", RoutePath: "/dict", Enabled: true, PermissionID: &dictPerm.ID}))
	require.NoError(t, menus.Create(ctx, &model.Menu{Name: "停用", RoutePath: "/off", Enabled: false}))

	visible, err := menus.ListVisible(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	visible, err = menus.ListVisible(ctx, nil)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "首页", visible[0].Name)

	all, err := menus.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// 删除操作与权限
	assert.True(t, errors.Is(perms.DeleteAction(ctx, dictPerm.ID, actionID), ErrActionNotFound))
	require.NoError(t, perms.DeleteAction(ctx, userPerm.ID, actionID))

	require.NoError(t, perms.Delete(ctx, userPerm.ID))
	ids, err = perms.IDsByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	menu, _, err := menus.FirstOrCreate(ctx, &model.Menu{Name: "用户", RoutePath: "/user"})
	require.NoError(t, err)
	assert.Nil(t, menu.PermissionID)

	// 删除角色清理关联
	require.NoError(t, roles.Delete(ctx, role.ID))
	userRoles, err = roles.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, userRoles)
	assert.True(t, errors.Is(roles.Delete(ctx, role.ID), ErrRoleNotFound))
}

func TestRoleFirstOrCreate(t *testing.T) {
	ctx := context.Background()
	roles := NewRoleRepository(newTestDB(t))

	r1, created, err := roles.FirstOrCreate(ctx, &model.Role{Key: model.RoleAdmin, Name: "管理员", Admin: true})
	require.NoError(t, err)
	assert.True(t, created)
	r2, created, err := roles.FirstOrCreate(ctx, &model.Role{Key: model.RoleAdmin, Name: "其他"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r1.ID, r2.ID)
	assert.True(t, r2.Admin)
}

func TestDictionaryRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewDictionaryRepository(db)

	gender := &model.Dictionary{Key: "gender", Name: "性别", Enable: true}
	require.NoError(t, repo.Create(ctx, gender))
	level := &model.Dictionary{Key: "level", Name: "等级", Enable: true}
	require.NoError(t, repo.Create(ctx, level))

	ok, _ := repo.ExistsByName(ctx, "性别")
	assert.True(t, ok)

	male := &model.DictionaryKeyValue{Name: "男", Value: "1", ParentID: gender.ID, Sort: 1}
	require.NoError(t, repo.CreateValue(ctx, male))
	require.NoError(t, repo.CreateValue(ctx, &model.DictionaryKeyValue{Name: "女", Value: "2", ParentID: gender.ID, Sort: 2}))
	require.NoError(t, repo.CreateValue(ctx, &model.DictionaryKeyValue{Name: "高", Value: "h", ParentID: level.ID}))

	got, err := repo.GetByKey(ctx, "gender")
	require.NoError(t, err)
	require.Len(t, got.Children, 2)
	assert.Equal(t, "男", got.Children[0].Name)

	// 键值按字典过滤
	_, err = repo.GetValue(ctx, level.ID, male.ID)
	assert.True(t, errors.Is(err, ErrDictionaryValueNotFound))
	v, err := repo.GetValue(ctx, gender.ID, male.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", v.Value)

	// 删除字典连同键值
	require.NoError(t, repo.Delete(ctx, gender.ID))
	var count int64
	require.NoError(t, db.Model(&model.DictionaryKeyValue{}).Where("parent_id = ?", gender.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&model.DictionaryKeyValue{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = repo.GetByKey(ctx, "gender")
	assert.True(t, errors.Is(err, ErrDictionaryNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, gender.ID), ErrDictionaryNotFound))

	require.NoError(t, repo.DeleteValue(ctx, level.ID, 3))
	assert.True(t, errors.Is(repo.DeleteValue(ctx, level.ID, 3), ErrDictionaryValueNotFound))
}

func TestRepositoryUsesContextTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	err := database.Transaction(ctx, db, func(ctx context.Context) error {
		if err := repo.Create(ctx, &model.User{Username: "ghost", Password: "x"}); err != nil {
			return err
		}
		ok, err := repo.ExistsByUsername(ctx, "ghost")
		require.NoError(t, err)
		assert.True(t, ok)
		return errors.New("rollback")
	})
	require.Error(t, err)

	ok, err := repo.ExistsByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}
