package seed

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/discover"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

func testPasswords(t *testing.T) *password.Context {
	t.Helper()
	ctx, err := password.NewContext(password.Bcrypt(bcrypt.MinCost))
	require.NoError(t, err)
	return ctx
}

func TestLoadEmbedded(t *testing.T) {
	files, err := Load(Files())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "seed", files[0].Path)
	assert.Equal(t, "user/seed_admin", files[1].Path)

	admin := files[1]
	require.Len(t, admin.Users, 1)
	assert.Equal(t, "admin", admin.Users[0].Username)
	assert.Equal(t, model.DataScopeAll, admin.Roles[0].DataScope)
}

func TestLoadIgnoresOtherFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"seed.yaml":         {Data: []byte("users: [{username: a, password: secret1}]")},
		"notes.yaml":        {Data: []byte("users: [{username: b}]")},
		"x/seed_extra.yaml": {Data: []byte("roles: [{key: r, name: R}]")},
		"x/seed.txt":        {Data: []byte("ignored")},
	}

	files, err := Load(fsys)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "seed", files[0].Path)
	assert.Equal(t, "x/seed_extra", files[1].Path)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(fstest.MapFS{"seed.yaml": {Data: []byte("users: [")}})
	assert.Error(t, err)
}

func TestPatternIsNotReserved(t *testing.T) {
	_, err := discover.AutoDiscover(fstest.MapFS{}, Pattern, Ext, loadFile)
	assert.NoError(t, err)
}

func TestRunEmbedded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	files, err := Load(Files())
	require.NoError(t, err)

	s := NewSeeder(db, testPasswords(t), nil)
	res, err := s.Run(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Users)
	assert.Equal(t, 1, res.Roles)
	assert.Equal(t, 2, res.Permissions)
	assert.Equal(t, 3, res.Menus)
	assert.Equal(t, 2, res.Dictionaries)

	users := repository.NewUserRepository(db)
	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, testPasswords(t).Verify("admin", admin.Password))
	assert.Equal(t, model.AccountLocal, admin.AccountType)
	assert.True(t, admin.IsActive())

	roles, err := repository.NewRoleRepository(db).ListByUser(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.True(t, roles[0].Admin)

	dicts := repository.NewDictionaryRepository(db)
	gender, err := dicts.GetByKey(ctx, "gender")
	require.NoError(t, err)
	values, err := dicts.ListValues(ctx, gender.ID)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "男", values[0].Name)
	assert.Equal(t, 1, values[0].Sort)
}

// TestRunIsIdempotent 重复执行不新增也不修改
func TestRunIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	files, err := Load(Files())
	require.NoError(t, err)
	s := NewSeeder(db, testPasswords(t), nil)

	_, err = s.Run(ctx, files)
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NoError(t, users.Update(ctx, admin.ID, repository.Fields{"display_name": "改过的名字"}))

	res, err := s.Run(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, Result{}, *res)

	admin, err = users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "改过的名字", admin.DisplayName)

	var count int64
	require.NoError(t, db.Model(&model.DictionaryKeyValue{}).Count(&count).Error)
	assert.EqualValues(t, 7, count)
}

func TestRunRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	files := []*File{{
		Path:  "seed",
		Users: []UserSeed{{Username: "ops", Password: "secret1"}},
		Menus: []MenuSeed{{Name: "坏菜单", Permission: "missing"}},
	}}

	_, err := NewSeeder(db, testPasswords(t), nil).Run(context.Background(), files)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrPermissionNotFound)

	exists, err := repository.NewUserRepository(db).ExistsByUsername(context.Background(), "ops")
	require.NoError(t, err)
	assert.False(t, exists)
}
