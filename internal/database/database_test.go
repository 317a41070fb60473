package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open("sqlite:///:memory:", Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB(conn) })
	require.NoError(t, AutoMigrate(conn, &widget{}))
	return conn
}

// TestParseDSN 测试 DSN 解析
func TestParseDSN(t *testing.T) {
	tests := []struct {
		raw    string
		driver string
		name   string
		source string
	}{
		{"sqlite:///.db.sqlite", DriverSQLite, ".db.sqlite", ".db.sqlite"},
		{"sqlite:////var/lib/qual.sqlite", DriverSQLite, "/var/lib/qual.sqlite", "/var/lib/qual.sqlite"},
		{"sqlite:///:memory:", DriverSQLite, ":memory:", ":memory:"},
		{"postgres://qual:pw@db:5432/qual?sslmode=disable", DriverPostgres, "qual", "postgres://qual:pw@db:5432/qual?sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			dsn, err := ParseDSN(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, dsn.Driver)
			assert.Equal(t, tt.name, dsn.Name)
			assert.Equal(t, tt.source, dsn.Source)
		})
	}
}

func TestParseDSNPostgresAdmin(t *testing.T) {
	dsn, err := ParseDSN("postgresql://qual:pw@db:5432/qual?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "postgresql://qual:pw@db:5432/postgres?sslmode=disable", dsn.Admin)
}

func TestParseDSNMySQL(t *testing.T) {
	dsn, err := ParseDSN("mysql://root:pw@db:3306/qual?charset=utf8mb4")
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, dsn.Driver)
	assert.Equal(t, "qual", dsn.Name)
	assert.Contains(t, dsn.Source, "root:pw@tcp(db:3306)/qual")
	assert.Contains(t, dsn.Source, "parseTime=true")
	assert.Contains(t, dsn.Source, "charset=utf8mb4")
	assert.Contains(t, dsn.Admin, "root:pw@tcp(db:3306)/")
	assert.NotContains(t, dsn.Admin, "/qual")
}

func TestParseDSNErrors(t *testing.T) {
	for _, raw := range []string{
		"",
		".db.sqlite",
		"sqlite://",
		"oracle://x/y",
		"postgres://db:5432",
		"mysql://root@db:3306",
	} {
		_, err := ParseDSN(raw)
		assert.Error(t, err, raw)
	}
	_, err := ParseDSN("redis://x")
	assert.True(t, errors.Is(err, ErrUnsupportedDSN))
}

// TestSQLiteLifecycle 测试 sqlite 建库删库
func TestSQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	raw := "sqlite:///" + filepath.Join(t.TempDir(), "data", "qual.sqlite")

	ok, err := Exists(ctx, raw)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Create(ctx, raw))
	ok, err = Exists(ctx, raw)
	require.NoError(t, err)
	assert.True(t, ok)

	conn, err := Open(raw, Options{})
	require.NoError(t, err)
	require.NoError(t, Ping(ctx, conn))
	require.NoError(t, CloseDB(conn))

	require.NoError(t, Drop(ctx, raw))
	ok, err = Exists(ctx, raw)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryAlwaysExists(t *testing.T) {
	ok, err := Exists(context.Background(), "sqlite:///:memory:")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, Drop(context.Background(), "sqlite:///:memory:"))
}

func TestPingUninitialized(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))
	assert.Error(t, AutoMigrate(nil))
}

func TestTransactionCommitAndRollback(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	err := Transaction(ctx, conn, func(ctx context.Context) error {
		return Conn(ctx, conn).Create(&widget{Name: "kept"}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = Transaction(ctx, conn, func(ctx context.Context) error {
		if err := Conn(ctx, conn).Create(&widget{Name: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	var names []string
	require.NoError(t, conn.Model(&widget{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"kept"}, names)
}

func TestConnUsesContextTx(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	_, ok := TxFrom(ctx)
	assert.False(t, ok)

	tx := conn.Begin()
	txCtx := WithTx(ctx, tx)
	got, ok := TxFrom(txCtx)
	assert.True(t, ok)
	assert.Same(t, tx, got)

	require.NoError(t, Conn(txCtx, conn).Create(&widget{Name: "in-tx"}).Error)
	// 嵌套调用复用外层事务
	require.NoError(t, Transaction(txCtx, conn, func(ctx context.Context) error {
		return Conn(ctx, conn).Create(&widget{Name: "nested"}).Error
	}))
	require.NoError(t, tx.Rollback().Error)

	var count int64
	require.NoError(t, conn.Model(&widget{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInitAndClose(t *testing.T) {
	conn, err := Init("sqlite:///:memory:", Options{})
	require.NoError(t, err)
	assert.Same(t, conn, GetDB())
	require.NoError(t, Close())
	assert.Nil(t, GetDB())
	assert.NoError(t, Close())
}
