package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pu-ac-cn/qual-backend/internal/database"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
	"github.com/pu-ac-cn/qual-backend/internal/sso"
	"github.com/pu-ac-cn/qual-backend/pkg/password"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// mockUserRepository 基于 map 的用户仓库
type mockUserRepository struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
	byName map[string]uint
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[uint]*model.User),
		byName: make(map[string]uint),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[user.Username]; exists {
		return repository.ErrUserUsernameExists
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.ID] = &stored
	m.byName[user.Username] = user.ID
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	id, ok := m.byName[username]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepository) Update(ctx context.Context, id uint, fields repository.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	for column, value := range fields {
		switch column {
		case "password":
			user.Password = value.(string)
		case "display_name":
			user.DisplayName = value.(string)
		case "mail":
			user.Mail = value.(string)
		case "status":
			user.Status = value.(model.UserStatus)
		case "last_login_at":
			at := value.(time.Time)
			user.LastLoginAt = &at
		}
	}
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.User
	for _, user := range m.users {
		if filter != nil && filter.Status != "" && string(user.Status) != filter.Status {
			continue
		}
		copied := *user
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byName[username]
	return ok, nil
}

func (m *mockUserRepository) FirstOrCreate(ctx context.Context, user *model.User) (*model.User, bool, error) {
	if existing, err := m.GetByUsername(ctx, user.Username); err == nil {
		return existing, false, nil
	}
	if err := m.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// fakeSSOClient 固定返回的单点登录客户端
type fakeSSOClient struct {
	configured bool
	resp       *sso.TokenResponse
	err        error
	calls      int
}

func (f *fakeSSOClient) ClientID() string                       { return "client" }
func (f *fakeSSOClient) Configured() bool                       { return f.configured }
func (f *fakeSSOClient) AuthorizeURL(redirectURI string) string { return "https://sso.test/authorize" }

func (f *fakeSSOClient) Exchange(ctx context.Context, code string, cred sso.Credentials) (*sso.TokenResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// 测试用的低成本哈希上下文
func newTestPasswords(t *testing.T) *password.Context {
	t.Helper()
	passwords, err := password.NewContext(password.Bcrypt(bcrypt.MinCost), password.Argon2id())
	if err != nil {
		t.Fatalf("创建哈希上下文失败: %v", err)
	}
	return passwords
}

// 内存 sqlite 数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite:///:memory:", database.Options{})
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { _ = database.CloseDB(db) })
	if err := database.AutoMigrate(db, model.All()...); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func ptr[T any](v T) *T { return &v }

func newRepoUser(t *testing.T, repo repository.UserRepository, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, AccountType: model.AccountLocal, Status: model.StatusActive, IsStaff: true}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user
}

// brokenScheme 哈希总是失败，校验委托给 bcrypt
type brokenScheme struct {
	password.Scheme
	err error
}

func (s brokenScheme) Name() string { return "broken" }

func (s brokenScheme) Hash(string) (string, error) { return "", s.err }
