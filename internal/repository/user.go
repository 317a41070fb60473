package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserUsernameExists = errors.New("用户名已存在")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, id uint, fields Fields) error
	List(ctx context.Context, filter *UserFilter, page *Pagination) ([]*model.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// FirstOrCreate 按用户名查找，不存在时创建；已存在的记录不做任何修改
	FirstOrCreate(ctx context.Context, user *model.User) (*model.User, bool, error)
}

type UserFilter struct {
	Username    string `form:"username"`
	Status      string `form:"status"`
	AccountType string `form:"account_type"`
}

type userRepository struct {
	base
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{base{db: db}}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.conn(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return first[model.User](r.conn(ctx), ErrUserNotFound, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return first[model.User](r.conn(ctx), ErrUserNotFound, "username = ?", username)
}

func (r *userRepository) Update(ctx context.Context, id uint, fields Fields) error {
	return update[model.User](r.conn(ctx), id, fields, ErrUserNotFound)
}

func (r *userRepository) List(ctx context.Context, filter *UserFilter, page *Pagination) ([]*model.User, int64, error) {
	query := r.conn(ctx).Model(&model.User{})
	if filter != nil {
		if filter.Username != "" {
			query = query.Where("username LIKE ?", "%"+filter.Username+"%")
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.AccountType != "" {
			query = query.Where("account_type = ?", filter.AccountType)
		}
	}
	return paginate[model.User](query, page, "id ASC")
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return exists[model.User](r.conn(ctx), "username = ?", username)
}

func (r *userRepository) FirstOrCreate(ctx context.Context, user *model.User) (*model.User, bool, error) {
	existing, err := r.GetByUsername(ctx, user.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
