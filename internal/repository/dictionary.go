package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"gorm.io/gorm"
)

var (
	ErrDictionaryNotFound      = errors.New("字典不存在")
	ErrDictionaryKeyExists     = errors.New("字典编号已存在")
	ErrDictionaryNameExists    = errors.New("字典名已存在")
	ErrDictionaryValueNotFound = errors.New("字典键值不存在")
)

// DictionaryRepository 字典仓库接口
type DictionaryRepository interface {
	Create(ctx context.Context, dict *model.Dictionary) error
	GetByID(ctx context.Context, id uint) (*model.Dictionary, error)
	GetByKey(ctx context.Context, key string) (*model.Dictionary, error)
	Update(ctx context.Context, id uint, fields Fields) error
	// Delete 删除字典及其全部键值
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page *Pagination) ([]*model.Dictionary, int64, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	FirstOrCreate(ctx context.Context, dict *model.Dictionary) (*model.Dictionary, bool, error)

	CreateValue(ctx context.Context, value *model.DictionaryKeyValue) error
	ListValues(ctx context.Context, dictID uint) ([]*model.DictionaryKeyValue, error)
	GetValue(ctx context.Context, dictID, id uint) (*model.DictionaryKeyValue, error)
	DeleteValue(ctx context.Context, dictID, id uint) error
}

type dictionaryRepository struct {
	base
}

// NewDictionaryRepository 创建字典仓库
func NewDictionaryRepository(db *gorm.DB) DictionaryRepository {
	return &dictionaryRepository{base{db: db}}
}

func (r *dictionaryRepository) Create(ctx context.Context, dict *model.Dictionary) error {
	return r.conn(ctx).Create(dict).Error
}

func (r *dictionaryRepository) GetByID(ctx context.Context, id uint) (*model.Dictionary, error) {
	return first[model.Dictionary](r.conn(ctx), ErrDictionaryNotFound, "id = ?", id)
}

func (r *dictionaryRepository) GetByKey(ctx context.Context, key string) (*model.Dictionary, error) {
	query := r.conn(ctx).Preload("Children", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort ASC, id ASC")
	})
	return first[model.Dictionary](query, ErrDictionaryNotFound, byKey(key))
}

func (r *dictionaryRepository) Update(ctx context.Context, id uint, fields Fields) error {
	return update[model.Dictionary](r.conn(ctx), id, fields, ErrDictionaryNotFound)
}

func (r *dictionaryRepository) Delete(ctx context.Context, id uint) error {
	dict := &model.Dictionary{BaseModel: model.BaseModel{ID: id}}
	result := r.conn(ctx).Select("Children").Delete(dict)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDictionaryNotFound
	}
	return nil
}

func (r *dictionaryRepository) List(ctx context.Context, page *Pagination) ([]*model.Dictionary, int64, error) {
	return paginate[model.Dictionary](r.conn(ctx).Model(&model.Dictionary{}), page, "sort ASC, id ASC")
}

func (r *dictionaryRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	return exists[model.Dictionary](r.conn(ctx), byKey(key))
}

func (r *dictionaryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return exists[model.Dictionary](r.conn(ctx), "name = ?", name)
}

// FirstOrCreate 按编号查找，不存在时连同键值一起创建
func (r *dictionaryRepository) FirstOrCreate(ctx context.Context, dict *model.Dictionary) (*model.Dictionary, bool, error) {
	existing, err := r.GetByKey(ctx, dict.Key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrDictionaryNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, dict); err != nil {
		return nil, false, err
	}
	return dict, true, nil
}

func (r *dictionaryRepository) CreateValue(ctx context.Context, value *model.DictionaryKeyValue) error {
	return r.conn(ctx).Create(value).Error
}

func (r *dictionaryRepository) ListValues(ctx context.Context, dictID uint) ([]*model.DictionaryKeyValue, error) {
	var values []*model.DictionaryKeyValue
	err := r.conn(ctx).Where("parent_id = ?", dictID).Order("sort ASC, id ASC").Find(&values).Error
	return values, err
}

func (r *dictionaryRepository) GetValue(ctx context.Context, dictID, id uint) (*model.DictionaryKeyValue, error) {
	return first[model.DictionaryKeyValue](r.conn(ctx), ErrDictionaryValueNotFound, "id = ? AND parent_id = ?", id, dictID)
}

func (r *dictionaryRepository) DeleteValue(ctx context.Context, dictID, id uint) error {
	result := r.conn(ctx).Where("id = ? AND parent_id = ?", id, dictID).Delete(&model.DictionaryKeyValue{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDictionaryValueNotFound
	}
	return nil
}
