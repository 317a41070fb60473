package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
)

var (
	ErrDictionaryKeyEmpty    = errors.New("字典编号不能为空")
	ErrDictionaryNameEmpty   = errors.New("字典名不能为空")
	ErrValueTypeInvalid      = errors.New("字典值类型无效")
	ErrDictionaryValueSchema = errors.New("键名和值不能为空")
)

// DictionaryInput 字典参数，指针字段为 nil 时不修改
type DictionaryInput struct {
	Key     string
	Name    string
	Type    *model.ValueType
	Enable  *bool
	Sort    *int
	Comment *string
}

// DictionaryValueInput 字典键值参数
type DictionaryValueInput struct {
	Name   string
	Value  string
	Type   *model.ValueType
	Enable *bool
	Sort   *int
	Color  string
}

// DictionaryService 字典服务接口，字典通过编号定位
type DictionaryService interface {
	Create(ctx context.Context, in *DictionaryInput) (*model.Dictionary, error)
	Get(ctx context.Context, key string) (*model.Dictionary, error)
	Update(ctx context.Context, key string, in *DictionaryInput) (*model.Dictionary, error)
	// Delete 删除字典及其全部键值
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, page *repository.Pagination) ([]*model.Dictionary, int64, error)

	AddValue(ctx context.Context, key string, in *DictionaryValueInput) (*model.DictionaryKeyValue, error)
	ListValues(ctx context.Context, key string) ([]*model.DictionaryKeyValue, error)
	GetValue(ctx context.Context, key string, id uint) (*model.DictionaryKeyValue, error)
	DeleteValue(ctx context.Context, key string, id uint) error
}

type dictionaryService struct {
	repo repository.DictionaryRepository
}

// NewDictionaryService 创建字典服务
func NewDictionaryService(repo repository.DictionaryRepository) DictionaryService {
	return &dictionaryService{repo: repo}
}

func (s *dictionaryService) Create(ctx context.Context, in *DictionaryInput) (*model.Dictionary, error) {
	dict := &model.Dictionary{
		Key:    strings.TrimSpace(in.Key),
		Name:   strings.TrimSpace(in.Name),
		Enable: true,
		Sort:   1,
	}
	if dict.Key == "" {
		return nil, ErrDictionaryKeyEmpty
	}
	if dict.Name == "" {
		return nil, ErrDictionaryNameEmpty
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, ErrValueTypeInvalid
		}
		dict.Type = *in.Type
	}
	if in.Enable != nil {
		dict.Enable = *in.Enable
	}
	if in.Sort != nil {
		dict.Sort = *in.Sort
	}
	if in.Comment != nil {
		dict.Comment = *in.Comment
	}

	if err := s.checkUnique(ctx, dict.Key, dict.Name); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, dict); err != nil {
		return nil, err
	}
	return dict, nil
}

func (s *dictionaryService) checkUnique(ctx context.Context, key, name string) error {
	if key != "" {
		exists, err := s.repo.ExistsByKey(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrDictionaryKeyExists
		}
	}
	if name != "" {
		exists, err := s.repo.ExistsByName(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrDictionaryNameExists
		}
	}
	return nil
}

func (s *dictionaryService) Get(ctx context.Context, key string) (*model.Dictionary, error) {
	return s.repo.GetByKey(ctx, key)
}

func (s *dictionaryService) Update(ctx context.Context, key string, in *DictionaryInput) (*model.Dictionary, error) {
	dict, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	fields := repository.Fields{}
	newKey := strings.TrimSpace(in.Key)
	if newKey == dict.Key {
		newKey = ""
	}
	newName := strings.TrimSpace(in.Name)
	if newName == dict.Name {
		newName = ""
	}
	if err := s.checkUnique(ctx, newKey, newName); err != nil {
		return nil, err
	}
	if newKey != "" {
		fields["key"] = newKey
	}
	if newName != "" {
		fields["name"] = newName
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, ErrValueTypeInvalid
		}
		fields["type"] = *in.Type
	}
	if in.Enable != nil {
		fields["enable"] = *in.Enable
	}
	if in.Sort != nil {
		fields["sort"] = *in.Sort
	}
	if in.Comment != nil {
		fields["comment"] = *in.Comment
	}

	if err := s.repo.Update(ctx, dict.ID, fields); err != nil {
		return nil, err
	}
	if newKey != "" {
		key = newKey
	}
	return s.repo.GetByKey(ctx, key)
}

func (s *dictionaryService) Delete(ctx context.Context, key string) error {
	dict, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, dict.ID)
}

func (s *dictionaryService) List(ctx context.Context, page *repository.Pagination) ([]*model.Dictionary, int64, error) {
	return s.repo.List(ctx, page)
}

func (s *dictionaryService) AddValue(ctx context.Context, key string, in *DictionaryValueInput) (*model.DictionaryKeyValue, error) {
	dict, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	value := &model.DictionaryKeyValue{
		Name:     strings.TrimSpace(in.Name),
		Value:    in.Value,
		Type:     dict.Type,
		Enable:   true,
		Sort:     1,
		Color:    in.Color,
		ParentID: dict.ID,
	}
	if value.Name == "" || value.Value == "" {
		return nil, ErrDictionaryValueSchema
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, ErrValueTypeInvalid
		}
		value.Type = *in.Type
	}
	if in.Enable != nil {
		value.Enable = *in.Enable
	}
	if in.Sort != nil {
		value.Sort = *in.Sort
	}

	if err := s.repo.CreateValue(ctx, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *dictionaryService) ListValues(ctx context.Context, key string) ([]*model.DictionaryKeyValue, error) {
	dict, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.repo.ListValues(ctx, dict.ID)
}

func (s *dictionaryService) GetValue(ctx context.Context, key string, id uint) (*model.DictionaryKeyValue, error) {
	dict, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.repo.GetValue(ctx, dict.ID, id)
}

func (s *dictionaryService) DeleteValue(ctx context.Context, key string, id uint) error {
	dict, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	return s.repo.DeleteValue(ctx, dict.ID, id)
}
