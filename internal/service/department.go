package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/pu-ac-cn/qual-backend/internal/repository"
)

var (
	ErrDepartmentKeyEmpty  = errors.New("部门编号不能为空")
	ErrDepartmentNameEmpty = errors.New("部门名称不能为空")
	ErrDepartmentCycle     = errors.New("上级部门不能是自身或下级部门")
)

// DepartmentInput 部门参数，指针字段为 nil 时不修改
// ParentID 指向 0 表示移到顶级
type DepartmentInput struct {
	Key      string
	Name     string
	Sort     *int
	Active   *bool
	OwnerID  *uint
	ParentID *uint
}

// DepartmentService 部门服务接口
type DepartmentService interface {
	Create(ctx context.Context, in *DepartmentInput) (*model.Department, error)
	GetByID(ctx context.Context, id uint) (*model.Department, error)
	Update(ctx context.Context, id uint, in *DepartmentInput) (*model.Department, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter *repository.DepartmentFilter, page *repository.Pagination) ([]*model.Department, int64, error)
	Children(ctx context.Context, id uint) ([]*model.Department, error)
	AddMember(ctx context.Context, id, userID uint) error
	RemoveMember(ctx context.Context, id, userID uint) error
}

type departmentService struct {
	repo     repository.DepartmentRepository
	userRepo repository.UserRepository
}

// NewDepartmentService 创建部门服务
func NewDepartmentService(repo repository.DepartmentRepository, userRepo repository.UserRepository) DepartmentService {
	return &departmentService{repo: repo, userRepo: userRepo}
}

func (s *departmentService) Create(ctx context.Context, in *DepartmentInput) (*model.Department, error) {
	dept := &model.Department{
		Key:    strings.TrimSpace(in.Key),
		Name:   strings.TrimSpace(in.Name),
		Sort:   1,
		Active: true,
	}
	if dept.Key == "" {
		return nil, ErrDepartmentKeyEmpty
	}
	if dept.Name == "" {
		return nil, ErrDepartmentNameEmpty
	}
	if in.Sort != nil {
		dept.Sort = *in.Sort
	}
	if in.Active != nil {
		dept.Active = *in.Active
	}

	exists, err := s.repo.ExistsByKey(ctx, dept.Key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrDepartmentKeyExists
	}

	if in.OwnerID != nil && *in.OwnerID != 0 {
		if _, err := s.userRepo.GetByID(ctx, *in.OwnerID); err != nil {
			return nil, err
		}
		dept.OwnerID = in.OwnerID
	}
	if in.ParentID != nil && *in.ParentID != 0 {
		if _, err := s.repo.GetByID(ctx, *in.ParentID); err != nil {
			return nil, err
		}
		dept.ParentID = in.ParentID
	}

	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

func (s *departmentService) GetByID(ctx context.Context, id uint) (*model.Department, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *departmentService) Update(ctx context.Context, id uint, in *DepartmentInput) (*model.Department, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := repository.Fields{}
	if key := strings.TrimSpace(in.Key); key != "" && key != current.Key {
		exists, err := s.repo.ExistsByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, repository.ErrDepartmentKeyExists
		}
		fields["key"] = key
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		fields["name"] = name
	}
	if in.Sort != nil {
		fields["sort"] = *in.Sort
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if in.OwnerID != nil {
		if *in.OwnerID == 0 {
			fields["owner_id"] = nil
		} else {
			if _, err := s.userRepo.GetByID(ctx, *in.OwnerID); err != nil {
				return nil, err
			}
			fields["owner_id"] = *in.OwnerID
		}
	}
	if in.ParentID != nil {
		if *in.ParentID == 0 {
			fields["parent_id"] = nil
		} else {
			if err := s.checkParent(ctx, id, *in.ParentID); err != nil {
				return nil, err
			}
			fields["parent_id"] = *in.ParentID
		}
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// checkParent 沿 parentID 向上走，遇到 id 说明会成环
func (s *departmentService) checkParent(ctx context.Context, id, parentID uint) error {
	seen := map[uint]struct{}{}
	for next := &parentID; next != nil; {
		if *next == id {
			return ErrDepartmentCycle
		}
		if _, ok := seen[*next]; ok {
			return ErrDepartmentCycle
		}
		seen[*next] = struct{}{}

		parent, err := s.repo.GetByID(ctx, *next)
		if err != nil {
			return err
		}
		next = parent.ParentID
	}
	return nil
}

func (s *departmentService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *departmentService) List(ctx context.Context, filter *repository.DepartmentFilter, page *repository.Pagination) ([]*model.Department, int64, error) {
	return s.repo.List(ctx, filter, page)
}

func (s *departmentService) Children(ctx context.Context, id uint) ([]*model.Department, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListChildren(ctx, id)
}

func (s *departmentService) AddMember(ctx context.Context, id, userID uint) error {
	return s.repo.AddMember(ctx, id, userID)
}

func (s *departmentService) RemoveMember(ctx context.Context, id, userID uint) error {
	return s.repo.RemoveMember(ctx, id, userID)
}
