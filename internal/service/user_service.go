package service

import (
	"taible-storage-go/internal/errs"
	"taible-storage-go/internal/model"
	"taible-storage-go/internal/repository"
	"taible-storage-go/pkg/log"
)

// CreateUserInput 是创建用户的输入。
type CreateUserInput struct {
	Name  string
	Email string
	Age   int
}

// UserService 接口定义了用户管理相关的业务操作。
type UserService interface {
	ListUsers() []model.User
	GetUser(id uint) (*model.User, error)
	CreateUser(input CreateUserInput) (*model.User, error)
	DeleteUser(id uint) error
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo repository.UserRepository
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// ListUsers 返回所有用户。
func (s *userService) ListUsers() []model.User {
	return s.userRepo.FindAll()
}

// GetUser 根据 id 获取用户。
func (s *userService) GetUser(id uint) (*model.User, error) {
	user, ok := s.userRepo.FindByID(id)
	if !ok {
		return nil, errs.NotFound("用户ID %d 不存在", id)
	}
	return user, nil
}

// CreateUser 创建新用户，邮箱重复时返回验证错误。
func (s *userService) CreateUser(input CreateUserInput) (*model.User, error) {
	if input.Name == "" {
		return nil, errs.Validation("用户名不能为空")
	}
	if input.Email == "" {
		return nil, errs.Validation("邮箱不能为空")
	}
	if _, exists := s.userRepo.FindByEmail(input.Email); exists {
		return nil, errs.Validation("邮箱 %s 已被使用", input.Email)
	}

	user := s.userRepo.Create(input.Name, input.Email, input.Age)
	log.Infof("创建用户成功: %s (ID: %d)", user.Name, user.ID)
	return user, nil
}

// DeleteUser 删除指定用户。
func (s *userService) DeleteUser(id uint) error {
	user, ok := s.userRepo.FindByID(id)
	if !ok {
		return errs.NotFound("用户ID %d 不存在", id)
	}

	s.userRepo.Delete(id)
	log.Infof("删除用户成功: %s (ID: %d)", user.Name, id)
	return nil
}
