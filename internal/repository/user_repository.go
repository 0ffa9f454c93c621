package repository

import (
	"sync"
	"time"

	"taible-storage-go/internal/model"
)

// UserRepository 接口定义了用户数据的访问操作。
// 当前实现为内存列表，进程重启后数据丢失，仅支撑用户管理演示页面。
type UserRepository interface {
	FindAll() []model.User
	FindByID(id uint) (*model.User, bool)
	FindByEmail(email string) (*model.User, bool)
	Create(name, email string, age int) *model.User
	Delete(id uint) bool
}

// memoryUserRepository 是 UserRepository 的内存实现，用互斥锁保证并发安全。
type memoryUserRepository struct {
	mu     sync.Mutex
	users  []model.User
	nextID uint
}

// NewUserRepository 创建内存用户仓储并加载示例数据。
func NewUserRepository() UserRepository {
	now := time.Now().UTC()
	return &memoryUserRepository{
		users: []model.User{
			{ID: 1, Name: "张三", Email: "zhangsan@example.com", Age: 25, CreatedAt: now},
			{ID: 2, Name: "李四", Email: "lisi@example.com", Age: 30, CreatedAt: now},
		},
		nextID: 3,
	}
}

// FindAll 返回所有用户的副本。
func (r *memoryUserRepository) FindAll() []model.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.User, len(r.users))
	copy(out, r.users)
	return out
}

// FindByID 根据 id 查找用户。
func (r *memoryUserRepository) FindByID(id uint) (*model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			user := r.users[i]
			return &user, true
		}
	}
	return nil, false
}

// FindByEmail 根据邮箱查找用户。
func (r *memoryUserRepository) FindByEmail(email string) (*model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].Email == email {
			user := r.users[i]
			return &user, true
		}
	}
	return nil, false
}

// Create 追加一个新用户并分配自增 id。
func (r *memoryUserRepository) Create(name, email string, age int) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := model.User{
		ID:        r.nextID,
		Name:      name,
		Email:     email,
		Age:       age,
		CreatedAt: time.Now().UTC(),
	}
	r.users = append(r.users, user)
	r.nextID++
	return &user
}

// Delete 删除指定 id 的用户，返回是否删除成功。
func (r *memoryUserRepository) Delete(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return true
		}
	}
	return false
}
