package model

import "time"

// User 是用户管理模块的数据结构。
// 用户数据保存在内存列表中，不落库，仅用于演示用户管理页面。
type User struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
}
