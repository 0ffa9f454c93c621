package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taible-storage-go/internal/errs"
	"taible-storage-go/internal/service"
)

// UserHandler 负责处理所有与用户管理相关的 API 请求。
type UserHandler struct {
	userService service.UserService
	debug       bool
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService, debug bool) *UserHandler {
	return &UserHandler{userService: userService, debug: debug}
}

// CreateUserRequest 定义了创建用户 API 的请求体结构。
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Age   int    `json:"age" binding:"gte=0"`
}

// ListUsers 返回所有用户的列表。
func (h *UserHandler) ListUsers(c *gin.Context) {
	users := h.userService.ListUsers()
	OK(c, http.StatusOK, users, fmt.Sprintf("获取用户列表成功，共%d个用户", len(users)))
}

// GetUser 根据 id 返回用户信息。
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parseUserID(c)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	user, err := h.userService.GetUser(id)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	OK(c, http.StatusOK, user, "获取用户信息成功")
}

// CreateUser 处理创建新用户的请求。
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, errs.Validation("无效的请求负载: %v", err), h.debug)
		return
	}

	user, err := h.userService.CreateUser(service.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Age:   req.Age,
	})
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	OK(c, http.StatusCreated, user, "创建用户成功")
}

// DeleteUser 处理删除用户的请求。
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := parseUserID(c)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	if err := h.userService.DeleteUser(id); err != nil {
		Fail(c, err, h.debug)
		return
	}

	OK(c, http.StatusOK, nil, "删除用户成功")
}

// parseUserID 从路径参数中解析用户 id。
func parseUserID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errs.Validation("无效的用户ID: %s", raw)
	}
	return uint(id), nil
}
