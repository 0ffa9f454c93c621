package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"taible-storage-go/internal/config"
	"taible-storage-go/pkg/log"
)

// SystemHandler 负责健康检查和 API 信息端点。
type SystemHandler struct {
	cfg         *config.Config
	db          *gorm.DB
	redisClient *redis.Client
}

// NewSystemHandler 创建一个新的 SystemHandler 实例。
func NewSystemHandler(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *SystemHandler {
	return &SystemHandler{cfg: cfg, db: db, redisClient: redisClient}
}

// HealthData 是健康检查端点的响应数据。
type HealthData struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Database  bool   `json:"database"`
	Redis     bool   `json:"redis"`
	Storage   bool   `json:"storage"`
}

// Health 检查数据库、Redis 和对象存储配置的健康状态。
// 任一依赖不可用时整体状态为 unhealthy，返回 503。
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbHealthy := false
	if h.db != nil {
		if sqlDB, err := h.db.DB(); err == nil {
			if err := sqlDB.PingContext(ctx); err == nil {
				dbHealthy = true
			} else {
				log.Errorf("数据库健康检查失败: %v", err)
			}
		}
	}

	redisHealthy := false
	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err == nil {
			redisHealthy = true
		} else {
			log.Errorf("Redis健康检查失败: %v", err)
		}
	}

	// 对象存储只检查配置是否完整，不在健康检查里打外部调用
	storageHealthy := h.cfg.MinIO.Endpoint != "" &&
		h.cfg.MinIO.AccessKeyID != "" &&
		h.cfg.MinIO.SecretAccessKey != "" &&
		h.cfg.MinIO.BucketName != ""

	healthy := dbHealthy && redisHealthy && storageHealthy
	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Success: healthy,
		Data: HealthData{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.cfg.App.Version,
			Database:  dbHealthy,
			Redis:     redisHealthy,
			Storage:   storageHealthy,
		},
		Message: "健康检查完成",
		Code:    code,
	})
}

// Root 返回 API 的基本信息。
func (h *SystemHandler) Root(c *gin.Context) {
	OK(c, http.StatusOK, gin.H{
		"name":       h.cfg.App.Name,
		"version":    h.cfg.App.Version,
		"health_url": "/health",
	}, "欢迎使用文件存储API")
}
