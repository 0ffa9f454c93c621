package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taible-storage-go/internal/errs"
	"taible-storage-go/internal/service"
	"taible-storage-go/pkg/log"
)

// StorageHandler 负责处理所有与文件存储相关的 API 请求。
type StorageHandler struct {
	storageService service.StorageService
	debug          bool
}

// NewStorageHandler 创建一个新的 StorageHandler 实例。
func NewStorageHandler(storageService service.StorageService, debug bool) *StorageHandler {
	return &StorageHandler{storageService: storageService, debug: debug}
}

// PresignedURLRequest 定义了获取预签名上传 URL 的请求体结构。
type PresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required"`
}

// UpdateFileRecordRequest 定义了部分更新文件记录的请求体结构。
type UpdateFileRecordRequest struct {
	UploadStatus *string `json:"upload_status"`
}

// CreatePresignedUploadURL 处理获取预签名上传 URL 的请求。
// 创建文件记录并生成预签名 URL，允许客户端直接上传文件到对象存储。
func (h *StorageHandler) CreatePresignedUploadURL(c *gin.Context) {
	var req PresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, errs.Validation("无效的请求负载: %v", err), h.debug)
		return
	}

	log.Infof("请求预签名上传URL: %s (%d bytes)", req.Filename, req.FileSize)

	result, err := h.storageService.CreatePresignedUpload(c.Request.Context(), service.CreatePresignedUploadInput{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
	})
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	OK(c, http.StatusOK, result, "预签名上传URL生成成功")
}

// GetFileRecord 处理根据 id 获取文件记录的请求。
func (h *StorageHandler) GetFileRecord(c *gin.Context) {
	id, err := parseFileID(c)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	record, err := h.storageService.GetFileRecord(c.Request.Context(), id)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	OK(c, http.StatusOK, record, "获取文件记录成功")
}

// UpdateFileRecord 处理部分更新文件记录的请求。
func (h *StorageHandler) UpdateFileRecord(c *gin.Context) {
	id, err := parseFileID(c)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	var req UpdateFileRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, errs.Validation("无效的请求负载: %v", err), h.debug)
		return
	}

	record, err := h.storageService.UpdateFileRecord(c.Request.Context(), id, service.FileRecordPatch{
		UploadStatus: req.UploadStatus,
	})
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	OK(c, http.StatusOK, record, "文件记录更新成功")
}

// GetDownloadURL 处理生成文件下载 URL 的请求，要求文件已上传完成。
func (h *StorageHandler) GetDownloadURL(c *gin.Context) {
	id, err := parseFileID(c)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	result, err := h.storageService.GetDownloadURL(c.Request.Context(), id)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	OK(c, http.StatusOK, result, "下载URL生成成功")
}

// MarkUploadComplete 处理标记文件上传完成的请求。
// 客户端通过预签名 URL 上传完成后调用此接口确认。
func (h *StorageHandler) MarkUploadComplete(c *gin.Context) {
	id, err := parseFileID(c)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	record, err := h.storageService.MarkUploadComplete(c.Request.Context(), id)
	if err != nil {
		Fail(c, err, h.debug)
		return
	}

	log.Infof("文件上传已完成: %d - %s", record.ID, record.Filename)
	OK(c, http.StatusOK, record, "文件上传完成")
}

// parseFileID 从路径参数中解析文件记录 id。
func parseFileID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errs.Validation("无效的文件记录ID: %s", raw)
	}
	return uint(id), nil
}
