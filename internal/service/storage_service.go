// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taible-storage-go/internal/errs"
	"taible-storage-go/internal/model"
	"taible-storage-go/internal/repository"
	"taible-storage-go/pkg/cache"
	"taible-storage-go/pkg/kafka"
	"taible-storage-go/pkg/log"
)

const (
	// PresignExpirySeconds 是预签名 URL 的固定有效期（1 小时）。
	PresignExpirySeconds = 3600
	// MaxFileSize 是单次上传允许的最大字节数（100 MiB）。
	MaxFileSize = 100 * 1024 * 1024

	maxFilenameLength    = 255
	maxContentTypeLength = 100

	// cacheNamespace 是预签名 URL 记忆化使用的缓存命名空间。
	cacheNamespace = "storage"
)

// ObjectStorage 抽象了对象存储客户端，便于在测试中替换为假实现。
type ObjectStorage interface {
	PresignedPutURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
	RemoveObject(ctx context.Context, key string) error
}

// UploadEventPublisher 抽象了上传完成事件的发布方。
type UploadEventPublisher interface {
	PublishUploadCompleted(ctx context.Context, event kafka.UploadCompletedEvent) error
}

// CreatePresignedUploadInput 是创建预签名上传请求的输入。
type CreatePresignedUploadInput struct {
	Filename    string
	ContentType string
	FileSize    int64
}

// PresignedUploadResult 是创建预签名上传请求的结果。
type PresignedUploadResult struct {
	UploadURL    string `json:"upload_url"`
	FileKey      string `json:"file_key"`
	ExpiresIn    int    `json:"expires_in"`
	FileRecordID uint   `json:"file_record_id"`
}

// DownloadURLResult 是生成下载 URL 的结果。
type DownloadURLResult struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	ExpiresIn   int    `json:"expires_in"`
}

// FileRecordPatch 描述文件记录的部分更新，nil 字段保持不变。
type FileRecordPatch struct {
	UploadStatus *string `json:"upload_status"`
}

// StorageService 接口定义了预签名上传生命周期的所有业务操作：
// 记录创建 -> URL 签发 -> 客户端上传 -> 完成确认 -> 下载授权。
type StorageService interface {
	CreatePresignedUpload(ctx context.Context, input CreatePresignedUploadInput) (*PresignedUploadResult, error)
	GetFileRecord(ctx context.Context, id uint) (*model.FileRecord, error)
	UpdateFileRecord(ctx context.Context, id uint, patch FileRecordPatch) (*model.FileRecord, error)
	MarkUploadComplete(ctx context.Context, id uint) (*model.FileRecord, error)
	GetDownloadURL(ctx context.Context, id uint) (*DownloadURLResult, error)
	ObjectExists(ctx context.Context, fileKey string) (bool, error)
	DeleteObject(ctx context.Context, fileKey string) (bool, error)
}

// storageService 是 StorageService 接口的实现。
type storageService struct {
	repo       repository.FileRecordRepository
	store      ObjectStorage
	cacheStore cache.Store
	publisher  UploadEventPublisher
	presignTTL time.Duration
}

// NewStorageService 创建一个新的 StorageService 实例。
// cacheStore 与 publisher 允许为 nil，对应的能力降级为空操作。
func NewStorageService(
	repo repository.FileRecordRepository,
	store ObjectStorage,
	cacheStore cache.Store,
	publisher UploadEventPublisher,
	presignTTL time.Duration,
) StorageService {
	return &storageService{
		repo:       repo,
		store:      store,
		cacheStore: cacheStore,
		publisher:  publisher,
		presignTTL: presignTTL,
	}
}

// CreatePresignedUpload 创建文件记录并生成预签名上传 URL。
// 输入验证在任何副作用之前完成；若 URL 签发失败，已插入的记录保持
// pending 状态，不做补偿回滚。
func (s *storageService) CreatePresignedUpload(ctx context.Context, input CreatePresignedUploadInput) (*PresignedUploadResult, error) {
	if err := validateUploadInput(input); err != nil {
		return nil, err
	}

	record := &model.FileRecord{
		Filename:     input.Filename,
		FileKey:      generateFileKey(input.Filename),
		FileSize:     input.FileSize,
		ContentType:  input.ContentType,
		UploadStatus: model.UploadStatusPending,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		log.Error("创建文件记录失败", err)
		return nil, errs.Service("创建文件记录失败", err)
	}
	log.Infof("文件记录已创建: %d - %s", record.ID, record.Filename)

	uploadURL, err := s.generatePresignedUploadURL(ctx, record.FileKey, input.ContentType, PresignExpirySeconds)
	if err != nil {
		log.Errorf("生成预签名上传URL失败: key=%s, error: %v", record.FileKey, err)
		return nil, errs.Service("生成预签名上传URL失败", err)
	}

	return &PresignedUploadResult{
		UploadURL:    uploadURL,
		FileKey:      record.FileKey,
		ExpiresIn:    PresignExpirySeconds,
		FileRecordID: record.ID,
	}, nil
}

// GetFileRecord 根据 id 获取文件记录。
func (s *storageService) GetFileRecord(ctx context.Context, id uint) (*model.FileRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("文件记录不存在: %d", id)
		}
		log.Error("查询文件记录失败", err)
		return nil, errs.Service("查询文件记录失败", err)
	}
	return record, nil
}

// UpdateFileRecord 对文件记录做部分更新，只写入显式给出的字段。
// 状态字段受状态机约束：仅允许 pending -> completed / pending -> failed，
// 重申当前状态视为无操作成功。
func (s *storageService) UpdateFileRecord(ctx context.Context, id uint, patch FileRecordPatch) (*model.FileRecord, error) {
	record, err := s.GetFileRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if patch.UploadStatus != nil {
		next := *patch.UploadStatus
		if !model.IsValidUploadStatus(next) {
			return nil, errs.Validation("无效的上传状态: %s", next)
		}
		if !model.CanTransitionTo(record.UploadStatus, next) {
			return nil, errs.Validation("非法的状态迁移: %s -> %s", record.UploadStatus, next)
		}
		if next != record.UploadStatus {
			fields["upload_status"] = next
		}
	}

	if len(fields) == 0 {
		return record, nil
	}

	updated, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("文件记录不存在: %d", id)
		}
		log.Error("更新文件记录失败", err)
		return nil, errs.Service("更新文件记录失败", err)
	}
	log.Infof("文件记录已更新: %d", id)
	return updated, nil
}

// MarkUploadComplete 将文件记录标记为上传完成，并发布完成事件。
func (s *storageService) MarkUploadComplete(ctx context.Context, id uint) (*model.FileRecord, error) {
	completed := model.UploadStatusCompleted
	record, err := s.UpdateFileRecord(ctx, id, FileRecordPatch{UploadStatus: &completed})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := kafka.UploadCompletedEvent{
			FileRecordID: record.ID,
			FileKey:      record.FileKey,
			Filename:     record.Filename,
			ContentType:  record.ContentType,
			FileSize:     record.FileSize,
			CompletedAt:  time.Now().UTC(),
		}
		if err := s.publisher.PublishUploadCompleted(ctx, event); err != nil {
			// 事件发布是 best-effort，失败不影响请求结果
			log.Errorf("发布上传完成事件失败: id=%d, error: %v", record.ID, err)
		}
	}
	return record, nil
}

// GetDownloadURL 为已完成上传的文件生成预签名下载 URL。
// 状态不是 completed 时直接失败，不会访问对象存储。
func (s *storageService) GetDownloadURL(ctx context.Context, id uint) (*DownloadURLResult, error) {
	record, err := s.GetFileRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.UploadStatus != model.UploadStatusCompleted {
		return nil, errs.PreconditionFailed("文件尚未上传完成")
	}

	downloadURL, err := s.generatePresignedDownloadURL(ctx, record.FileKey, PresignExpirySeconds)
	if err != nil {
		log.Errorf("生成预签名下载URL失败: key=%s, error: %v", record.FileKey, err)
		return nil, errs.Service("生成预签名下载URL失败", err)
	}

	return &DownloadURLResult{
		DownloadURL: downloadURL,
		Filename:    record.Filename,
		ExpiresIn:   PresignExpirySeconds,
	}, nil
}

// ObjectExists 检查对象键是否存在于对象存储中。
func (s *storageService) ObjectExists(ctx context.Context, fileKey string) (bool, error) {
	exists, err := s.store.ObjectExists(ctx, fileKey)
	if err != nil {
		log.Errorf("检查文件存在失败: key=%s, error: %v", fileKey, err)
		return false, errs.Service("检查文件存在失败", err)
	}
	return exists, nil
}

// DeleteObject 删除对象存储中的对象。删除不存在的键视为成功（幂等）。
// 注意只删除对象本身，不删除对应的文件记录。
func (s *storageService) DeleteObject(ctx context.Context, fileKey string) (bool, error) {
	if err := s.store.RemoveObject(ctx, fileKey); err != nil {
		log.Errorf("删除文件失败: key=%s, error: %v", fileKey, err)
		return false, errs.Service("删除文件失败", err)
	}
	log.Infof("文件已删除: %s", fileKey)
	return true, nil
}

// generatePresignedUploadURL 生成预签名上传 URL，结果经缓存记忆化。
// 缓存命中时逐字节返回之前签发的 URL；缓存 TTL 可能长于 URL 剩余有效期，
// 这是已接受的陈旧性权衡。
func (s *storageService) generatePresignedUploadURL(ctx context.Context, fileKey, contentType string, expiresIn int) (string, error) {
	key := cache.BuildKey(cacheNamespace, "generate_presigned_upload_url", fileKey, contentType, expiresIn)
	return cache.GetOrLoad(ctx, s.cacheStore, key, s.presignTTL, func() (string, error) {
		return s.store.PresignedPutURL(ctx, fileKey, contentType, time.Duration(expiresIn)*time.Second)
	})
}

// generatePresignedDownloadURL 生成预签名下载 URL，结果经缓存记忆化。
func (s *storageService) generatePresignedDownloadURL(ctx context.Context, fileKey string, expiresIn int) (string, error) {
	key := cache.BuildKey(cacheNamespace, "generate_presigned_download_url", fileKey, expiresIn)
	return cache.GetOrLoad(ctx, s.cacheStore, key, s.presignTTL, func() (string, error) {
		return s.store.PresignedGetURL(ctx, fileKey, time.Duration(expiresIn)*time.Second)
	})
}

// validateUploadInput 验证创建预签名上传请求的输入，违规时返回验证错误。
func validateUploadInput(input CreatePresignedUploadInput) error {
	switch {
	case input.Filename == "":
		return errs.Validation("文件名不能为空")
	case len(input.Filename) > maxFilenameLength:
		return errs.Validation("文件名长度不能超过 %d 个字符", maxFilenameLength)
	case len(input.ContentType) > maxContentTypeLength:
		return errs.Validation("文件类型长度不能超过 %d 个字符", maxContentTypeLength)
	case input.FileSize < 1 || input.FileSize > MaxFileSize:
		return errs.Validation("文件大小必须在 1 到 %d 字节之间", MaxFileSize)
	}
	return nil
}

// generateFileKey 生成全局唯一的文件存储键名。
// 格式: uploads/{year}/{month:02d}/{uuid}_{sanitized-filename}
func generateFileKey(filename string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("uploads/%d/%02d/%s_%s",
		now.Year(), int(now.Month()), uuid.NewString(), sanitizeFilename(filename))
}

// sanitizeFilename 清理文件名，只保留字母、数字以及 . - _ 三种字符。
// 清理是幂等的：对已清理的名字再清理一次结果不变。
func sanitizeFilename(filename string) string {
	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
