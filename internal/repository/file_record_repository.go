// Package repository 定义了数据访问层的接口和实现。
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taible-storage-go/internal/model"
)

// FileRecordRepository 接口定义了文件记录的持久化操作。
// 所有操作都是单行事务，不提供批量接口，也不做乐观并发控制：
// 对同一 id 的并发更新遵循 last-writer-wins。
type FileRecordRepository interface {
	Create(ctx context.Context, record *model.FileRecord) error
	FindByID(ctx context.Context, id uint) (*model.FileRecord, error)
	// UpdateFields 对指定 id 执行部分字段更新并刷新 updated_at，
	// 随后返回更新后的记录。未找到时返回 gorm.ErrRecordNotFound。
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (*model.FileRecord, error)
}

// fileRecordRepository 是 FileRecordRepository 接口的 GORM 实现。
type fileRecordRepository struct {
	db *gorm.DB
}

// NewFileRecordRepository 创建一个新的 FileRecordRepository 实例。
func NewFileRecordRepository(db *gorm.DB) FileRecordRepository {
	return &fileRecordRepository{db: db}
}

// Create 在数据库中插入一条新的文件记录。
// file_key 上的唯一索引保证键冲突表现为插入失败而不是覆盖。
func (r *fileRecordRepository) Create(ctx context.Context, record *model.FileRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByID 根据 id 检索文件记录。
func (r *fileRecordRepository) FindByID(ctx context.Context, id uint) (*model.FileRecord, error) {
	var record model.FileRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateFields 只更新显式给出的字段，未给出的字段保持不变。
func (r *fileRecordRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (*model.FileRecord, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		err := r.db.WithContext(ctx).
			Model(&model.FileRecord{}).
			Where("id = ?", id).
			Updates(fields).Error
		if err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}
