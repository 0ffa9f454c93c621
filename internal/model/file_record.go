// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 上传状态的合法取值。状态机：pending -> completed / pending -> failed，
// completed 和 failed 为终态。
const (
	UploadStatusPending   = "pending"
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
)

// FileRecord 定义了 file_records 表的 ORM 模型。
// 每一行跟踪一次预签名上传的元数据和状态。
type FileRecord struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename     string     `gorm:"type:varchar(255);not null" json:"filename"`
	FileKey      string     `gorm:"type:varchar(500);not null;uniqueIndex" json:"file_key"`
	FileSize     int64      `gorm:"not null" json:"file_size"`
	ContentType  string     `gorm:"type:varchar(100);not null" json:"content_type"`
	UploadStatus string     `gorm:"type:varchar(20);not null;default:pending" json:"upload_status"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	// UpdatedAt 在首次更新前保持 NULL，由 repository 层显式维护。
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false;default:null" json:"updated_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (FileRecord) TableName() string {
	return "file_records"
}

// IsValidUploadStatus 判断给定字符串是否为合法的上传状态。
func IsValidUploadStatus(status string) bool {
	switch status {
	case UploadStatusPending, UploadStatusCompleted, UploadStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo 判断从当前状态迁移到目标状态是否合法。
// 只允许 pending -> completed 和 pending -> failed，终态不可再迁出。
func CanTransitionTo(from, to string) bool {
	if from == to {
		return true
	}
	return from == UploadStatusPending &&
		(to == UploadStatusCompleted || to == UploadStatusFailed)
}
