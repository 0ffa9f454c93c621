package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taible-storage-go/internal/errs"
	"taible-storage-go/internal/model"
	"taible-storage-go/pkg/cache"
	"taible-storage-go/pkg/kafka"
)

// fakeFileRepo 是 FileRecordRepository 的内存假实现。
type fakeFileRepo struct {
	records   map[uint]*model.FileRecord
	nextID    uint
	createErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{records: map[uint]*model.FileRecord{}, nextID: 1}
}

func (r *fakeFileRepo) Create(ctx context.Context, record *model.FileRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	record.ID = r.nextID
	record.CreatedAt = time.Now().UTC()
	r.nextID++
	stored := *record
	r.records[record.ID] = &stored
	return nil
}

func (r *fakeFileRepo) FindByID(ctx context.Context, id uint) (*model.FileRecord, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *fakeFileRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (*model.FileRecord, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if status, ok := fields["upload_status"]; ok {
		record.UploadStatus = status.(string)
	}
	now := time.Now().UTC()
	record.UpdatedAt = &now
	clone := *record
	return &clone, nil
}

// fakeObjectStorage 是 ObjectStorage 的假实现，URL 中带调用序号，
// 以便区分缓存命中和新签发。
type fakeObjectStorage struct {
	putCalls int
	getCalls int
	putErr   error
	getErr   error
	removed  []string
	existing map[string]bool
}

func (f *fakeObjectStorage) PresignedPutURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	f.putCalls++
	if f.putErr != nil {
		return "", f.putErr
	}
	return fmt.Sprintf("https://minio.test/%s?method=put&n=%d", key, f.putCalls), nil
}

func (f *fakeObjectStorage) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	f.getCalls++
	if f.getErr != nil {
		return "", f.getErr
	}
	return fmt.Sprintf("https://minio.test/%s?method=get&n=%d", key, f.getCalls), nil
}

func (f *fakeObjectStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	return f.existing[key], nil
}

func (f *fakeObjectStorage) RemoveObject(ctx context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

// memCacheStore 是 cache.Store 的内存假实现。
type memCacheStore struct {
	data map[string]string
}

func newMemCacheStore() *memCacheStore {
	return &memCacheStore{data: map[string]string{}}
}

func (s *memCacheStore) Get(ctx context.Context, key string) (string, bool) {
	value, ok := s.data[key]
	return value, ok
}

func (s *memCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	s.data[key] = fmt.Sprint(value)
	return true
}

func (s *memCacheStore) Delete(ctx context.Context, key string) bool {
	_, ok := s.data[key]
	delete(s.data, key)
	return ok
}

func (s *memCacheStore) Exists(ctx context.Context, key string) bool {
	_, ok := s.data[key]
	return ok
}

// fakePublisher 记录发布的上传完成事件。
type fakePublisher struct {
	events []kafka.UploadCompletedEvent
	err    error
}

func (p *fakePublisher) PublishUploadCompleted(ctx context.Context, event kafka.UploadCompletedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newTestService(repo *fakeFileRepo, store *fakeObjectStorage, cacheStore *memCacheStore, publisher *fakePublisher) StorageService {
	var cs cache.Store
	if cacheStore != nil {
		cs = cacheStore
	}
	var pub UploadEventPublisher
	if publisher != nil {
		pub = publisher
	}
	return NewStorageService(repo, store, cs, pub, 5*time.Minute)
}

var fileKeyPattern = regexp.MustCompile(`^uploads/\d{4}/\d{2}/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}_report\.pdf$`)

func TestCreatePresignedUpload(t *testing.T) {
	repo := newFakeFileRepo()
	store := &fakeObjectStorage{}
	svc := newTestService(repo, store, nil, nil)

	result, err := svc.CreatePresignedUpload(context.Background(), CreatePresignedUploadInput{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		FileSize:    2048,
	})
	require.NoError(t, err)

	assert.Regexp(t, fileKeyPattern, result.FileKey)
	assert.Equal(t, PresignExpirySeconds, result.ExpiresIn)
	assert.NotEmpty(t, result.UploadURL)

	// 恰好持久化了一条 pending 记录
	require.Len(t, repo.records, 1)
	record := repo.records[result.FileRecordID]
	require.NotNil(t, record)
	assert.Equal(t, model.UploadStatusPending, record.UploadStatus)
	assert.Equal(t, "report.pdf", record.Filename)
	assert.Equal(t, result.FileKey, record.FileKey)
	assert.Nil(t, record.UpdatedAt)
}

func TestCreatePresignedUpload_ValidationBeforeSideEffects(t *testing.T) {
	tests := []struct {
		name  string
		input CreatePresignedUploadInput
	}{
		{"空文件名", CreatePresignedUploadInput{Filename: "", ContentType: "text/plain", FileSize: 10}},
		{"文件名过长", CreatePresignedUploadInput{Filename: makeLongString(256), ContentType: "text/plain", FileSize: 10}},
		{"类型过长", CreatePresignedUploadInput{Filename: "a.txt", ContentType: makeLongString(101), FileSize: 10}},
		{"大小为零", CreatePresignedUploadInput{Filename: "a.txt", ContentType: "text/plain", FileSize: 0}},
		{"大小为负", CreatePresignedUploadInput{Filename: "a.txt", ContentType: "text/plain", FileSize: -5}},
		{"超过上限", CreatePresignedUploadInput{Filename: "a.txt", ContentType: "text/plain", FileSize: MaxFileSize + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeFileRepo()
			store := &fakeObjectStorage{}
			svc := newTestService(repo, store, nil, nil)

			_, err := svc.CreatePresignedUpload(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errs.IsType(err, errs.TypeValidation))
			// 验证失败不产生任何副作用
			assert.Empty(t, repo.records)
			assert.Zero(t, store.putCalls)
		})
	}
}

func TestCreatePresignedUpload_MaxSizeBoundary(t *testing.T) {
	repo := newFakeFileRepo()
	svc := newTestService(repo, &fakeObjectStorage{}, nil, nil)

	_, err := svc.CreatePresignedUpload(context.Background(), CreatePresignedUploadInput{
		Filename:    "big.bin",
		ContentType: "application/octet-stream",
		FileSize:    MaxFileSize,
	})
	require.NoError(t, err)
}

func TestCreatePresignedUpload_PresignFailureLeavesPendingRecord(t *testing.T) {
	repo := newFakeFileRepo()
	store := &fakeObjectStorage{putErr: errors.New("credentials rejected")}
	svc := newTestService(repo, store, nil, nil)

	_, err := svc.CreatePresignedUpload(context.Background(), CreatePresignedUploadInput{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		FileSize:    2048,
	})
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.TypeService))

	// 签发失败后记录保持 pending，不做补偿回滚
	require.Len(t, repo.records, 1)
	assert.Equal(t, model.UploadStatusPending, repo.records[1].UploadStatus)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report (1).pdf", "myreport1.pdf"},
		{"a/b\\c:d.txt", "abcd.txt"},
		{"文件 name_v2-final.doc", "name_v2-final.doc"},
		{"...", "..."},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "输入: %q", tt.in)
		// 清理是幂等的
		assert.Equal(t, tt.want, sanitizeFilename(sanitizeFilename(tt.in)))
	}
}

func TestGeneratePresignedUploadURL_Memoized(t *testing.T) {
	store := &fakeObjectStorage{}
	cacheStore := newMemCacheStore()
	svc := NewStorageService(newFakeFileRepo(), store, cacheStore, nil, 5*time.Minute).(*storageService)
	ctx := context.Background()

	first, err := svc.generatePresignedUploadURL(ctx, "uploads/2025/09/abc_a.txt", "text/plain", 3600)
	require.NoError(t, err)
	second, err := svc.generatePresignedUploadURL(ctx, "uploads/2025/09/abc_a.txt", "text/plain", 3600)
	require.NoError(t, err)

	// 参数相同且在 TTL 内：逐字节相同的 URL，不再访问对象存储
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.putCalls)

	// 不同的对象键触发新的签发
	third, err := svc.generatePresignedUploadURL(ctx, "uploads/2025/09/def_b.txt", "text/plain", 3600)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, store.putCalls)
}

func TestGeneratePresignedUploadURL_NoCacheBackend(t *testing.T) {
	store := &fakeObjectStorage{}
	svc := NewStorageService(newFakeFileRepo(), store, nil, nil, 5*time.Minute).(*storageService)
	ctx := context.Background()

	_, err := svc.generatePresignedUploadURL(ctx, "uploads/2025/09/abc_a.txt", "text/plain", 3600)
	require.NoError(t, err)
	_, err = svc.generatePresignedUploadURL(ctx, "uploads/2025/09/abc_a.txt", "text/plain", 3600)
	require.NoError(t, err)

	// 缓存缺失时每次都重新签发
	assert.Equal(t, 2, store.putCalls)
}

func TestGetFileRecord_NotFound(t *testing.T) {
	svc := newTestService(newFakeFileRepo(), &fakeObjectStorage{}, nil, nil)

	_, err := svc.GetFileRecord(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.TypeNotFound))
}

func TestUpdateFileRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("不存在的记录", func(t *testing.T) {
		repo := newFakeFileRepo()
		svc := newTestService(repo, &fakeObjectStorage{}, nil, nil)
		status := model.UploadStatusCompleted
		_, err := svc.UpdateFileRecord(ctx, 99, FileRecordPatch{UploadStatus: &status})
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.TypeNotFound))
	})

	t.Run("合法迁移刷新updated_at", func(t *testing.T) {
		repo := newFakeFileRepo()
		svc := newTestService(repo, &fakeObjectStorage{}, nil, nil)
		created := mustCreate(t, svc)

		status := model.UploadStatusFailed
		updated, err := svc.UpdateFileRecord(ctx, created.FileRecordID, FileRecordPatch{UploadStatus: &status})
		require.NoError(t, err)
		assert.Equal(t, model.UploadStatusFailed, updated.UploadStatus)
		assert.NotNil(t, updated.UpdatedAt)
	})

	t.Run("空补丁为无操作", func(t *testing.T) {
		repo := newFakeFileRepo()
		svc := newTestService(repo, &fakeObjectStorage{}, nil, nil)
		created := mustCreate(t, svc)

		record, err := svc.UpdateFileRecord(ctx, created.FileRecordID, FileRecordPatch{})
		require.NoError(t, err)
		assert.Equal(t, model.UploadStatusPending, record.UploadStatus)
		assert.Nil(t, record.UpdatedAt)
	})

	t.Run("非法状态值", func(t *testing.T) {
		repo := newFakeFileRepo()
		svc := newTestService(repo, &fakeObjectStorage{}, nil, nil)
		created := mustCreate(t, svc)

		status := "uploading"
		_, err := svc.UpdateFileRecord(ctx, created.FileRecordID, FileRecordPatch{UploadStatus: &status})
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.TypeValidation))
	})

	t.Run("终态不可迁出", func(t *testing.T) {
		repo := newFakeFileRepo()
		svc := newTestService(repo, &fakeObjectStorage{}, nil, nil)
		created := mustCreate(t, svc)

		_, err := svc.MarkUploadComplete(ctx, created.FileRecordID)
		require.NoError(t, err)

		status := model.UploadStatusPending
		_, err = svc.UpdateFileRecord(ctx, created.FileRecordID, FileRecordPatch{UploadStatus: &status})
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.TypeValidation))
	})
}

func TestMarkUploadComplete_PublishesEvent(t *testing.T) {
	repo := newFakeFileRepo()
	publisher := &fakePublisher{}
	svc := newTestService(repo, &fakeObjectStorage{}, nil, publisher)
	created := mustCreate(t, svc)

	record, err := svc.MarkUploadComplete(context.Background(), created.FileRecordID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusCompleted, record.UploadStatus)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, created.FileRecordID, publisher.events[0].FileRecordID)
	assert.Equal(t, created.FileKey, publisher.events[0].FileKey)
}

func TestMarkUploadComplete_PublishFailureIsBestEffort(t *testing.T) {
	repo := newFakeFileRepo()
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(repo, &fakeObjectStorage{}, nil, publisher)
	created := mustCreate(t, svc)

	record, err := svc.MarkUploadComplete(context.Background(), created.FileRecordID)
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusCompleted, record.UploadStatus)
}

func TestGetDownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("pending状态被拒绝且不访问对象存储", func(t *testing.T) {
		repo := newFakeFileRepo()
		store := &fakeObjectStorage{}
		svc := newTestService(repo, store, nil, nil)
		created := mustCreate(t, svc)

		_, err := svc.GetDownloadURL(ctx, created.FileRecordID)
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.TypePreconditionFailed))
		assert.Zero(t, store.getCalls)
	})

	t.Run("completed状态签发下载URL", func(t *testing.T) {
		repo := newFakeFileRepo()
		store := &fakeObjectStorage{}
		svc := newTestService(repo, store, nil, nil)
		created := mustCreate(t, svc)

		_, err := svc.MarkUploadComplete(ctx, created.FileRecordID)
		require.NoError(t, err)

		result, err := svc.GetDownloadURL(ctx, created.FileRecordID)
		require.NoError(t, err)
		assert.NotEmpty(t, result.DownloadURL)
		assert.Equal(t, "report.pdf", result.Filename)
		assert.Equal(t, PresignExpirySeconds, result.ExpiresIn)
	})

	t.Run("不存在的记录", func(t *testing.T) {
		svc := newTestService(newFakeFileRepo(), &fakeObjectStorage{}, nil, nil)
		_, err := svc.GetDownloadURL(ctx, 404)
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.TypeNotFound))
	})
}

func TestObjectExistsAndDeleteObject(t *testing.T) {
	store := &fakeObjectStorage{existing: map[string]bool{"uploads/x": true}}
	svc := newTestService(newFakeFileRepo(), store, nil, nil)
	ctx := context.Background()

	exists, err := svc.ObjectExists(ctx, "uploads/x")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.ObjectExists(ctx, "uploads/y")
	require.NoError(t, err)
	assert.False(t, exists)

	ok, err := svc.DeleteObject(ctx, "uploads/x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"uploads/x"}, store.removed)
}

func mustCreate(t *testing.T, svc StorageService) *PresignedUploadResult {
	t.Helper()
	result, err := svc.CreatePresignedUpload(context.Background(), CreatePresignedUploadInput{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		FileSize:    2048,
	})
	require.NoError(t, err)
	return result
}

func makeLongString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
