// Package storage 提供了与对象存储服务（MinIO / S3 兼容）交互的功能。
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"taible-storage-go/internal/config"
	"taible-storage-go/pkg/log"
)

// 可区分的对象存储错误，供上层用 errors.Is 判断。
var (
	// ErrObjectNotFound 表示指定的对象键不存在。
	ErrObjectNotFound = errors.New("对象不存在")
	// ErrCredentials 表示访问凭证无效或被拒绝。
	ErrCredentials = errors.New("对象存储凭证无效")
)

// Client 封装了绑定到单个存储桶的 MinIO 客户端。
type Client struct {
	mc     *minio.Client
	bucket string
}

// New 初始化 MinIO 客户端并确保指定的存储桶存在。
func New(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	ctx := context.Background()
	exists, err := mc.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", classify(err))
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := mc.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", classify(err))
		}
	}

	return &Client{mc: mc, bucket: cfg.BucketName}, nil
}

// PresignedPutURL 为指定对象键生成限定 Content-Type 的预签名上传 URL。
func (c *Client) PresignedPutURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	u, err := c.mc.PresignHeader(ctx, http.MethodPut, c.bucket, key, expiry, url.Values{}, headers)
	if err != nil {
		return "", classify(err)
	}
	return u.String(), nil
}

// PresignedGetURL 为指定对象键生成预签名下载 URL。
func (c *Client) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", classify(err)
	}
	return u.String(), nil
}

// ObjectExists 检查对象是否存在于存储桶中。
func (c *Client) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, ErrObjectNotFound) {
			return false, nil
		}
		return false, classified
	}
	return true, nil
}

// RemoveObject 删除存储桶中的对象。删除不存在的键在 S3 语义下同样成功，
// 因此该操作是幂等的。
func (c *Client) RemoveObject(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify(err)
	}
	return nil
}

// classify 将 MinIO 错误归类为服务错误 / 凭证错误 / 对象不存在。
func classify(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrObjectNotFound, resp.Key)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	return err
}
