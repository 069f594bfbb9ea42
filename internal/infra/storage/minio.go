package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// FileStorage 头像存储，数据库里只存对象 key
type FileStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewFileStorage 初始化 MinIO 连接，bucket 不存在时创建并设为公开读
func NewFileStorage(endpoint, publicURL, accessKey, secretKey, bucketName string) (*FileStorage, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: strings.HasPrefix(publicURL, "https://"),
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucketName, err)
	}
	if !exists {
		if err := minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucketName, err)
		}
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucketName)
		if err := minioClient.SetBucketPolicy(ctx, bucketName, policy); err != nil {
			zap.L().Warn("set bucket policy failed", zap.String("bucket", bucketName), zap.Error(err))
		}
	}

	return &FileStorage{
		client:    minioClient,
		bucket:    bucketName,
		publicURL: publicURL,
	}, nil
}

// AvatarURL 把对象 key 拼成公开 URL；已经是 URL 或为空时原样返回
func (s *FileStorage) AvatarURL(key string) string {
	return PublicURL(s.publicURL, s.bucket, key)
}

func PublicURL(base, bucket, key string) string {
	if key == "" || strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	// 不用 path.Join，它会把 http:// 变成 http:/
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, strings.TrimLeft(key, "/"))
}
