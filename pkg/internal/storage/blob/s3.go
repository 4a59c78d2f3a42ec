package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/casevault/pkg/configs"
	s3c "github.com/yeisme/casevault/pkg/internal/storage/s3"
)

func init() {
	RegisterFactory(configs.BlobTypeS3, func(ctx context.Context, cfg *configs.BlobConfig) (Store, error) {
		cli, err := s3c.New(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}

		return NewS3(cli), nil
	})
}

// S3Store 基于 MinIO 客户端的对象存储，所有对象位于同一 bucket.
type S3Store struct {
	client *s3c.Client
}

// NewS3 包装已连接的 S3 客户端.
func NewS3(client *s3c.Client) *S3Store {
	return &S3Store{client: client}
}

// Client 返回底层 S3 客户端.
func (s *S3Store) Client() *s3c.Client {
	return s.client
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.client.Bucket(), key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	_, err := s.client.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("stat object %s: %w", key, err)
	}

	return true, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, Object{}, err
	}

	obj, err := s.client.GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, Object{}, ErrNotFound
		}

		return nil, Object{}, fmt.Errorf("get object %s: %w", key, err)
	}

	// GetObject 惰性请求，Stat 才会暴露不存在
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()

		if isNotFound(err) {
			return nil, Object{}, ErrNotFound
		}

		return nil, Object{}, fmt.Errorf("stat object %s: %w", key, err)
	}

	return obj, Object{Key: key, Size: info.Size, ContentType: info.ContentType, ModTime: info.LastModified}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	err := s.client.RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return 0, err
	}

	if prefix == "" {
		return 0, fmt.Errorf("%w: refusing to delete the whole store", ErrInvalidKey)
	}

	objs, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	if len(objs) == 0 {
		return 0, nil
	}

	objCh := make(chan minio.ObjectInfo, len(objs))
	for _, o := range objs {
		objCh <- minio.ObjectInfo{Key: o.Key}
	}

	close(objCh)

	var errs []error

	for rerr := range s.client.RemoveObjects(ctx, s.client.Bucket(), objCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil && !isNotFound(rerr.Err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err))
		}
	}

	if len(errs) > 0 {
		return len(objs) - len(errs), errors.Join(errs...)
	}

	return len(objs), nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	// 提前返回时取消 ctx，结束 minio 的列举协程.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := []Object{}

	for info := range s.client.ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, info.Err)
		}

		out = append(out, Object{Key: info.Key, Size: info.Size, ContentType: info.ContentType, ModTime: info.LastModified})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

func (s *S3Store) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

func (s *S3Store) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)

	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
