// Package s3 连接证据文件所在的 S3 兼容存储（MinIO、AWS S3、Ceph RGW 等）.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/casevault/pkg/configs"
	nlog "github.com/yeisme/casevault/pkg/log"
)

// Client 包装 MinIO 客户端，绑定证据文件使用的单一 bucket.
type Client struct {
	*minio.Client

	bucket string
}

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3: bucket name is empty")
	}

	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	// endpoint 可以带 scheme，https 会强制开启 TLS.
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			secure = true
		}
	}

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	l := nlog.Component("s3")

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		l.Info().Str("bucket", cfg.BucketName).Msg("evidence bucket created")
	}

	l.Info().Str("endpoint", endpoint).Bool("tls", secure).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &Client{Client: cli, bucket: cfg.BucketName}, nil
}

// Bucket 返回证据文件所在 bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

// HealthCheck 通过检查 bucket 是否存在验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	ok, err := c.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s missing", c.bucket)
	}

	return nil
}

// Close minio 客户端基于 http.Client，没有需要释放的连接.
func (c *Client) Close() error {
	return nil
}
