package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinIO(client *minio.Client, bucket, prefix string) *MinIO {
	return &MinIO{client: client, bucket: bucket, prefix: prefix}
}

func NewMinIOFromConfig(cfg config.PublishConfig) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("publish.endpoint and publish.bucket are required for the minio target")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return NewMinIO(client, cfg.Bucket, cfg.Prefix), nil
}

func (m *MinIO) Name() string {
	return "minio"
}

func (m *MinIO) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := objectKey(m.prefix, name)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s/%s: %w", m.bucket, key, err)
	}
	return fmt.Sprintf("%s/%s/%s", m.client.EndpointURL(), m.bucket, key), nil
}

func (m *MinIO) Get(ctx context.Context, name string) ([]byte, error) {
	key := objectKey(m.prefix, name)
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.readErr(key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.readErr(key, err)
	}
	return data, nil
}

func (m *MinIO) readErr(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return fmt.Errorf("%w: %s/%s", apperrors.ErrArtifactNotFound, m.bucket, key)
	}
	return fmt.Errorf("downloading %s/%s: %w", m.bucket, key, err)
}
