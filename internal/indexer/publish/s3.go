package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3 struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

// NewS3FromConfig loads AWS credentials from the environment, or from the
// static keys in cfg when set. A custom endpoint switches to path-style
// addressing for S3-compatible services.
func NewS3FromConfig(ctx context.Context, cfg config.PublishConfig) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish.bucket is required for the s3 target")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey, Source: "static-search config"}
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3(client, cfg.Bucket, cfg.Prefix), nil
}

func (s *S3) Name() string {
	return "s3"
}

func (s *S3) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := objectKey(s.prefix, name)
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading s3://%s/%s: %w", s.bucket, key, err)
	}
	if out.Location != "" {
		return out.Location, nil
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3) Get(ctx context.Context, name string) ([]byte, error) {
	key := objectKey(s.prefix, name)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: s3://%s/%s", apperrors.ErrArtifactNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", s.bucket, key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}
