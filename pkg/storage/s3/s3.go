// Package s3 lists recordings from an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string `mapstructure:"endpoint"   yaml:"endpoint"`
	Region    string `mapstructure:"region"     yaml:"region"`
	Bucket    string `mapstructure:"bucket"     yaml:"bucket"`
	Prefix    string `mapstructure:"prefix"     yaml:"prefix"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// ObjectAPI is the subset of the S3 client used by Storage.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Storage implements storage.Backend using S3/MinIO.
type Storage struct {
	client ObjectAPI
	bucket string
	prefix string
}

// New creates a new S3 storage backend. Missing settings are not an error
// here; they surface as a configuration error on the first listing.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Bucket == "" {
		return &Storage{}, nil
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates a backend on an existing client.
func NewWithClient(client ObjectAPI, bucket, prefix string) *Storage {
	return &Storage{
		client: client,
		bucket: bucket,
		prefix: strings.TrimLeft(prefix, "/"),
	}
}

func (s *Storage) IsConfigured() bool {
	return s.client != nil && s.bucket != ""
}

func (s *Storage) Bucket() string {
	return s.bucket
}

// List pages through every object below the prefix. Names keep the full
// object key.
func (s *Storage) List(ctx context.Context) ([]records.FileRecord, error) {
	if !s.IsConfigured() {
		return nil, records.NewError(records.ErrConfiguration, "list", errors.New("s3 bucket is not set"))
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var files []records.FileRecord
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}

			var created time.Time
			if obj.LastModified != nil {
				created = obj.LastModified.UTC()
			}
			files = append(files, records.FileRecord{
				ID:        strings.Trim(aws.ToString(obj.ETag), `"`),
				Name:      key,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: created,
			})
		}
	}

	if len(files) == 0 {
		return nil, records.NewError(records.ErrNotFound, "list", fmt.Errorf("bucket %s has no recordings", s.bucket))
	}
	return files, nil
}

// Download fetches the object stored under name.
func (s *Storage) Download(ctx context.Context, name string) ([]byte, error) {
	if !s.IsConfigured() {
		return nil, records.NewError(records.ErrConfiguration, "download", errors.New("s3 bucket is not set"))
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, classify("download", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, records.NewError(records.ErrNetwork, "download", err)
	}
	return data, nil
}

// classify maps S3 API error codes onto the records error kinds.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "TokenRefreshRequired":
			return records.NewError(records.ErrAuth, op, err)
		case "AccessDenied", "AllAccessDisabled", "AccountProblem":
			return records.NewError(records.ErrPermission, op, err)
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return records.NewError(records.ErrNotFound, op, err)
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return records.NewError(records.ErrNetwork, op, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return records.NewError(records.ErrNetwork, op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
