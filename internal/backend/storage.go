package backend

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// StorageConfig holds the S3-compatible storage endpoint settings.
type StorageConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// Test seams for the AWS SDK, matching how the rest of the code stubs
// external clients.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// s3Storage implements Storage for one bucket over the S3 API.
type s3Storage struct {
	cfg    StorageConfig
	bucket string

	once    sync.Once
	initErr error
	client  *s3.Client
	presign *s3.PresignClient
}

func newS3Storage(cfg StorageConfig, bucket string) *s3Storage {
	return &s3Storage{cfg: cfg, bucket: bucket}
}

func (s *s3Storage) init(ctx context.Context) error {
	s.once.Do(func() {
		cfg, err := loadDefaultAWSConfig(ctx,
			config.WithRegion(s.cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s.cfg.AccessKey,
				s.cfg.SecretKey,
				"",
			)))
		if err != nil {
			s.initErr = err
			return
		}
		s.client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		})
		s.presign = newS3PresignClient(s.client)
	})
	return s.initErr
}

func (s *s3Storage) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if err := s.init(ctx); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("3600"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.init(ctx); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
	}
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("remove objects: %w", err)
	}
	return nil
}

func (s *s3Storage) CreateSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := s.init(ctx); err != nil {
		return "", fmt.Errorf("storage init: %w", err)
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
