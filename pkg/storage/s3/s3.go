package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	cfg "github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// deleteBatch is the DeleteObjects per-request limit.
const deleteBatch = 1000

type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
	logger logger.Logger
}

// NewS3Storage connects to the bucket and verifies it exists. A non-empty
// endpoint switches to path-style addressing for S3-compatible services.
func NewS3Storage(ctx context.Context, s3Config *cfg.S3Config, log logger.Logger) (*S3Storage, error) {
	if s3Config.BucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	loadOpts = append(loadOpts, config.WithRegion(s3Config.Region))
	if s3Config.AccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(s3Config.AccessKey, s3Config.SecretKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(static))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Config.Endpoint == "" {
			return
		}
		o.BaseEndpoint = aws.String(s3Config.Endpoint)
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s3Config.BucketName)}); err != nil {
		return nil, fmt.Errorf("bucket %q is not reachable: %w", s3Config.BucketName, err)
	}

	log.Info("S3 storage ready",
		logger.String("bucket", s3Config.BucketName),
		logger.String("region", s3Config.Region),
		logger.String("endpoint", s3Config.Endpoint),
	)
	return &S3Storage{
		client: client,
		bucket: s3Config.BucketName,
		prefix: "uploads/",
		logger: log.Named("s3"),
	}, nil
}

func (s *S3Storage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", s.failed("put", key, err)
	}
	return key, nil
}

func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("object %s does not exist: %w", key, err)
		}
		return nil, s.failed("get", key, err)
	}
	return out.Body, nil
}

// Delete is idempotent: S3 reports success for keys that are already gone.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.failed("delete", key, err)
	}
	return nil
}

// CleanupBefore removes upload objects last modified before threshold,
// in batches of up to deleteBatch keys.
func (s *S3Storage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var expired []types.ObjectIdentifier
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return s.failed("list", s.prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(threshold) {
				expired = append(expired, types.ObjectIdentifier{Key: obj.Key})
			}
		}
	}

	for start := 0; start < len(expired); start += deleteBatch {
		end := min(start+deleteBatch, len(expired))
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: expired[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return s.failed("delete batch", s.prefix, err)
		}
		for _, e := range out.Errors {
			s.logger.Warn("Expired object not removed",
				logger.String("key", aws.ToString(e.Key)),
				logger.String("reason", aws.ToString(e.Message)),
			)
		}
	}

	if len(expired) > 0 {
		s.logger.Info("Removed expired uploads",
			logger.Int("count", len(expired)),
			logger.Time("before", threshold),
		)
	}
	return nil
}

func (s *S3Storage) failed(op, key string, err error) error {
	s.logger.Error("S3 "+op+" failed",
		logger.String("bucket", s.bucket),
		logger.String("key", key),
		logger.Error(err),
	)
	return fmt.Errorf("s3 %s %s: %w", op, key, err)
}
