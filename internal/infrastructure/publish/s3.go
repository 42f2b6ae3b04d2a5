package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"TNSDigest/internal/config"
	"TNSDigest/internal/ports"
)

const csvContentType = "text/csv"

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads written reports to a bucket.
type S3Publisher struct {
	client putObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

var _ ports.ReportPublisher = (*S3Publisher)(nil)

// NewS3Publisher loads the default AWS credential chain. A custom endpoint switches to path-style addressing (MinIO, LocalStack).
func NewS3Publisher(ctx context.Context, cfg config.S3Config, logger *slog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 publisher requires a bucket")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Publisher(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3Publisher(client putObjectAPI, bucket, prefix string, logger *slog.Logger) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Key is the object key a report file is stored under.
func (p *S3Publisher) Key(path string) string {
	return p.prefix + filepath.Base(path)
}

// Publish uploads the file at path and returns its object key.
func (p *S3Publisher) Publish(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}

	key := p.Key(path)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(csvContentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}

	if p.logger != nil {
		p.logger.Info("report published", "bucket", p.bucket, "key", key, "bytes", info.Size())
	}
	return key, nil
}
