// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"

	"skport-checkin/config"
)

// ReportArchive stores run reports under a key.
type ReportArchive interface {
	Put(ctx context.Context, key string, data []byte) error
}

// R2Archive writes reports to a Cloudflare R2 bucket through the S3 API.
type R2Archive struct {
	client *s3.Client
	bucket string
}

// NewR2Archive builds an R2 client from static credentials. When no explicit
// endpoint is configured it is derived from the Cloudflare account id.
func NewR2Archive(ctx context.Context, cfg config.ArchiveConfig) (*R2Archive, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Archive{client: client, bucket: cfg.Bucket}, nil
}

func (a *R2Archive) Put(ctx context.Context, key string, data []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to R2: %w", key, err)
	}
	return nil
}

// RunReportKey is the object key of the full report for a run.
func RunReportKey(startedAt time.Time, runID string) string {
	return path.Join("reports", startedAt.UTC().Format("2006-01-02"), runID+".json")
}

// AccountReportKey is the object key of a single account's result within a run.
// The position prefix keeps accounts with equal or unsluggable names apart.
func AccountReportKey(startedAt time.Time, runID string, position int, accountName string) string {
	name := slug.Make(accountName)
	if name == "" {
		name = "account"
	}
	file := fmt.Sprintf("%02d-%s.json", position, name)
	return path.Join("reports", startedAt.UTC().Format("2006-01-02"), runID, file)
}
