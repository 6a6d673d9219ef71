// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload copies run artifacts (PDFs and summaries) to S3 so other
// teams can consume them without filesystem access.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog"

	"github.com/meshintel/preprint-digest/pkg/types"
)

const (
	defaultPrefix = "papers"
	defaultRegion = "us-east-1"
)

// objectPutter is the slice of the S3 API the uploader needs. *s3.S3
// satisfies it; tests substitute a fake.
type objectPutter interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Uploader pushes artifact files to one bucket under a date-partitioned
// prefix.
type Uploader struct {
	client objectPutter
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewUploader builds an uploader from cfg using ambient AWS credentials.
func NewUploader(cfg types.UploadConfig, log zerolog.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("upload bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	return newUploader(s3.New(sess), cfg, log), nil
}

func newUploader(client objectPutter, cfg types.UploadConfig, log zerolog.Logger) *Uploader {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log,
	}
}

// UploadArtifact pushes one local file, keyed by the paper's publication
// date and the file's base name. It returns the object key.
func (u *Uploader) UploadArtifact(ctx context.Context, rec types.PaperRecord, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening artifact %s: %w", path, err)
	}
	defer f.Close()

	key := u.artifactKey(rec, path)
	_, err = u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeFor(path)),
		Metadata: map[string]*string{
			"paper-id": aws.String(rec.ID),
			"doi":      aws.String(rec.DOI),
		},
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", path, u.bucket, key, err)
	}

	u.log.Info().Str("paper", rec.ID).Str("key", key).Msg("artifact uploaded")
	return key, nil
}

func (u *Uploader) artifactKey(rec types.PaperRecord, path string) string {
	date := rec.Date
	if rec.PublishedAt().IsZero() {
		date = time.Now().Format("2006-01-02")
	}
	return fmt.Sprintf("%s/%s/%s", u.prefix, date, filepath.Base(path))
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}
