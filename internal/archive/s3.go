// Package archive mirrors run archives to S3-compatible object storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/me/mgasm/internal/config"
)

// DefaultRegion is used when the configuration names none.
const DefaultRegion = "us-east-1"

// ErrNotConfigured is returned when the archive settings are incomplete.
var ErrNotConfigured = errors.New("archive storage is not configured")

// S3Mirror uploads files under <bucket>/<run id>/.
type S3Mirror struct {
	client   *minio.Client
	bucket   string
	region   string
	logger   *slog.Logger
	initOnce sync.Once
	initErr  error
}

// NewS3Mirror creates a mirror from the archive settings.
func NewS3Mirror(cfg config.Archive, logger *slog.Logger) (*S3Mirror, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	useSSL := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "http://"), false
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrNotConfigured)
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("%w: access key and secret key are required", ErrNotConfigured)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrNotConfigured)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = DefaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Mirror{
		client: client,
		bucket: bucket,
		region: region,
		logger: logger.With("component", "archive"),
	}, nil
}

func (m *S3Mirror) ensureBucket(ctx context.Context) error {
	m.initOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.initErr = err
			return
		}
		if exists {
			return
		}
		m.initErr = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region})
	})
	return m.initErr
}

// Mirror uploads the file at path as <run id>/<file name> and returns its
// s3:// location.
func (m *S3Mirror) Mirror(ctx context.Context, runID, path string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", errors.New("run id is required")
	}
	if err := m.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := objectKey(runID, filepath.Base(path))
	info, err := m.client.FPutObject(ctx, m.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType(path),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	location := "s3://" + m.bucket + "/" + key
	m.logger.Info("archive mirrored", "location", location, "size", info.Size)
	return location, nil
}

// List returns the names of the files mirrored for a run.
func (m *S3Mirror) List(ctx context.Context, runID string) ([]string, error) {
	if err := m.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := strings.TrimSuffix(runID, "/") + "/"
	var names []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(names)
	return names, nil
}

func objectKey(runID, name string) string {
	return strings.TrimSpace(runID) + "/" + strings.TrimLeft(name, "/")
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	default:
		return "application/octet-stream"
	}
}
