// internal/storage/minio.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vector-priority/internal/config"
)

// MinioClient implements ObjectStorage against any S3-compatible endpoint
// holding the plant's daily feed exports.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient builds a MinioClient from the storage configuration.
func NewMinioClient(cfg config.StorageConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

// ListObjects lists all objects under the given prefix.
func (c *MinioClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, obj.Err)
		}
		objects = append(objects, ObjectInfo{Key: obj.Key, Size: obj.Size})
	}
	return objects, nil
}

// DownloadObject fetches one object into destPath, creating parent
// directories as needed.
func (c *MinioClient) DownloadObject(ctx context.Context, key string, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", destPath, err)
	}
	if err := c.client.FGetObject(ctx, c.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	return nil
}

// SyncPrefix mirrors every object under prefix into destDir, preserving the
// key structure relative to the prefix. Used to pull the dated feed
// snapshot down before a run when an object store is configured.
func SyncPrefix(ctx context.Context, store ObjectStorage, prefix, destDir string) error {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		rel := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
		if rel == "" {
			continue
		}
		dest := filepath.Join(destDir, filepath.FromSlash(rel))
		if info, err := os.Stat(dest); err == nil && info.Size() == obj.Size {
			continue // already synced
		}
		log.Info().Str("key", obj.Key).Str("dest", dest).Msg("downloading feed object")
		if err := store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return err
		}
	}

	return nil
}
