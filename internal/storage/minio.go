package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioConfig carries the connection settings for the blob store backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type minioStore struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinioStore connects to a MinIO/S3 backend and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig, logger zerolog.Logger) (FileStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &minioStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "file_store").Logger(),
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		store.logger.Info().Str("bucket", cfg.Bucket).Msg("created file store bucket")
	}

	return store, nil
}

func (s *minioStore) Put(ctx context.Context, key AreaKey, name string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key.Prefix()+name, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *minioStore) List(ctx context.Context, key AreaKey) ([]StoredFile, error) {
	prefix := key.Prefix()
	var files []StoredFile
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list area: %w", object.Err)
		}
		files = append(files, StoredFile{
			Name:     object.Key[len(prefix):],
			Size:     object.Size,
			Modified: object.LastModified,
		})
	}
	return files, nil
}

func (s *minioStore) Open(ctx context.Context, key AreaKey, name string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key.Prefix()+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return object, nil
}

func (s *minioStore) DeleteArea(ctx context.Context, key AreaKey) error {
	files, err := s.List(ctx, key)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := s.client.RemoveObject(ctx, s.bucket, key.Prefix()+file.Name, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", file.Name, err)
		}
	}
	return nil
}
