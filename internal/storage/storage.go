// Package storage keeps uploaded PDFs and images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/emilythestrangee/paperboard/backend/internal/config"
	"github.com/emilythestrangee/paperboard/backend/internal/metrics"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
)

type Storage struct {
	cfg    config.StorageConfig
	client *minio.Client
}

func New(cfg config.StorageConfig) (*Storage, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: new client: %w", err)
	}
	cfg.Endpoint = endpoint
	return &Storage{cfg: cfg, client: cl}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("storage: bucket exists: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("storage: make bucket: %w", err)
		}
	}
	return nil
}

func (s *Storage) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

// Upload validates r against kind and stores it under a fresh key in the
// owner's directory.
func (s *Storage) Upload(ctx context.Context, kind Kind, owner int, r io.Reader, size int64, contentType string) (models.Upload, error) {
	if err := kind.Check(size, contentType); err != nil {
		return models.Upload{}, err
	}
	key := kind.NewKey(owner, contentType)
	if err := s.Put(ctx, key, contentType, r, size); err != nil {
		return models.Upload{}, err
	}
	metrics.Uploads.WithLabelValues(kind.Name).Inc()
	return models.Upload{Key: key, URL: s.URL(key), ContentType: contentType, Size: size}, nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

// PresignGet returns a time-limited download URL for key.
func (s *Storage) PresignGet(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.PresignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return u.String(), nil
}

// URL is the path-style public address of key.
func (s *Storage) URL(key string) string {
	return ObjectURL(s.cfg.Endpoint, s.cfg.Bucket, key, s.cfg.UseSSL)
}

func ObjectURL(endpoint, bucket, key string, secure bool) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: endpoint, Path: "/" + bucket + "/" + key}
	return u.String()
}

// DetectContentType sniffs the first bytes of f and rewinds it.
func DetectContentType(f io.ReadSeeker) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
