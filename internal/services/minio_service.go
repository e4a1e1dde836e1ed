package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"movienight-backend/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// PosterStore holds custom poster images for movies whose TMDB artwork an
// admin wants to replace. Uploads go straight to object storage through
// presigned PUT URLs.
type PosterStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *logrus.Logger
}

func NewPosterStore(cfg *config.MinIOConfig, logger *logrus.Logger) (*PosterStore, error) {
	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &PosterStore{
		client:    client,
		bucket:    cfg.BucketName,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		logger:    logger,
	}

	if err := store.ensureBucket(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to configure poster bucket, continuing")
	}

	logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"bucket":   cfg.BucketName,
	}).Info("Poster store initialized")

	return store, nil
}

func (s *PosterStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	s.logger.WithField("bucket", s.bucket).Info("Poster bucket created")
	return nil
}

// PresignUpload returns a short-lived PUT URL plus the public URL the poster
// will be served from once uploaded. Object names are made unique so
// re-uploads never clobber each other.
func (s *PosterStore) PresignUpload(ctx context.Context, filename string) (string, string, error) {
	ext := filepath.Ext(filename)
	object := fmt.Sprintf("%s_%s%s",
		strings.TrimSuffix(filename, ext), uuid.New().String()[:8], ext)

	uploadURL, err := s.client.PresignedPutObject(ctx, s.bucket, object, 15*time.Minute)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	publicURL := fmt.Sprintf("%s/%s", s.publicURL, object)
	return uploadURL.String(), publicURL, nil
}

// Remove deletes a previously uploaded poster. Accepts either the bare
// object name or the full public URL.
func (s *PosterStore) Remove(ctx context.Context, object string) error {
	if idx := strings.LastIndex(object, "/"); idx != -1 {
		object = object[idx+1:]
	}
	if err := s.client.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete poster: %w", err)
	}
	return nil
}
