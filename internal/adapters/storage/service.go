// Package storage provides presigned access to appointment media held in
// S3-compatible object storage.
package storage

import (
	"context"
	"strings"
	"time"
)

// PresignedURL contains a presigned download URL and its expiry.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MediaStore defines the object storage operations the backend relies on.
type MediaStore interface {
	// GenerateDownloadURL creates a presigned URL for downloading an object.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}

// dispositionFor renders photos and videos inline and downloads everything else.
func dispositionFor(fileKey string) string {
	ext := strings.ToLower(fileKey[strings.LastIndex(fileKey, ".")+1:])
	switch ext {
	case "jpg", "jpeg", "png", "webp", "gif", "heic", "mp4", "webm", "mov":
		return "inline"
	}
	return "attachment"
}
