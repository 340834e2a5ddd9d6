package adapters

import (
	"context"

	"repair_ops_backend/internal/adapters/storage"
	apptsvc "repair_ops_backend/internal/appointments/service"
)

// AppointmentsMediaPresigner generates presigned download URLs for appointment media.
type AppointmentsMediaPresigner struct {
	storage storage.MediaStore
	bucket  string
}

// NewAppointmentsMediaPresigner creates a new media presigner adapter.
func NewAppointmentsMediaPresigner(storageSvc storage.MediaStore, bucket string) *AppointmentsMediaPresigner {
	return &AppointmentsMediaPresigner{storage: storageSvc, bucket: bucket}
}

// MediaURL generates a presigned download URL for the given object key.
func (p *AppointmentsMediaPresigner) MediaURL(ctx context.Context, objectKey string) (string, error) {
	presigned, err := p.storage.GenerateDownloadURL(ctx, p.bucket, objectKey)
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}

// Compile-time check that AppointmentsMediaPresigner implements appointments/service.MediaURLSigner.
var _ apptsvc.MediaURLSigner = (*AppointmentsMediaPresigner)(nil)
