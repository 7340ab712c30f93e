package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
	// If you need to provide explicit JSON (e.g. locally), set GCS_CREDENTIALS_JSON.
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GetGCSClient exposes the shared Google Cloud Storage client.
func GetGCSClient(ctx context.Context) (*storage.Client, error) {
	return getGoogleClient(ctx)
}

// SaveStatementToGCS uploads a raw statement file under the archive bucket.
func SaveStatementToGCS(ctx context.Context, objectName string, data []byte, contentType string) error {
	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		return errors.New("GCS_BUCKET is required")
	}

	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %q not accessible: %w", bucketName, err)
	}

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// FetchStatementFromGCS reads one statement object back out of the
// archive bucket, refusing anything larger than maxBytes.
func FetchStatementFromGCS(ctx context.Context, objectKey string, maxBytes int64) ([]byte, error) {
	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}

	client, err := getGoogleClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectKey).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("object %q not readable: %w", objectKey, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("object %q exceeds %d bytes", objectKey, maxBytes)
	}
	return data, nil
}

// ArchiveStatement stores a processed source file so reprocessing and audits
// can retrieve the original bytes. Provider-aware: GCS in production, a
// local directory otherwise. Returns the object key (or file path).
func ArchiveStatement(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	stamp := time.Now().UTC().Format("20060102T150405")
	objectKey := fmt.Sprintf("statements/%s/%s", stamp[:8], stamp+"_"+filepath.Base(filename))

	if GetStorageProvider() == StorageProviderGCS {
		if err := SaveStatementToGCS(ctx, objectKey, data, contentType); err != nil {
			return "", NewExternalIOError("archive statement to gcs", err)
		}
		return objectKey, nil
	}

	archiveDir := strings.TrimSpace(os.Getenv("RECON_ARCHIVE_DIR"))
	if archiveDir == "" {
		archiveDir = "data/archive"
	}
	dest := filepath.Join(archiveDir, filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", NewExternalIOError("create archive dir", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", NewExternalIOError("write archive file", err)
	}
	return dest, nil
}
