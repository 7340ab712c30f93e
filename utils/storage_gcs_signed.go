package utils

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"
)

type SignedUpload struct {
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectKey string            `json:"objectKey"`
	AccessURL string            `json:"accessUrl"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type serviceAccountJSON struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// SignUpload returns a V4 signed PUT URL so large statement files can be
// uploaded straight to the archive bucket without passing through the API.
func SignUpload(ctx context.Context, objectKey, contentType string, expires time.Duration) (*SignedUpload, error) {
	if GetStorageProvider() != StorageProviderGCS {
		return nil, fmt.Errorf("storage provider %q is not supported for signed uploads", GetStorageProvider())
	}

	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}

	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		Expires:     time.Now().Add(expires),
		ContentType: contentType,
	}

	// Preferred: explicit service account JSON (local/dev).
	if credJSON := strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_JSON")); credJSON != "" {
		var sa serviceAccountJSON
		if err := json.Unmarshal([]byte(credJSON), &sa); err != nil {
			return nil, fmt.Errorf("invalid GCS_CREDENTIALS_JSON: %w", err)
		}
		if sa.ClientEmail == "" || sa.PrivateKey == "" {
			return nil, errors.New("GCS_CREDENTIALS_JSON missing client_email/private_key")
		}
		opts.GoogleAccessID = sa.ClientEmail
		opts.PrivateKey = []byte(sa.PrivateKey)
		return signedUploadFromOpts(bucket, objectKey, contentType, opts)
	}

	// Cloud Run: sign via the IAM credentials API using the runtime service account.
	saEmail, err := runtimeServiceAccountEmail(ctx)
	if err != nil {
		return nil, err
	}
	opts.GoogleAccessID = saEmail
	opts.SignBytes = func(b []byte) ([]byte, error) {
		return signBytesWithIAM(ctx, saEmail, b)
	}
	return signedUploadFromOpts(bucket, objectKey, contentType, opts)
}

func signedUploadFromOpts(bucket, objectKey, contentType string, opts *storage.SignedURLOptions) (*SignedUpload, error) {
	uploadURL, err := storage.SignedURL(bucket, objectKey, opts)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return &SignedUpload{
		UploadURL: uploadURL,
		Method:    "PUT",
		Headers:   headers,
		ObjectKey: objectKey,
		AccessURL: BuildObjectAccessURL(objectKey),
		ExpiresAt: opts.Expires,
	}, nil
}

func runtimeServiceAccountEmail(ctx context.Context) (string, error) {
	if v := strings.TrimSpace(os.Getenv("GCS_SIGNER_SERVICE_ACCOUNT")); v != "" {
		return v, nil
	}
	if metadata.OnGCE() {
		email, err := metadata.Email("default")
		if err == nil && email != "" {
			return email, nil
		}
	}
	creds, err := google.FindDefaultCredentials(ctx, storage.ScopeFullControl)
	if err != nil {
		return "", fmt.Errorf("no signer identity available: %w", err)
	}
	var sa serviceAccountJSON
	if len(creds.JSON) > 0 {
		if err := json.Unmarshal(creds.JSON, &sa); err == nil && sa.ClientEmail != "" {
			return sa.ClientEmail, nil
		}
	}
	return "", errors.New("no signer identity available (set GCS_SIGNER_SERVICE_ACCOUNT)")
}

func signBytesWithIAM(ctx context.Context, saEmail string, payload []byte) ([]byte, error) {
	svc, err := iamcredentials.NewService(ctx, option.WithScopes(iamcredentials.CloudPlatformScope))
	if err != nil {
		return nil, err
	}
	name := "projects/-/serviceAccounts/" + saEmail
	resp, err := svc.Projects.ServiceAccounts.SignBlob(name, &iamcredentials.SignBlobRequest{
		Payload: base64.StdEncoding.EncodeToString(payload),
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(resp.SignedBlob)
}
