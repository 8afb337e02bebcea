// Package document defines where permit documents and estimate PDFs live in
// object storage and the port the storage backends implement.
package document

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStorage is implemented by the S3 backend and the in-memory stub
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string, expiresIn time.Duration) (PresignedURL, error)
	PresignDownload(ctx context.Context, key string, expiresIn time.Duration) (PresignedURL, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PresignedURL is a time-limited URL the client calls directly
type PresignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ContentTypePDF is used for rendered estimates
const ContentTypePDF = "application/pdf"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFileName strips directories and characters that do not belong in a key
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" || name == "/" {
		return "document"
	}
	return name
}

// PermitDocumentKey is permits/<delivery>/<permit>/<file>
func PermitDocumentKey(deliveryID, permitID uuid.UUID, fileName string) string {
	return fmt.Sprintf("permits/%s/%s/%s", deliveryID, permitID, SanitizeFileName(fileName))
}

// EstimateKey is estimates/<number>.pdf
func EstimateKey(number string) string {
	return "estimates/" + SanitizeFileName(number) + ".pdf"
}

// IsPermitDocumentKey reports whether key belongs to the given permit
func IsPermitDocumentKey(key string, deliveryID, permitID uuid.UUID) bool {
	return strings.HasPrefix(key, fmt.Sprintf("permits/%s/%s/", deliveryID, permitID))
}
