package blob

import (
	"context"

	"github.com/chalkcast/appserver/internal/domain"
)

// Store is the byte-persistence collaborator. Save is idempotent: storing
// bytes under an already-present content hash is a no-op, never an error.
// Physical deletion is not part of this contract; an external reaper
// reclaims unreferenced objects.
type Store interface {
	Save(ctx context.Context, data []byte, sha domain.ContentHash, mimeType string) error
	URLFor(sha domain.ContentHash, mimeType string) string
}

// extensionFor keeps stored object names browsable; the hash alone is the
// identity.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	case "application/x-ipynb+json":
		return ".ipynb"
	default:
		return ""
	}
}

// ObjectKey is the canonical storage key for a content hash.
func ObjectKey(sha domain.ContentHash, mimeType string) string {
	return sha.Hex() + extensionFor(mimeType)
}
