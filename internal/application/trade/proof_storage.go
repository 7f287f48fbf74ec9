package trade

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProofStorage stores proof-of-delivery images and signatures
type ProofStorage interface {
	// Upload stores data under key
	Upload(ctx context.Context, key, contentType string, data []byte) error

	// Delete removes an object; deleting a missing object is not an error
	Delete(ctx context.Context, key string) error

	// DownloadURL returns a URL the client can fetch the object from
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Proof object kinds
const (
	ProofKindImage     = "proof"
	ProofKindSignature = "signature"
)

var proofExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProofObjectKey builds the storage key of an uploaded proof or signature
func ProofObjectKey(tenantID, orderID uuid.UUID, kind, contentType string) string {
	ext, ok := proofExtensions[contentType]
	if !ok {
		ext = ".bin"
	}
	return fmt.Sprintf("orders/%s/%s/%s-%s%s", tenantID, orderID, kind, uuid.New(), ext)
}
