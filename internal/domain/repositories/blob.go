package repositories

import "context"

// BlobStore is the object-storage contract, keyed by path.
type BlobStore interface {
	// Put uploads bytes and returns the public URL of the object.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	// Download fetches the object bytes.
	Download(ctx context.Context, path string) ([]byte, error)
}
