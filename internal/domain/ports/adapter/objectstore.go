package adapter

import (
	"context"
	"io"
	"time"

	"svmedia/internal/domain/model"
)

// ObjectStore is the port for the bucket that holds the photos.
// Implementations are stateless between calls and safe for concurrent use.
type ObjectStore interface {
	// List returns every object under prefix in store listing order.
	List(ctx context.Context, prefix string) ([]model.RemoteObject, error)
	// Get opens the object body; the caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// PresignGet issues a time-limited download URL for key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
