// Package storage holds uploaded receipt documents. The rest of the app
// treats receipts as opaque: it stores and streams bytes by object key and
// never inspects content.
package storage

import (
	"context"
	"io"
)

// ReceiptStore is the attachment boundary. Keys are caller-generated and
// unique; Put overwrites silently if a key is reused.
type ReceiptStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
