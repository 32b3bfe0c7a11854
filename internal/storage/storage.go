package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound indicates no blob is stored under the requested key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStorage accepts a byte stream under a key and returns the location the
// stored blob can be fetched from.
type BlobStorage interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
}

// BlobOpener reads back a previously stored blob. The filesystem sink
// implements it so the mirror can re-stream accepted payloads.
type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
}
