package storage

import (
	"context"
	"io"
)

type PutInput struct {
	Key         string
	ContentType string
}

type PutResult struct {
	Key      string
	Location string
}

// Archive keeps raw webhook payloads for audit. Writes are best-effort
// from the caller's point of view; a failed archive never fails the
// webhook acknowledgement.
type Archive interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
}
