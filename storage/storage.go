// Package storage archives raw OCR payloads so a document's source data
// survives re-ingestion and can be audited against the indexed chunks.
package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Store persists opaque artifacts under hierarchical keys.
type Store interface {
	// Put stores an artifact and returns its descriptor.
	Put(ctx context.Context, key string, data []byte) (Artifact, error)

	// Get retrieves an artifact by key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an artifact; deleting an unknown key is a no-op.
	Delete(ctx context.Context, key string) error
}

// Artifact describes a stored payload.
type Artifact struct {
	Key      string `json:"key"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// Type selects the storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds backend configuration.
type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// NewStore creates a store for the configured backend.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeLocal:
		return NewLocalStore(cfg.LocalPath)
	case TypeS3:
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// OCRArtifactKey is the canonical key for a document's archived OCR payload.
func OCRArtifactKey(propertyID, documentID string) string {
	return fmt.Sprintf("properties/%s/documents/%s/ocr.json", propertyID, documentID)
}

// checksum returns the hex-encoded BLAKE2b-256 digest of the payload.
func checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
