package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Manifest records which documents are indexed, their content fingerprints,
// and the embedding configuration used. The fingerprint map drives staleness
// detection: a document whose hash changed is re-chunked and re-embedded.
type Manifest struct {
	Fingerprints map[string]string `json:"document_fingerprints"`
	BackendID    string            `json:"embedding_backend_id"`
	Dimensions   int               `json:"dimension"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewManifest creates an empty manifest for the given backend configuration.
func NewManifest(backendID string, dims int) *Manifest {
	return &Manifest{
		Fingerprints: make(map[string]string),
		BackendID:    backendID,
		Dimensions:   dims,
		CreatedAt:    time.Now().UTC(),
	}
}

// Fingerprint returns the content hash used for staleness checks.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Compatible reports whether the manifest matches the given backend
// configuration. An incompatible manifest means the index must be rebuilt.
func (m *Manifest) Compatible(backendID string, dims int) bool {
	return m.BackendID == backendID && m.Dimensions == dims
}
