package sqlite

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"topolab/internal/domain"
)

// ============================================================================
// Digest Helpers
// ============================================================================

// documentDigest hashes the canonical JSON form of doc. Struct field order is
// fixed, so equal documents always hash equally.
func documentDigest(doc *domain.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ============================================================================
// Row Decoding Helpers
// ============================================================================

// decodeComponent unmarshals and validates a component row
func decodeComponent(data []byte) (domain.Component, error) {
	var c domain.Component
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to unmarshal component: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// decodeConnection unmarshals and validates a connection row
func decodeConnection(data []byte) (domain.Connection, error) {
	var c domain.Connection
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to unmarshal connection: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}
