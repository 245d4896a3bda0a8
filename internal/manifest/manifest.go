// Package manifest implements the manifest store (C1): content-addressed
// YAML commits chained by a "from" parent pointer, written atomically
// under {root}/_manifest/ and replayed on open.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"bundlebase.dev/bundlebase/internal/ops"
)

// Change is one batch of operations recorded by a single Builder call
// sequence, carrying a fresh id and an author-facing description.
type Change struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	Operations  []ops.Operation `yaml:"operations"`
}

// MarshalYAML encodes Operations through ops.MarshalOperation so each
// carries its "type" tag alongside its fields.
func (c Change) MarshalYAML() (interface{}, error) {
	encoded := make([]interface{}, len(c.Operations))
	for i, op := range c.Operations {
		e, err := ops.MarshalOperation(op)
		if err != nil {
			return nil, err
		}
		encoded[i] = e
	}
	return struct {
		ID          string        `yaml:"id"`
		Description string        `yaml:"description"`
		Operations  []interface{} `yaml:"operations"`
	}{ID: c.ID, Description: c.Description, Operations: encoded}, nil
}

// UnmarshalYAML decodes Operations via ops.UnmarshalOperation, dispatching
// on each element's "type" tag; an unrecognized type is a fatal load error.
func (c *Change) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ID          string      `yaml:"id"`
		Description string      `yaml:"description"`
		Operations  []yaml.Node `yaml:"operations"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Description = raw.Description
	c.Operations = make([]ops.Operation, len(raw.Operations))
	for i := range raw.Operations {
		op, err := ops.UnmarshalOperation(&raw.Operations[i])
		if err != nil {
			return err
		}
		c.Operations[i] = op
	}
	return nil
}

// Manifest is one commit: a YAML document recording the bundle's state
// transition from its parent ("from", nil/null for an origin commit).
type Manifest struct {
	Author    string    `yaml:"author,omitempty"`
	Message   string    `yaml:"message"`
	Timestamp time.Time `yaml:"timestamp"`
	From      *string   `yaml:"from"`
	Version   uint64    `yaml:"version"`
	Hash      string    `yaml:"hash"`
	Changes   []Change  `yaml:"changes"`
}

// computeHash returns the 12-hex-char digest of m's canonical
// serialization, computed with the hash field itself cleared first so the
// digest never depends on its own value.
func computeHash(m Manifest) (string, error) {
	m.Hash = ""
	raw, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("manifest: compute hash: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:12], nil
}

// fileName returns the {version:05d}{hash}.yaml commit file name.
func fileName(version uint64, hash string) string {
	return fmt.Sprintf("%05d%s.yaml", version, hash)
}
