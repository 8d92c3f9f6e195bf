// Package store persists quantizer artifacts: trained state envelopes and
// quantized dataset blobs. Backends exist for memory, the local file system,
// S3 and MinIO; payload encoding is delegated to the codec package and
// recorded in a self-describing header.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/squant/codec"
)

// ErrNotFound is returned when an artifact does not exist.
//
// Implementations must return an error satisfying
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("artifact not found")

// Store is an abstraction for immutable artifact blobs keyed by name.
type Store interface {
	// Put writes an artifact atomically, replacing any existing one.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads an artifact in full.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes an artifact.
	Delete(ctx context.Context, name string) error

	// List returns the names of artifacts under the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Object header: magic, codec name length, codec name, payload. The header
// makes artifacts self-describing so the codec can change without breaking
// existing data.
var objectMagic = [4]byte{'S', 'Q', 'A', 'R'}

// PutObject encodes v with the given codec and writes it under name.
// A nil codec falls back to codec.Default.
func PutObject(ctx context.Context, s Store, c codec.Codec, name string, v any) error {
	if c == nil {
		c = codec.Default
	}
	payload, err := c.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	cname := c.Name()
	if len(cname) > 255 {
		return fmt.Errorf("codec name too long: %s", cname)
	}
	buf := make([]byte, 0, len(objectMagic)+1+len(cname)+len(payload))
	buf = append(buf, objectMagic[:]...)
	buf = append(buf, byte(len(cname)))
	buf = append(buf, cname...)
	buf = append(buf, payload...)
	return s.Put(ctx, name, buf)
}

// GetObject reads the artifact under name and decodes it into v using the
// codec recorded in its header.
func GetObject(ctx context.Context, s Store, name string, v any) error {
	data, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if len(data) < len(objectMagic)+1 || [4]byte(data[:4]) != objectMagic {
		return fmt.Errorf("artifact %s: malformed header", name)
	}
	nameLen := int(data[4])
	if len(data) < 5+nameLen {
		return fmt.Errorf("artifact %s: truncated header", name)
	}
	c, ok := codec.ByName(string(data[5 : 5+nameLen]))
	if !ok {
		return fmt.Errorf("artifact %s: unknown codec %q", name, data[5:5+nameLen])
	}
	return c.Unmarshal(data[5+nameLen:], v)
}
