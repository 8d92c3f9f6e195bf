// Package registry tracks named, versioned quantizer artifacts: each Publish
// appends a monotonically increasing version pointing at an artifact in a
// store, and Latest resolves the newest one. Backends exist for memory and
// DynamoDB (conditional writes make concurrent publishers safe).
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a name has no published versions.
var ErrNotFound = errors.New("quantizer not found")

// ErrConflict is returned when a concurrent publish claimed the next version
// first. Callers retry by publishing again.
var ErrConflict = errors.New("concurrent publish detected")

// Version is one published quantizer artifact.
type Version struct {
	// ID is a unique identifier for this publication.
	ID string `json:"id"`
	// Name is the registry key the version belongs to.
	Name string `json:"name"`
	// Seq is the monotonically increasing version number, starting at 1.
	Seq uint64 `json:"seq"`
	// Ref locates the artifact in its store (a store name/key).
	Ref string `json:"ref"`
	// CreatedAt is the publication time.
	CreatedAt time.Time `json:"created_at"`
}

// Registry stores versioned artifact references.
type Registry interface {
	// Publish appends a new version for name pointing at ref.
	Publish(ctx context.Context, name, ref string) (Version, error)

	// Latest returns the newest version for name.
	Latest(ctx context.Context, name string) (Version, error)

	// Versions returns all versions for name, oldest first.
	Versions(ctx context.Context, name string) ([]Version, error)
}
