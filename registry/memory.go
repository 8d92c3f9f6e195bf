package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRegistry is an in-process Registry for tests and single-node
// pipelines. Safe for concurrent use.
type MemoryRegistry struct {
	mu       sync.Mutex
	versions map[string][]Version
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{versions: make(map[string][]Version)}
}

// Publish appends a new version for name.
func (r *MemoryRegistry) Publish(_ context.Context, name, ref string) (Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := Version{
		ID:        uuid.NewString(),
		Name:      name,
		Seq:       uint64(len(r.versions[name])) + 1,
		Ref:       ref,
		CreatedAt: time.Now().UTC(),
	}
	r.versions[name] = append(r.versions[name], v)
	return v, nil
}

// Latest returns the newest version for name.
func (r *MemoryRegistry) Latest(_ context.Context, name string) (Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vs := r.versions[name]
	if len(vs) == 0 {
		return Version{}, ErrNotFound
	}
	return vs[len(vs)-1], nil
}

// Versions returns all versions for name, oldest first.
func (r *MemoryRegistry) Versions(_ context.Context, name string) ([]Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vs := r.versions[name]
	if len(vs) == 0 {
		return nil, ErrNotFound
	}
	out := make([]Version, len(vs))
	copy(out, vs)
	return out, nil
}
