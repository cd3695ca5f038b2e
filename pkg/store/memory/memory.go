// Package memory is an in-process store backend. It backs dry runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/ixtopo/pkg/store"
)

// Backend keeps rows in maps guarded by a mutex.
type Backend struct {
	mu   sync.RWMutex
	rows store.Snapshot

	// FailApply, when set, makes the next Apply fail without writing
	FailApply error
}

// New creates an empty backend
func New() *Backend {
	return &Backend{rows: store.NewSnapshot()}
}

// NewFrom creates a backend holding a copy of snap
func NewFrom(snap store.Snapshot) *Backend {
	return &Backend{rows: snap.Clone()}
}

// Name implements store.Backend
func (b *Backend) Name() string { return "memory" }

// Load implements store.Backend
func (b *Backend) Load(ctx context.Context) (store.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rows.Clone(), nil
}

// Apply implements store.Backend. Changes are validated against the
// current rows before any is written.
func (b *Backend) Apply(ctx context.Context, changes []store.Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.FailApply; err != nil {
		b.FailApply = nil
		return err
	}

	for _, c := range changes {
		_, exists := b.rows[c.Table][c.Key]
		switch c.Type {
		case store.ChangeAdd:
			if exists {
				return fmt.Errorf("%s: already exists", c.RedisKey())
			}
		case store.ChangeModify, store.ChangeDelete:
			if !exists {
				return fmt.Errorf("%s: does not exist", c.RedisKey())
			}
		default:
			return fmt.Errorf("%s: unknown change type %q", c.RedisKey(), c.Type)
		}
	}

	for _, c := range changes {
		if b.rows[c.Table] == nil {
			b.rows[c.Table] = make(map[int64]store.Row)
		}
		if c.Type == store.ChangeDelete {
			delete(b.rows[c.Table], c.Key)
			continue
		}
		b.rows[c.Table][c.Key] = c.NewValue.Clone()
	}
	return nil
}

// Close implements store.Backend
func (b *Backend) Close() error { return nil }

// Row returns a copy of one stored row, or nil
func (b *Backend) Row(table store.Table, id int64) store.Row {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rows[table][id].Clone()
}

// Count returns the number of rows in table
func (b *Backend) Count(table store.Table) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows[table])
}

var _ store.Backend = (*Backend)(nil)
