// Package ledger records the ticket tags consumed by validations, so that a
// ticket shown twice is detected as a double spend.
package ledger

import (
	"context"
	"encoding/hex"
	"sync"
)

// Store is a goroutine-safe record of consumed tags, shared by all sessions of a reader.
type Store interface {
	// Consume records tag. It returns true if tag had already been consumed.
	Consume(ctx context.Context, tag []byte) (alreadySpent bool, err error)
	// Count returns the number of consumed tags.
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Memory is a Store kept in memory, lost when the process exits.
type Memory struct {
	mtx  sync.Mutex
	tags map[string]struct{}
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{tags: make(map[string]struct{})}
}

func (m *Memory) Consume(_ context.Context, tag []byte) (bool, error) {
	key := hex.EncodeToString(tag)
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, ok := m.tags[key]; ok {
		return true, nil
	}
	m.tags[key] = struct{}{}
	return false, nil
}

func (m *Memory) Count(context.Context) (int64, error) {
	return int64(m.Len()), nil
}

// Len returns the number of consumed tags.
func (m *Memory) Len() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.tags)
}

func (m *Memory) Close() error { return nil }
