package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	sqlStore, err := OpenInMemorySQL()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sql":    sqlStore,
	}
}

func TestConsume(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			again, err := s.Consume(ctx, []byte("ticket"))
			require.NoError(t, err)
			assert.False(t, again)

			again, err = s.Consume(ctx, []byte("ticket"))
			require.NoError(t, err)
			assert.True(t, again)

			again, err = s.Consume(ctx, []byte("other"))
			require.NoError(t, err)
			assert.False(t, again)

			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)
		})
	}
}

func TestConsumeConcurrent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg    sync.WaitGroup
				fresh int32
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					again, err := s.Consume(ctx, []byte("shared"))
					assert.NoError(t, err)
					if !again {
						atomic.AddInt32(&fresh, 1)
					}
				}()
			}
			wg.Wait()
			assert.EqualValues(t, 1, fresh)
		})
	}
}

func TestSQLPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger", "tags.db")

	s, err := OpenSQL(path)
	require.NoError(t, err)
	_, err = s.Consume(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQL(path)
	require.NoError(t, err)
	defer s.Close()
	again, err := s.Consume(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, again)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
