package pool

import (
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	for _, p := range []*Pool{nil, NewPool(0), NewPool(3)} {
		var calls int64
		got := Search(p, 5, func() (int64, bool) {
			n := atomic.AddInt64(&calls, 1)
			return n, n%2 == 0
		})
		require.Len(t, got, 5)
		for _, v := range got {
			assert.Zero(t, v%2)
		}
		p.TearDown()
	}
}

func TestParallelize(t *testing.T) {
	for _, p := range []*Pool{nil, NewPool(2)} {
		got := Parallelize(p, 10, func(i int) int { return i * i })
		for i, v := range got {
			assert.Equal(t, i*i, v)
		}
		p.TearDown()
	}
}

func TestLockedReader(t *testing.T) {
	r := NewLockedReader(bytes.NewReader([]byte{1, 2, 3}))
	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, buf)
}
