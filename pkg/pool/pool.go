package pool

import (
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// job is handed to a worker. A search job keeps calling try until the shared
// counter drops to zero; a plain job evaluates try once for index i.
type job struct {
	search bool
	i      int
	try    func(i int) (interface{}, bool)
	// remaining counts the results still to be produced.
	remaining *int64
	results   []interface{}
	done      chan<- struct{}
}

func (j job) run() {
	if !j.search {
		res, _ := j.try(j.i)
		j.results[j.i] = res
		atomic.AddInt64(j.remaining, -1)
		j.done <- struct{}{}
		return
	}
	for atomic.LoadInt64(j.remaining) > 0 {
		res, ok := j.try(0)
		if !ok {
			continue
		}
		slot := atomic.AddInt64(j.remaining, -1)
		if slot < 0 {
			break
		}
		j.results[slot] = res
		j.done <- struct{}{}
	}
}

// Pool is a fixed set of workers used to spread expensive searches, such as
// looking for group order primes, over the available CPUs.
//
// A nil *Pool is valid and runs everything on the calling goroutine.
type Pool struct {
	jobs    chan job
	workers int
}

// NewPool starts count workers, or one per CPU if count <= 0.
func NewPool(count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		jobs:    make(chan job),
		workers: count,
	}
	for i := 0; i < count; i++ {
		go func() {
			for j := range p.jobs {
				j.run()
			}
		}()
	}
	return p
}

// TearDown stops the workers. The pool must not be used afterwards.
func (p *Pool) TearDown() {
	if p != nil {
		close(p.jobs)
	}
}

// Search calls try until it has succeeded count times, and returns the successes.
func Search[T any](p *Pool, count int, try func() (T, bool)) []T {
	out := make([]T, 0, count)
	if count <= 0 {
		return out
	}
	if p == nil {
		for len(out) < count {
			if v, ok := try(); ok {
				out = append(out, v)
			}
		}
		return out
	}

	results := make([]interface{}, count)
	remaining := int64(count)
	done := make(chan struct{}, count)
	j := job{
		search:    true,
		remaining: &remaining,
		results:   results,
		done:      done,
		try: func(int) (interface{}, bool) {
			return try()
		},
	}
	for i := 0; i < p.workers; i++ {
		p.jobs <- j
	}
	for i := 0; i < count; i++ {
		<-done
	}
	for _, r := range results {
		out = append(out, r.(T))
	}
	return out
}

// Parallelize evaluates f(0), ..., f(count-1) on the pool.
func Parallelize[T any](p *Pool, count int, f func(i int) T) []T {
	out := make([]T, count)
	if p == nil {
		for i := range out {
			out[i] = f(i)
		}
		return out
	}

	results := make([]interface{}, count)
	remaining := int64(count)
	done := make(chan struct{}, count)
	for i := 0; i < count; i++ {
		p.jobs <- job{
			i:         i,
			remaining: &remaining,
			results:   results,
			done:      done,
			try: func(i int) (interface{}, bool) {
				return f(i), true
			},
		}
	}
	for i := 0; i < count; i++ {
		<-done
	}
	for i, r := range results {
		out[i] = r.(T)
	}
	return out
}

// LockedReader serializes reads on an io.Reader, so that a single randomness
// source can be shared by the pool's workers.
type LockedReader struct {
	reader io.Reader
	m      sync.Mutex
}

// NewLockedReader wraps r.
func NewLockedReader(r io.Reader) *LockedReader {
	return &LockedReader{reader: r}
}

// Read implements io.Reader.
func (r *LockedReader) Read(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reader.Read(p)
}
