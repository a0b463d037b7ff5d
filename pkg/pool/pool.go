package pool

import (
	"io"
	"runtime"
	"sync"
)

// searchAlone runs f, which may return nil, until count elements are found.
func searchAlone(f func() interface{}, count int) []interface{} {
	results := make([]interface{}, count)
	for i := 0; i < len(results); i++ {
		for results[i] == nil {
			results[i] = f()
		}
	}
	return results
}

// parallelizeAlone calculates the result of f count times.
func parallelizeAlone(f func(int) interface{}, count int) []interface{} {
	results := make([]interface{}, count)
	for i := 0; i < len(results); i++ {
		results[i] = f(i)
	}
	return results
}

// worker runs the tasks it receives until the pool is torn down.
func worker(tasks <-chan func()) {
	for task := range tasks {
		task()
	}
}

// Pool represents a pool of workers, used for parallelizing functions.
//
// Functions needing a *Pool will work with a nil receiver, doing the equivalent
// work on the current goroutine instead.
//
// By creating a pool, you avoid the overhead of spinning up goroutines for
// each new operation. A Pool may be shared by several sessions running concurrently.
type Pool struct {
	// tasks is shared by all workers, which makes this a work stealing pool.
	tasks chan func()
	// workerCount is the number of goroutines reading from tasks.
	workerCount int
	closeOnce   sync.Once
}

// NewPool creates a new pool, with a certain number of workers.
//
// If count <= 0, this will use the number of available CPUs instead.
func NewPool(count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		tasks:       make(chan func()),
		workerCount: count,
	}
	for i := 0; i < count; i++ {
		go worker(p.tasks)
	}
	return p
}

// TearDown stops the workers once they finish their current task.
// The pool must not be used afterwards.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
}

// Search queries the function f, until count successes are found.
//
// f is supposed to try a single candidate, returning nil if that candidate isn't
// successful. It is called concurrently by every worker.
//
// The result will be a slice containing the first count successes.
func (p *Pool) Search(count int, f func() interface{}) []interface{} {
	if p == nil {
		return searchAlone(f, count)
	}

	var (
		mtx       sync.Mutex
		wg        sync.WaitGroup
		done      = make(chan struct{})
		closeDone sync.Once
		results   = make([]interface{}, 0, count)
	)
	search := func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			res := f()
			if res == nil {
				continue
			}
			mtx.Lock()
			if len(results) < count {
				results = append(results, res)
			}
			full := len(results) == count
			mtx.Unlock()
			if full {
				closeDone.Do(func() { close(done) })
				return
			}
		}
	}

	wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.tasks <- search
	}
	wg.Wait()

	return results
}

// Parallelize calls a function count times, passing in indices from 0..count-1.
//
// The result will be a slice containing [f(0), f(1), ..., f(count - 1)].
func (p *Pool) Parallelize(count int, f func(int) interface{}) []interface{} {
	if p == nil {
		return parallelizeAlone(f, count)
	}

	results := make([]interface{}, count)
	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		i := i
		p.tasks <- func() {
			defer wg.Done()
			results[i] = f(i)
		}
	}
	wg.Wait()

	return results
}

// LockedReader wraps an io.Reader to be safe for concurrent reads.
//
// This means acquiring a lock whenever a read happens, so be aware of that
// for performance or concurrency reasons.
type LockedReader struct {
	reader io.Reader
	m      sync.Mutex
}

// NewLockedReader creates a LockedReader by wrapping an underlying value.
func NewLockedReader(r io.Reader) *LockedReader {
	return &LockedReader{reader: r}
}

// Read implements io.Reader for LockedReader.
//
// When calling this function concurrently, what value ends up getting
// read is raced, but the same value is never read twice.
func (r *LockedReader) Read(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reader.Read(p)
}
