// package dispatcher runs fork-join phases of the frame on a persistent worker pool.
package dispatcher

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Dispatcher runs independent tasks on a fixed set of workers and blocks until they all finish.
// The calling goroutine always takes part in the work, so NumThreads is one more than the pool size.
type Dispatcher interface {
	// NumThreads returns the number of goroutines a phase is split across, including the caller.
	//
	// Returns:
	//   - int: the pool size plus one
	NumThreads() int

	// ParallelFor splits [0, total) into NumThreads contiguous chunks and processes each on its own task.
	// Chunk ids are dense and ordered by range; the last chunk runs on the caller.
	// Blocks until every chunk has finished. A panic inside fn is re-raised on the caller after the join.
	//
	// Parameters:
	//   - total: the number of items
	//   - fn: the chunk body, given its chunk id and the half-open item range
	ParallelFor(total int, fn func(chunk, from, to int))

	// ForEach runs fn(i) for every i in [0, n) as independent tasks and blocks until all finish.
	//
	// Parameters:
	//   - n: the number of tasks
	//   - fn: the task body
	ForEach(n int, fn func(i int))

	// Release stops every worker goroutine. Later phases run entirely on the caller.
	// Safe to call more than once.
	Release()
}

type dispatcherImpl struct {
	mu       *sync.Mutex
	tasks    chan worker.Task
	pool     []worker.Worker
	workers  int
	taskID   atomic.Int64
	released bool
}

var _ Dispatcher = &dispatcherImpl{}

// NewDispatcher creates a dispatcher backed by a persistent worker pool.
// Workers default to NumCPU-1 (at least 1) and stay alive until Release.
//
// Parameters:
//   - options: functional options (WithWorkers)
//
// Returns:
//   - Dispatcher: the dispatcher
func NewDispatcher(options ...DispatcherBuilderOption) Dispatcher {
	d := &dispatcherImpl{
		mu:      &sync.Mutex{},
		workers: max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(d)
	}

	// each worker gets its own stop channel so Release reaches every one of them
	d.tasks = make(chan worker.Task, 256)
	d.pool = make([]worker.Worker, d.workers)
	for i := range d.pool {
		d.pool[i] = worker.NewWorker(i, d.tasks, make(chan int, 1), 0, nil)
		d.pool[i].Start()
	}
	return d
}

func (d *dispatcherImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return
	}
	d.released = true
	for _, w := range d.pool {
		w.Stop()
	}
	d.pool = nil
}

func (d *dispatcherImpl) NumThreads() int {
	return d.workers + 1
}

// ChunkRanges splits [0, total) into at most chunks contiguous ranges of ceil(total/chunks) items.
// The last range holds the remainder. Empty ranges are omitted.
//
// Parameters:
//   - total: the number of items
//   - chunks: the desired number of ranges
//
// Returns:
//   - [][2]int: half-open ranges in item order
func ChunkRanges(total, chunks int) [][2]int {
	if total <= 0 || chunks <= 0 {
		return nil
	}
	size := (total + chunks - 1) / chunks
	ranges := make([][2]int, 0, chunks)
	for from := 0; from < total; from += size {
		ranges = append(ranges, [2]int{from, min(from+size, total)})
	}
	return ranges
}

func (d *dispatcherImpl) ParallelFor(total int, fn func(chunk, from, to int)) {
	ranges := ChunkRanges(total, d.NumThreads())
	d.run(len(ranges), func(i int) {
		fn(i, ranges[i][0], ranges[i][1])
	})
}

func (d *dispatcherImpl) ForEach(n int, fn func(i int)) {
	d.run(n, fn)
}

// run submits tasks 0..n-2 to the workers, runs task n-1 on the caller and waits for all of them.
// After Release every task runs on the caller.
func (d *dispatcherImpl) run(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	d.mu.Lock()
	released := d.released
	d.mu.Unlock()

	var wg sync.WaitGroup
	var failure atomic.Pointer[taskPanic]
	call := func(i int) {
		defer func() {
			if r := recover(); r != nil {
				failure.CompareAndSwap(nil, &taskPanic{task: i, value: r})
			}
		}()
		fn(i)
	}

	first := 0
	if !released {
		first = n - 1
		for i := 0; i < n-1; i++ {
			wg.Add(1)
			index := i
			d.tasks <- worker.Task{
				ID: int(d.taskID.Add(1)),
				Do: func() (any, error) {
					defer wg.Done()
					call(index)
					return nil, nil
				},
			}
		}
	}
	for i := first; i < n; i++ {
		call(i)
	}
	wg.Wait()

	if p := failure.Load(); p != nil {
		panic(fmt.Sprintf("dispatcher: task %d panicked: %v", p.task, p.value))
	}
}

type taskPanic struct {
	task  int
	value any
}
