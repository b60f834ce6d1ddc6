package dispatcher

import (
	"reflect"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestChunkRanges(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		chunks int
		want   [][2]int
	}{
		{"remainder in last chunk", 103, 4, [][2]int{{0, 26}, {26, 52}, {52, 78}, {78, 103}}},
		{"even split", 8, 4, [][2]int{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"fewer items than chunks", 3, 8, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{"single chunk", 5, 1, [][2]int{{0, 5}}},
		{"empty", 0, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkRanges(tt.total, tt.chunks); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ChunkRanges(%d, %d) = %v, want %v", tt.total, tt.chunks, got, tt.want)
			}
		})
	}
}

func TestNumThreads(t *testing.T) {
	d := NewDispatcher(WithWorkers(3))
	if got := d.NumThreads(); got != 4 {
		t.Errorf("NumThreads() = %d, want 4", got)
	}
	if got := NewDispatcher(WithWorkers(0)).NumThreads(); got < 2 {
		t.Errorf("NumThreads() with default workers = %d, want >= 2", got)
	}
}

func TestParallelForCoversEveryItemOnce(t *testing.T) {
	d := NewDispatcher(WithWorkers(3))
	const total = 103
	counts := make([]int32, total)
	chunkSeen := make([]int32, d.NumThreads())

	d.ParallelFor(total, func(chunk, from, to int) {
		atomic.AddInt32(&chunkSeen[chunk], 1)
		for i := from; i < to; i++ {
			atomic.AddInt32(&counts[i], 1)
		}
	})

	for i, c := range counts {
		if c != 1 {
			t.Fatalf("item %d processed %d times, want 1", i, c)
		}
	}
	for chunk, c := range chunkSeen {
		if c != 1 {
			t.Errorf("chunk %d ran %d times, want 1", chunk, c)
		}
	}
}

func TestParallelForRepeatedFrames(t *testing.T) {
	d := NewDispatcher(WithWorkers(2))
	for frame := 0; frame < 50; frame++ {
		var sum atomic.Int64
		d.ParallelFor(10, func(_, from, to int) {
			for i := from; i < to; i++ {
				sum.Add(int64(i))
			}
		})
		if got := sum.Load(); got != 45 {
			t.Fatalf("frame %d: sum = %d, want 45", frame, got)
		}
	}
}

func TestForEach(t *testing.T) {
	d := NewDispatcher(WithWorkers(2))
	results := make([]int, 7)
	d.ForEach(len(results), func(i int) {
		results[i] = i * i
	})
	for i, r := range results {
		if r != i*i {
			t.Errorf("results[%d] = %d, want %d", i, r, i*i)
		}
	}
	d.ForEach(0, func(int) { t.Error("ForEach(0) called fn") })
}

func TestParallelForRepanicsAfterJoin(t *testing.T) {
	d := NewDispatcher(WithWorkers(2))
	var finished atomic.Int32
	defer func() {
		if recover() == nil {
			t.Fatal("ParallelFor did not re-panic")
		}
		if got := finished.Load(); got != 2 {
			t.Errorf("finished chunks = %d, want 2", got)
		}
	}()
	d.ParallelFor(3, func(chunk, _, _ int) {
		if chunk == 0 {
			panic("boom")
		}
		finished.Add(1)
	})
}

// waitForGoroutines polls until at most want goroutines are running or the deadline passes.
func waitForGoroutines(want int, deadline time.Duration) int {
	end := time.Now().Add(deadline)
	for {
		got := runtime.NumGoroutine()
		if got <= want || time.Now().After(end) {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReleaseStopsWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	for cycle := 0; cycle < 5; cycle++ {
		d := NewDispatcher(WithWorkers(4))
		d.ParallelFor(100, func(_, _, _ int) {})
		d.Release()
		d.Release()
	}
	if got := waitForGoroutines(before, 2*time.Second); got > before {
		t.Errorf("goroutines after release = %d, want <= %d", got, before)
	}
}

func TestParallelForAfterRelease(t *testing.T) {
	d := NewDispatcher(WithWorkers(3))
	d.Release()

	counts := make([]int, 10)
	chunks := 0
	d.ParallelFor(len(counts), func(chunk, from, to int) {
		if chunk != chunks {
			t.Errorf("chunk = %d, want %d", chunk, chunks)
		}
		chunks++
		for i := from; i < to; i++ {
			counts[i]++
		}
	})
	if chunks != d.NumThreads() {
		t.Errorf("chunks = %d, want %d", chunks, d.NumThreads())
	}
	for i, c := range counts {
		if c != 1 {
			t.Errorf("item %d processed %d times, want 1", i, c)
		}
	}
}
