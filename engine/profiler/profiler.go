// package profiler aggregates per-frame statistics and logs them at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/xgdwangdechao/rbfx/engine/logger"
)

// FrameStats are the counters of one rendered frame.
type FrameStats struct {
	VisibleGeometries int
	VisibleLights     int
	BaseBatches       int
	LightBatches      int
	ShadowSplits      int
	ShadowBatches     int
	Draws             int
	PipelineStates    int
}

// Profiler tracks frame rate, memory and frame statistics.
// Outputs one log line at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	totals FrameStats
	now    func() time.Time
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		now:            time.Now,
	}
}

// SetInterval changes how often statistics are logged. Values <= 0 are ignored.
func (p *Profiler) SetInterval(interval time.Duration) {
	if interval > 0 {
		p.updateInterval = interval
	}
}

// Tick should be called once per frame with the frame's statistics.
// Logs frame rate, heap usage, GC pauses and the per-frame averages of stats when the update
// interval has elapsed.
//
// Parameters:
//   - stats: the counters of the frame just rendered
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats FrameStats) bool {
	p.frameCount++
	p.totals.VisibleGeometries += stats.VisibleGeometries
	p.totals.VisibleLights += stats.VisibleLights
	p.totals.BaseBatches += stats.BaseBatches
	p.totals.LightBatches += stats.LightBatches
	p.totals.ShadowSplits += stats.ShadowSplits
	p.totals.ShadowBatches += stats.ShadowBatches
	p.totals.Draws += stats.Draws
	p.totals.PipelineStates = stats.PipelineStates

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	// PauseNs is a circular buffer of the last 256 pauses
	for i := startIdx; i < gcCount; i++ {
		maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	n := p.frameCount
	logger.Logger().Info("frame statistics",
		"fps", fps,
		"heapMB", allocMB,
		"allocRateMBs", allocRateMB,
		"gc", gcCount,
		"maxPauseUs", maxPauseUs,
		"geometries", p.totals.VisibleGeometries/n,
		"lights", p.totals.VisibleLights/n,
		"baseBatches", p.totals.BaseBatches/n,
		"lightBatches", p.totals.LightBatches/n,
		"shadowSplits", p.totals.ShadowSplits/n,
		"shadowBatches", p.totals.ShadowBatches/n,
		"draws", p.totals.Draws/n,
		"pipelineStates", p.totals.PipelineStates,
	)

	p.frameCount = 0
	p.totals = FrameStats{}
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
