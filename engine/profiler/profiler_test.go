package profiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xgdwangdechao/rbfx/engine/logger"
)

func TestProfilerTick(t *testing.T) {
	var buf bytes.Buffer
	logger.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer logger.SetLogger(nil)

	start := time.Unix(100, 0)
	clock := start
	p := NewProfiler()
	p.lastTime = start
	p.now = func() time.Time { return clock }

	clock = start.Add(400 * time.Millisecond)
	if p.Tick(FrameStats{Draws: 10, VisibleLights: 2}) {
		t.Fatal("Tick() logged before the interval elapsed")
	}
	clock = start.Add(time.Second)
	if !p.Tick(FrameStats{Draws: 30, VisibleLights: 2}) {
		t.Fatal("Tick() did not log after the interval elapsed")
	}

	out := buf.String()
	for _, want := range []string{"frame statistics", "draws=20", "lights=2", "fps=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output = %q, want %q", out, want)
		}
	}
	if p.frameCount != 0 || p.totals != (FrameStats{}) {
		t.Errorf("Tick() did not reset the accumulated frames")
	}
}

func TestProfilerSetInterval(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(0)
	if p.updateInterval != time.Second {
		t.Errorf("SetInterval(0) changed the interval to %v", p.updateInterval)
	}
	p.SetInterval(250 * time.Millisecond)
	if p.updateInterval != 250*time.Millisecond {
		t.Errorf("updateInterval = %v, want 250ms", p.updateInterval)
	}
}
