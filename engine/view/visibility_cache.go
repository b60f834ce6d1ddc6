package view

import (
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/light"
)

// Traits are per-drawable flags set during a frame.
type Traits uint8

const (
	// TraitVisible marks drawables returned by the view query.
	TraitVisible Traits = 1 << iota
	// TraitUpdated marks drawables whose batches were refreshed this frame.
	TraitUpdated
)

// workerResult holds the output of one chunk. Chunks never share a workerResult.
type workerResult struct {
	geometries []drawable.Drawable
	lights     []light.Light
	zRange     ZRange
}

// VisibilityCache holds the per-frame visibility state of a view, indexed by drawable index.
// Per-index entries are written by exactly one worker during collection.
type VisibilityCache struct {
	traits  []Traits
	zRanges []ZRange
	workers []workerResult

	geometries []drawable.Drawable
	lights     []light.Light
	sceneZ     ZRange
}

// NewVisibilityCache creates an empty cache.
func NewVisibilityCache() *VisibilityCache {
	return &VisibilityCache{sceneZ: EmptyZRange()}
}

// Reset clears the cache for a frame over numDrawables indices split across numWorkers chunks.
//
// Parameters:
//   - numDrawables: the spatial index size
//   - numWorkers: the number of chunks results are collected from
func (c *VisibilityCache) Reset(numDrawables, numWorkers int) {
	if cap(c.traits) < numDrawables {
		c.traits = make([]Traits, numDrawables)
		c.zRanges = make([]ZRange, numDrawables)
	} else {
		c.traits = c.traits[:numDrawables]
		c.zRanges = c.zRanges[:numDrawables]
		clear(c.traits)
	}
	empty := EmptyZRange()
	for i := range c.zRanges {
		c.zRanges[i] = empty
	}

	if cap(c.workers) < numWorkers {
		c.workers = make([]workerResult, numWorkers)
	}
	c.workers = c.workers[:numWorkers]
	for i := range c.workers {
		w := &c.workers[i]
		clear(w.geometries)
		w.geometries = w.geometries[:0]
		clear(w.lights)
		w.lights = w.lights[:0]
		w.zRange = empty
	}

	clear(c.geometries)
	c.geometries = c.geometries[:0]
	clear(c.lights)
	c.lights = c.lights[:0]
	c.sceneZ = empty
}

// Size returns the number of drawable indices the cache covers.
func (c *VisibilityCache) Size() int {
	return len(c.traits)
}

// Traits returns the flags of a drawable index. Out of range indices have no traits.
func (c *VisibilityCache) Traits(index int) Traits {
	if index < 0 || index >= len(c.traits) {
		return 0
	}
	return c.traits[index]
}

// IsVisible reports whether the drawable index was returned by the view query.
func (c *VisibilityCache) IsVisible(index int) bool {
	return c.Traits(index)&TraitVisible != 0
}

// IsUpdated reports whether the drawable's batches were refreshed this frame.
func (c *VisibilityCache) IsUpdated(index int) bool {
	return c.Traits(index)&TraitUpdated != 0
}

// MarkUpdated records that the drawable's batches were refreshed this frame.
// Returns false if the index is outside the cache.
func (c *VisibilityCache) MarkUpdated(index int) bool {
	if index < 0 || index >= len(c.traits) {
		return false
	}
	c.traits[index] |= TraitUpdated
	return true
}

// ZRange returns the view-space depth range of a drawable index.
func (c *VisibilityCache) ZRange(index int) ZRange {
	if index < 0 || index >= len(c.zRanges) {
		return EmptyZRange()
	}
	return c.zRanges[index]
}

// Geometries returns the visible geometries merged in chunk order.
func (c *VisibilityCache) Geometries() []drawable.Drawable {
	return c.geometries
}

// Lights returns the visible lights merged in chunk order.
func (c *VisibilityCache) Lights() []light.Light {
	return c.lights
}

// SceneZRange returns the union of the bounded geometry depth ranges.
func (c *VisibilityCache) SceneZRange() ZRange {
	return c.sceneZ
}

// merge joins the worker results in chunk order.
func (c *VisibilityCache) merge() {
	for i := range c.workers {
		w := &c.workers[i]
		c.geometries = append(c.geometries, w.geometries...)
		c.lights = append(c.lights, w.lights...)
		c.sceneZ = c.sceneZ.Merge(w.zRange)
	}
}
