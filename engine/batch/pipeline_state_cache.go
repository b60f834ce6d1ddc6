package batch

import (
	"sync/atomic"

	"github.com/xgdwangdechao/rbfx/engine/camera"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/logger"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
)

// pipelineStateMaxAge is the number of frames a pipeline state cache entry survives unused.
const pipelineStateMaxAge = 300

// PipelineStateKey identifies the pipeline state of a batch within one sub-pass.
type PipelineStateKey struct {
	DrawableHash uint32
	LightHash    uint32
	Geometry     model.Geometry
	Material     material.Material
	Pass         material.Pass
}

// PipelineStateContext is handed to the factory when a key misses the cache.
type PipelineStateContext struct {
	Camera   camera.Camera
	Drawable drawable.Drawable
	// Light is the light the batch is lit by or renders the shadow of, or nil.
	Light           *SceneLight
	SubPass         SubPass
	NumVertexLights int
}

// PipelineStateFactory creates pipeline states for cache misses.
type PipelineStateFactory interface {
	// CreatePipelineState builds the pipeline state of a batch.
	//
	// Parameters:
	//   - key: the cache key
	//   - ctx: the drawable, light and sub-pass the state is created for
	//
	// Returns:
	//   - pipeline.PipelineState: the state
	//   - error: a construction error; the batch is then omitted
	CreatePipelineState(key PipelineStateKey, ctx PipelineStateContext) (pipeline.PipelineState, error)
}

type scenePipelineStateEntry struct {
	state        pipeline.PipelineState
	geometryHash uint32
	materialHash uint32
	passHash     uint32
	invalidated  atomic.Bool
	lastUsed     atomic.Uint64
}

func (e *scenePipelineStateEntry) stale(key PipelineStateKey) bool {
	return e.geometryHash != key.Geometry.PipelineStateHash() ||
		e.materialHash != key.Material.PipelineStateHash() ||
		e.passHash != key.Pass.PipelineStateHash()
}

// ScenePipelineStateCache maps batch keys of one sub-pass to pipeline states. An entry is
// invalidated once its geometry, material or pass hash changes. Invalidated entries and
// entries unused for too many frames are dropped by Evict.
//
// PipelineState may be called concurrently; every other method must not overlap any call.
type ScenePipelineStateCache struct {
	entries map[PipelineStateKey]*scenePipelineStateEntry
	frame   uint64
}

// NewScenePipelineStateCache creates an empty cache.
func NewScenePipelineStateCache() *ScenePipelineStateCache {
	return &ScenePipelineStateCache{entries: make(map[PipelineStateKey]*scenePipelineStateEntry)}
}

// PipelineState returns the cached state for key, or nil on a miss or a stale entry.
//
// Parameters:
//   - key: the batch key
//
// Returns:
//   - pipeline.PipelineState: the state, or nil
func (c *ScenePipelineStateCache) PipelineState(key PipelineStateKey) pipeline.PipelineState {
	entry, ok := c.entries[key]
	if !ok || entry.invalidated.Load() {
		return nil
	}
	if entry.stale(key) {
		entry.invalidated.Store(true)
		return nil
	}
	entry.lastUsed.Store(c.frame)
	return entry.state
}

// GetOrCreatePipelineState returns the cached state for key, creating it through factory on
// a miss. A failed creation is not cached as a state and is retried on the next miss.
//
// Parameters:
//   - key: the batch key
//   - ctx: the creation context
//   - factory: the pipeline state factory
//
// Returns:
//   - pipeline.PipelineState: the state, or nil if creation failed
func (c *ScenePipelineStateCache) GetOrCreatePipelineState(key PipelineStateKey, ctx PipelineStateContext, factory PipelineStateFactory) pipeline.PipelineState {
	entry, ok := c.entries[key]
	if !ok {
		entry = &scenePipelineStateEntry{}
		c.entries[key] = entry
	}
	entry.lastUsed.Store(c.frame)
	if entry.state != nil && !entry.invalidated.Load() && !entry.stale(key) {
		return entry.state
	}

	state, err := factory.CreatePipelineState(key, ctx)
	if err != nil {
		logger.Logger().Debug("batch omitted without pipeline state", "subPass", ctx.SubPass, "error", err)
		state = nil
	}
	entry.state = state
	entry.geometryHash = key.Geometry.PipelineStateHash()
	entry.materialHash = key.Material.PipelineStateHash()
	entry.passHash = key.Pass.PipelineStateHash()
	entry.invalidated.Store(false)
	return state
}

// BeginFrame advances the frame counter entries record their last use against.
func (c *ScenePipelineStateCache) BeginFrame() {
	c.frame++
}

// Evict drops invalidated entries and entries not used within the last maxAge frames.
//
// Parameters:
//   - maxAge: the number of frames an unused entry is kept
//
// Returns:
//   - int: the number of dropped entries
func (c *ScenePipelineStateCache) Evict(maxAge uint64) int {
	dropped := 0
	for key, entry := range c.entries {
		if entry.invalidated.Load() || c.frame-entry.lastUsed.Load() > maxAge {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of cached keys.
func (c *ScenePipelineStateCache) Len() int {
	return len(c.entries)
}

// Clear drops every entry.
func (c *ScenePipelineStateCache) Clear() {
	clear(c.entries)
}
