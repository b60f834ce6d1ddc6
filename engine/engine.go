package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xgdwangdechao/rbfx/engine/batch"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/dispatcher"
	"github.com/xgdwangdechao/rbfx/engine/logger"
	"github.com/xgdwangdechao/rbfx/engine/profiler"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
	"github.com/xgdwangdechao/rbfx/engine/view"
)

var (
	// ErrNotInitialized is returned by RenderFrame before Initialize succeeded or after Release.
	ErrNotInitialized = errors.New("engine: not initialized")
	// ErrMissingBackend is returned by Initialize when the engine was created without a backend.
	ErrMissingBackend = errors.New("engine: no renderer backend")
)

// FrameStats are the counters of one rendered frame.
type FrameStats struct {
	batch.CollectorStats

	Draws            int
	ParameterUploads int
	SkippedGroups    int
	PipelineStates   int
	ShadowAtlasPages int
}

// engine implements the Engine interface.
// Owns every per-frame object: the dispatcher, visibility cache, collectors, pipeline cache,
// shadow atlas and draw command queue.
type engine struct {
	mu *sync.Mutex

	backend  renderer.Backend
	settings config.Settings
	passes   []batch.ScenePassDescription

	profilingEnabled bool
	shaderValidation bool
	defaultMaterial  material.Material

	initialized bool

	dispatcher dispatcher.Dispatcher
	cache      *view.VisibilityCache
	view       *view.ViewCollector
	pipelines  pipeline.Cache
	factory    *pipelineStateFactory
	allocator  renderer.ShadowMapAllocator
	collector  batch.SceneBatchCollector
	recorder   *frameRecorder
	profiler   *profiler.Profiler
}

// Engine is the explicit per-frame context of the renderer.
// It collects visibility, scene batches and shadow splits for a frame and records them
// into the backend.
type Engine interface {
	// Initialize creates the worker pool, caches, collectors and default technique.
	// Must be called once before RenderFrame.
	//
	// Returns:
	//   - error: ErrMissingBackend, an error wrapping config.ErrInvalidSettings, or a setup error
	Initialize() error

	// RenderFrame collects and records one frame.
	//
	// Parameters:
	//   - frame: the camera, spatial index and timing of the frame
	//
	// Returns:
	//   - FrameStats: the frame counters
	//   - error: ErrNotInitialized, a frame validation error or a backend error
	RenderFrame(frame view.FrameInfo) (FrameStats, error)

	// Collector returns the scene batch collector of the last frame.
	//
	// Returns:
	//   - batch.SceneBatchCollector: the collector, or nil before Initialize
	Collector() batch.SceneBatchCollector

	// VisibilityCache returns the visibility results of the last frame.
	//
	// Returns:
	//   - *view.VisibilityCache: the cache, or nil before Initialize
	VisibilityCache() *view.VisibilityCache

	// PipelineCache returns the cache of pipeline states created so far.
	//
	// Returns:
	//   - pipeline.Cache: the cache, or nil before Initialize
	PipelineCache() pipeline.Cache

	// Settings returns the renderer settings.
	//
	// Returns:
	//   - config.Settings: the settings
	Settings() config.Settings

	// Release stops the worker pool and frees the shadow atlas and the pipeline cache.
	// The backend stays owned by the caller.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine recording into backend.
// Settings default to config.Default(); the engine is unusable until Initialize is called.
//
// Parameters:
//   - backend: the renderer backend frames are recorded into
//   - options: functional options for engine configuration (settings, passes, profiling, ...)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(backend renderer.Backend, options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.Mutex{},
		backend:          backend,
		settings:         config.Default(),
		shaderValidation: true,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	if e.backend == nil {
		return ErrMissingBackend
	}
	if err := e.settings.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	passes := e.passes
	if len(passes) == 0 {
		passes = make([]batch.ScenePassDescription, 0, len(e.settings.Passes))
		for _, p := range e.settings.Passes {
			desc, err := batch.PassDescriptionFromSettings(p)
			if err != nil {
				return fmt.Errorf("engine: %w", err)
			}
			passes = append(passes, desc)
		}
	}

	caps := e.backend.Capabilities()
	if e.defaultMaterial == nil {
		technique, err := NewDefaultTechnique(e.settings)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		e.defaultMaterial = NewDefaultMaterial(technique)
	}

	e.dispatcher = dispatcher.NewDispatcher(dispatcher.WithWorkers(e.settings.Workers))
	e.cache = view.NewVisibilityCache()
	e.view = view.NewViewCollector(e.dispatcher, e.cache)
	e.pipelines = pipeline.NewCache(
		pipeline.WithRegistrar(e.backend),
		pipeline.WithShaderValidation(e.shaderValidation),
	)
	e.factory = newPipelineStateFactory(e.pipelines, caps)
	e.allocator = renderer.NewShadowMapAllocator(e.backend,
		renderer.WithAtlasSize(e.settings.Shadows.AtlasSize),
		renderer.WithMaxPages(e.settings.Shadows.MaxAtlasPages),
		renderer.WithReuse(e.settings.Shadows.Reuse),
	)
	e.collector = batch.NewSceneBatchCollector(e.dispatcher, e.cache,
		batch.WithSettings(e.settings),
		batch.WithCapabilities(caps),
		batch.WithShadowMapAllocator(e.allocator),
		batch.WithDefaultMaterial(e.defaultMaterial),
	)
	e.recorder = newFrameRecorder(e.backend, e.allocator, e.collector, e.settings)
	e.profiler = profiler.NewProfiler()
	e.passes = passes
	e.initialized = true

	logger.Logger().Info("engine initialized",
		"threads", e.dispatcher.NumThreads(),
		"passes", len(passes),
		"shadows", e.settings.Shadows.Enabled,
		"colorFormat", caps.ColorFormat,
		"sampleCount", caps.SampleCount,
	)
	return nil
}

func (e *engine) RenderFrame(frame view.FrameInfo) (FrameStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return FrameStats{}, ErrNotInitialized
	}
	if err := frame.Validate(); err != nil {
		return FrameStats{}, fmt.Errorf("engine: render frame: %w", err)
	}

	e.allocator.Reset()
	if err := e.view.Update(frame); err != nil {
		return FrameStats{}, fmt.Errorf("engine: render frame: %w", err)
	}
	if err := e.collector.BeginFrame(frame, e.factory, e.passes); err != nil {
		return FrameStats{}, fmt.Errorf("engine: render frame: %w", err)
	}
	e.collector.ProcessVisibleDrawables(e.cache.Geometries())
	e.collector.ProcessVisibleLights()
	e.collector.CollectSceneBatches()

	if err := e.backend.BeginFrame(); err != nil {
		return FrameStats{}, fmt.Errorf("engine: begin frame: %w", err)
	}
	recorded, recordErr := e.recorder.record(frame, e.passes)
	if err := e.backend.EndFrame(); err != nil && recordErr == nil {
		recordErr = fmt.Errorf("engine: end frame: %w", err)
	}

	stats := FrameStats{
		CollectorStats:   e.collector.Stats(),
		Draws:            recorded.Draws,
		ParameterUploads: recorded.ParameterUploads,
		SkippedGroups:    recorded.SkippedGroups,
		PipelineStates:   e.pipelines.Len(),
		ShadowAtlasPages: e.allocator.Pages(),
	}
	if e.profilingEnabled {
		e.profiler.Tick(profiler.FrameStats{
			VisibleGeometries: stats.VisibleGeometries,
			VisibleLights:     stats.VisibleLights,
			BaseBatches:       stats.BaseBatches,
			LightBatches:      stats.LightBatches,
			ShadowSplits:      stats.ShadowSplits,
			ShadowBatches:     stats.ShadowBatches,
			Draws:             stats.Draws,
			PipelineStates:    stats.PipelineStates,
		})
	}
	return stats, recordErr
}

func (e *engine) Collector() batch.SceneBatchCollector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collector
}

func (e *engine) VisibilityCache() *view.VisibilityCache {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache
}

func (e *engine) PipelineCache() pipeline.Cache {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipelines
}

func (e *engine) Settings() config.Settings {
	return e.settings
}

func (e *engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return
	}
	e.allocator.Release()
	e.pipelines.Clear()
	e.dispatcher.Release()
	e.initialized = false
	logger.Logger().Info("engine released")
}
