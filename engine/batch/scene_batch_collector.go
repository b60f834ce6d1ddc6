package batch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/dispatcher"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/light"
	"github.com/xgdwangdechao/rbfx/engine/logger"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/view"
)

// ErrMissingFactory is returned by BeginFrame without a pipeline state factory.
var ErrMissingFactory = errors.New("batch: missing pipeline state factory")

// CollectorStats counts the output of the last collected frame.
type CollectorStats struct {
	VisibleGeometries     int
	VisibleLights         int
	ShadowedLights        int
	ShadowSplits          int
	ShadowCasters         int
	BaseBatches           int
	LightBatches          int
	ShadowBatches         int
	MissingPipelineStates int
}

// intermediateBatch is a source batch matched to the material passes of one scene pass.
type intermediateBatch struct {
	drawable       drawable.Drawable
	drawableIndex  int
	sourceIndex    int
	geometry       model.Geometry
	material       material.Material
	basePass       material.Pass
	additionalPass material.Pass
}

type passCaches struct {
	unlit   *ScenePipelineStateCache
	litBase *ScenePipelineStateCache
	light   *ScenePipelineStateCache
}

type passData struct {
	desc           ScenePassDescription
	maxPixelLights int
	caches         *passCaches

	unlitIntermediate []intermediateBatch
	litIntermediate   []intermediateBatch

	unlitBase    []SceneBatch
	litBase      []SceneBatch
	lightBatches []SceneBatch

	sortedBase  []SceneBatch
	sortedLight []SceneBatch
}

// createIntermediate matches a technique against the pass role. ok is false when the technique
// has no pass usable by this scene pass.
func (p *passData) createIntermediate(tech material.Technique) (base, additional material.Pass, ok bool) {
	unlitBase := tech.Pass(p.desc.UnlitBasePass)
	litBase := tech.Pass(p.desc.LitBasePass)
	additionalLight := tech.Pass(p.desc.AdditionalLightPass)

	switch {
	case p.desc.Role == RoleUnlit || additionalLight == nil:
		return unlitBase, nil, unlitBase != nil
	case p.desc.Role == RoleForwardUnlitBase && unlitBase != nil:
		return unlitBase, additionalLight, true
	case p.desc.Role == RoleForwardLitBase && litBase != nil:
		return litBase, additionalLight, true
	default:
		return nil, nil, false
	}
}

// chunkOutput holds the intermediate batches one worker collected, per pass.
type chunkOutput struct {
	unlit [][]intermediateBatch
	lit   [][]intermediateBatch
}

type sceneBatchCollector struct {
	dispatcher      dispatcher.Dispatcher
	cache           *view.VisibilityCache
	allocator       renderer.ShadowMapAllocator
	defaultMaterial material.Material
	settings        config.Settings
	caps            renderer.Capabilities

	frame   view.FrameInfo
	factory PipelineStateFactory

	passes      []*passData
	passLookup  map[string]*passData
	passCaches  map[string]*passCaches
	shadowCache *ScenePipelineStateCache

	sceneLights   map[uint64]*SceneLight
	visibleLights []*SceneLight
	mainLight     int
	lighting      []LightAccumulator
	shadowSplits  []*ShadowSplit

	stats CollectorStats
}

// SceneBatchCollector converts the visible set of a frame into draw batches.
//
// A frame runs BeginFrame, ProcessVisibleDrawables, ProcessVisibleLights and CollectSceneBatches
// in that order on one goroutine; the parallel phases inside are joined before each call returns.
// Results stay valid until the next BeginFrame.
type SceneBatchCollector interface {
	// BeginFrame resets the collector for a frame.
	//
	// Parameters:
	//   - frame: the frame, already processed by the view collector
	//   - factory: creates pipeline states for cache misses
	//   - passes: the scene passes to collect, in draw order
	//
	// Returns:
	//   - error: a frame precondition error, ErrMissingFactory or ErrInvalidPassDescription
	BeginFrame(frame view.FrameInfo, factory PipelineStateFactory, passes []ScenePassDescription) error

	// ProcessVisibleDrawables matches the source batches of the visible geometries to the scene
	// passes, resolves unlit base batches and builds the visible light list.
	//
	// Parameters:
	//   - geometries: the visible geometries
	ProcessVisibleDrawables(geometries []drawable.Drawable)

	// ProcessVisibleLights collects lit geometries, shadow splits and shadow caster batches,
	// allocates shadow maps, selects the main light and accumulates forward lighting.
	ProcessVisibleLights()

	// CollectSceneBatches builds the lit base and light batches of every pass and sorts them.
	CollectSceneBatches()

	// GetSortedBaseBatches returns the base batches of a scene pass ordered by pipeline state,
	// material and geometry. The slice is owned by the collector.
	//
	// Parameters:
	//   - pass: the scene pass name
	//
	// Returns:
	//   - []SceneBatch: the batches, nil for unknown passes
	GetSortedBaseBatches(pass string) []SceneBatch

	// GetSortedLightBatches returns the additional light batches of a scene pass in the same order.
	//
	// Parameters:
	//   - pass: the scene pass name
	//
	// Returns:
	//   - []SceneBatch: the batches, nil for unknown passes
	GetSortedLightBatches(pass string) []SceneBatch

	// GetMainLight returns the light rendered in lit base batches.
	//
	// Returns:
	//   - *SceneLight: the main light, or nil without visible lights
	GetMainLight() *SceneLight

	// MainLightIndex returns the visible index of the main light, or NoLight.
	MainLightIndex() int

	// VisibleLights returns the visible lights; a light's position is its visible index.
	VisibleLights() []*SceneLight

	// VisibleLight returns visible light i, or nil when out of range.
	VisibleLight(i int) *SceneLight

	// VertexLights returns the per-vertex lights of a drawable under the default pixel light limit.
	// The main light is never among them.
	//
	// Parameters:
	//   - drawableIndex: the drawable index
	//
	// Returns:
	//   - [MaxVertexLights]int: visible light indices padded with NoLight
	VertexLights(drawableIndex int) [MaxVertexLights]int

	// ShadowSplits returns the splits of every shadowed light in visible light order.
	ShadowSplits() []*ShadowSplit

	// Stats returns the counters of the last frame.
	Stats() CollectorStats
}

var _ SceneBatchCollector = &sceneBatchCollector{}

// NewSceneBatchCollector creates a collector that reads the visibility cache filled by the view collector.
//
// Parameters:
//   - d: the dispatcher running the parallel phases
//   - cache: the visibility cache of the view
//   - options: functional options (WithSettings, WithCapabilities, WithShadowMapAllocator, WithDefaultMaterial)
//
// Returns:
//   - SceneBatchCollector: the collector
func NewSceneBatchCollector(d dispatcher.Dispatcher, cache *view.VisibilityCache, options ...SceneBatchCollectorOption) SceneBatchCollector {
	c := &sceneBatchCollector{
		dispatcher: d,
		cache:      cache,
		settings:   config.Default(),
		caps: renderer.Capabilities{
			DirectionalShadows: true,
			SpotShadows:        true,
			PointShadows:       true,
		},
		passLookup:  make(map[string]*passData),
		passCaches:  make(map[string]*passCaches),
		shadowCache: NewScenePipelineStateCache(),
		sceneLights: make(map[uint64]*SceneLight),
		mainLight:   NoLight,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *sceneBatchCollector) BeginFrame(frame view.FrameInfo, factory PipelineStateFactory, passes []ScenePassDescription) error {
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("batch: begin frame: %w", err)
	}
	if factory == nil {
		return ErrMissingFactory
	}
	seen := make(map[string]bool, len(passes))
	for _, desc := range passes {
		if err := desc.Validate(); err != nil {
			return err
		}
		if seen[desc.Name] {
			return fmt.Errorf("%w: duplicate pass %q", ErrInvalidPassDescription, desc.Name)
		}
		seen[desc.Name] = true
	}

	c.frame = frame
	c.factory = factory
	c.evictPipelineStates()

	c.passes = c.passes[:0]
	clear(c.passLookup)
	for _, desc := range passes {
		caches, ok := c.passCaches[desc.Name]
		if !ok {
			caches = &passCaches{
				unlit:   NewScenePipelineStateCache(),
				litBase: NewScenePipelineStateCache(),
				light:   NewScenePipelineStateCache(),
			}
			c.passCaches[desc.Name] = caches
		}
		p := &passData{
			desc:           desc,
			maxPixelLights: common.Coalesce(desc.MaxPixelLights, c.settings.Lighting.MaxPixelLights),
			caches:         caches,
		}
		c.passes = append(c.passes, p)
		c.passLookup[desc.Name] = p
	}

	numDrawables := c.cache.Size()
	if cap(c.lighting) < numDrawables {
		c.lighting = make([]LightAccumulator, numDrawables)
	}
	c.lighting = c.lighting[:numDrawables]

	clear(c.visibleLights)
	c.visibleLights = c.visibleLights[:0]
	c.shadowSplits = c.shadowSplits[:0]
	c.mainLight = NoLight
	c.stats = CollectorStats{}
	return nil
}

// evictPipelineStates advances every pipeline state cache by one frame and drops their
// unused entries.
func (c *sceneBatchCollector) evictPipelineStates() {
	dropped := 0
	for _, caches := range c.passCaches {
		for _, cache := range []*ScenePipelineStateCache{caches.unlit, caches.litBase, caches.light} {
			cache.BeginFrame()
			dropped += cache.Evict(pipelineStateMaxAge)
		}
	}
	c.shadowCache.BeginFrame()
	dropped += c.shadowCache.Evict(pipelineStateMaxAge)
	if dropped > 0 {
		logger.Logger().Debug("pipeline states evicted", "count", dropped)
	}
}

func (c *sceneBatchCollector) ProcessVisibleDrawables(geometries []drawable.Drawable) {
	numPasses := len(c.passes)
	chunks := make([]chunkOutput, c.dispatcher.NumThreads())
	for i := range chunks {
		chunks[i] = chunkOutput{
			unlit: make([][]intermediateBatch, numPasses),
			lit:   make([][]intermediateBatch, numPasses),
		}
	}

	c.dispatcher.ParallelFor(len(geometries), func(chunk, from, to int) {
		out := &chunks[chunk]
		for _, d := range geometries[from:to] {
			c.collectDrawable(d, out)
		}
	})

	for p, pass := range c.passes {
		pass.unlitIntermediate = pass.unlitIntermediate[:0]
		pass.litIntermediate = pass.litIntermediate[:0]
		for i := range chunks {
			pass.unlitIntermediate = append(pass.unlitIntermediate, chunks[i].unlit[p]...)
			pass.litIntermediate = append(pass.litIntermediate, chunks[i].lit[p]...)
		}
	}
	c.stats.VisibleGeometries = len(geometries)

	c.collectVisibleLights()

	for _, pass := range c.passes {
		pass.unlitBase = pass.unlitBase[:0]
		for _, ib := range pass.unlitIntermediate {
			pass.unlitBase = append(pass.unlitBase, newSceneBatch(ib, ib.basePass))
		}
		c.assignPipelineStates(pass.caches.unlit, pass.unlitBase, SubPassUnlitBase, c.unlitKey)
	}
}

// collectDrawable runs on a worker. It writes only to out and to the light accumulator of d.
func (c *sceneBatchCollector) collectDrawable(d drawable.Drawable, out *chunkOutput) {
	index := d.Index()
	if index < 0 || index >= len(c.lighting) {
		return
	}
	c.lighting[index].Reset()

	for i, sb := range d.Batches() {
		if sb.Geometry == nil {
			continue
		}
		mat := c.materialOf(sb)
		if mat == nil {
			continue
		}
		tech := mat.FindTechnique(d.LodDistance(), c.settings.MaterialQuality)
		if tech == nil {
			logger.Logger().Warn("material has no technique", "material", mat.Name(), "drawable", d.ID())
			continue
		}
		for p, pass := range c.passes {
			base, additional, ok := pass.createIntermediate(tech)
			if !ok {
				continue
			}
			ib := intermediateBatch{
				drawable:       d,
				drawableIndex:  index,
				sourceIndex:    i,
				geometry:       sb.Geometry,
				material:       mat,
				basePass:       base,
				additionalPass: additional,
			}
			if additional != nil {
				out.lit[p] = append(out.lit[p], ib)
			} else {
				out.unlit[p] = append(out.unlit[p], ib)
			}
		}
	}
}

func (c *sceneBatchCollector) materialOf(sb drawable.SourceBatch) material.Material {
	if sb.Material != nil {
		return sb.Material
	}
	return c.defaultMaterial
}

// collectVisibleLights maps the visible lights to their cached SceneLight. Lights that left the
// view are forgotten.
func (c *sceneBatchCollector) collectVisibleLights() {
	lights := c.cache.Lights()
	seen := make(map[uint64]bool, len(lights))
	for _, l := range lights {
		sl, ok := c.sceneLights[l.ID()]
		if !ok || sl.light != l {
			sl = newSceneLight(l)
			c.sceneLights[l.ID()] = sl
		}
		seen[l.ID()] = true
		c.visibleLights = append(c.visibleLights, sl)
	}
	for id := range c.sceneLights {
		if !seen[id] {
			delete(c.sceneLights, id)
		}
	}
	for i, sl := range c.visibleLights {
		sl.setIndex(i)
	}
	c.stats.VisibleLights = len(c.visibleLights)
}

// hasShadow evaluates whether a visible light renders a shadow map this frame.
func (c *sceneBatchCollector) hasShadow(l light.Light) bool {
	s := c.settings.Shadows
	if !s.Enabled || !l.CastShadows() || l.Importance() == light.ImportanceNotImportant {
		return false
	}
	if l.ShadowIntensity() >= 1 {
		return false
	}
	if d := l.ShadowDistance(); d > 0 && l.Distance() > d {
		return false
	}
	switch l.Type() {
	case light.LightTypeDirectional:
		return s.Directional && c.caps.DirectionalShadows
	case light.LightTypeSpot:
		return s.Spot && c.caps.SpotShadows
	case light.LightTypePoint:
		return s.Point && c.caps.PointShadows
	default:
		return false
	}
}

func (c *sceneBatchCollector) ProcessVisibleLights() {
	shadows := c.settings.Shadows
	for i, sl := range c.visibleLights {
		sl.beginFrame(c.hasShadow(sl.light), shadows)
		sl.setIndex(i)
	}

	ctx := &lightProcessContext{
		frame:       c.frame,
		cache:       c.cache,
		geometries:  c.cache.Geometries(),
		sceneZRange: c.cache.SceneZRange(),
		shadows:     shadows,
	}
	lights := c.visibleLights
	c.dispatcher.ForEach(len(lights), func(i int) {
		lights[i].collect(ctx)
	})

	c.updateShadowCasters()

	for _, sl := range lights {
		sl.finalizeShadowMap(max(shadows.SplitSize, 1))
	}
	sort.SliceStable(lights, func(i, j int) bool {
		a, b := lights[i].ShadowMapSize(), lights[j].ShadowMapSize()
		return a.Width*a.Height > b.Width*b.Height
	})
	for i, sl := range lights {
		sl.setIndex(i)
	}

	for _, sl := range lights {
		size := sl.ShadowMapSize()
		if size.Width == 0 || size.Height == 0 {
			continue
		}
		if c.allocator == nil {
			sl.setShadowMap(renderer.ShadowMap{})
			continue
		}
		shadowMap, err := c.allocator.AllocateShadowMap(sl.light.ID(), size)
		if err != nil {
			logger.Logger().Warn("shadow map allocation failed", "light", sl.light.ID(), "width", size.Width, "height", size.Height, "error", err)
		}
		sl.setShadowMap(shadowMap)
	}

	cam := c.frame.Camera
	for _, sl := range lights {
		sl.finalizeShaderParameters(cam)
	}

	c.collectShadowBatches()

	c.mainLight = c.findMainLight()
	for i := range lights {
		c.accumulateLighting(i)
	}
}

// updateShadowCasters refreshes the batches of casters the view pass did not see.
func (c *sceneBatchCollector) updateShadowCasters() {
	var pending []drawable.Drawable
	for _, sl := range c.visibleLights {
		for i := 0; i < sl.numSplits; i++ {
			for _, d := range sl.splits[i].Casters {
				index := d.Index()
				if !c.cache.IsUpdated(index) && c.cache.MarkUpdated(index) {
					pending = append(pending, d)
				}
			}
		}
	}
	if len(pending) == 0 {
		return
	}
	updateCtx := c.frame.UpdateContext()
	c.dispatcher.ParallelFor(len(pending), func(_, from, to int) {
		for _, d := range pending[from:to] {
			d.UpdateBatches(updateCtx)
		}
	})
}

func (c *sceneBatchCollector) collectShadowBatches() {
	c.shadowSplits = c.shadowSplits[:0]
	for _, sl := range c.visibleLights {
		if !sl.hasShadow {
			continue
		}
		c.stats.ShadowedLights++
		for i := 0; i < sl.numSplits; i++ {
			c.shadowSplits = append(c.shadowSplits, &sl.splits[i])
		}
	}

	splits := c.shadowSplits
	c.dispatcher.ForEach(len(splits), func(i int) {
		c.collectSplitBatches(splits[i])
	})

	for _, split := range splits {
		sl := c.visibleLights[split.LightIndex]
		for i := range split.Batches {
			b := &split.Batches[i]
			if b.PipelineState != nil {
				continue
			}
			b.PipelineState = c.shadowCache.GetOrCreatePipelineState(c.shadowKey(b, sl), PipelineStateContext{
				Camera:   c.frame.Camera,
				Drawable: b.Drawable,
				Light:    sl,
				SubPass:  SubPassShadow,
			}, c.factory)
			if b.PipelineState == nil {
				c.stats.MissingPipelineStates++
			}
		}
		split.Batches = compactBatches(split.Batches)
		SortBatches(split.Batches)

		c.stats.ShadowSplits++
		c.stats.ShadowCasters += len(split.Casters)
		c.stats.ShadowBatches += len(split.Batches)
	}
}

// collectSplitBatches runs on a worker and writes only to split.
func (c *sceneBatchCollector) collectSplitBatches(split *ShadowSplit) {
	sl := c.visibleLights[split.LightIndex]
	for _, d := range split.Casters {
		maxDistance := d.ShadowDistance()
		if drawDistance := d.DrawDistance(); drawDistance > 0 && (maxDistance <= 0 || drawDistance < maxDistance) {
			maxDistance = drawDistance
		}
		if maxDistance > 0 && d.Distance() > maxDistance {
			continue
		}

		for j, sb := range d.Batches() {
			if sb.Geometry == nil {
				continue
			}
			mat := c.materialOf(sb)
			if mat == nil {
				continue
			}
			tech := mat.FindTechnique(d.LodDistance(), c.settings.MaterialQuality)
			if tech == nil {
				continue
			}
			pass := tech.Pass(c.settings.ShadowPass)
			if pass == nil {
				continue
			}
			b := SceneBatch{
				Drawable:         d,
				DrawableIndex:    d.Index(),
				SourceBatchIndex: j,
				Geometry:         sb.Geometry,
				Material:         mat,
				Pass:             pass,
				LightIndex:       sl.index,
				VertexLights:     noVertexLights(),
			}
			b.PipelineState = c.shadowCache.PipelineState(c.shadowKey(&b, sl))
			split.Batches = append(split.Batches, b)
		}
	}
}

// findMainLight picks the most important visible light, the closest one among equals.
func (c *sceneBatchCollector) findMainLight() int {
	best := NoLight
	for i, sl := range c.visibleLights {
		if best == NoLight {
			best = i
			continue
		}
		a, b := sl.light, c.visibleLights[best].light
		ra, rb := a.Importance().Rank(), b.Importance().Rank()
		if ra > rb || (ra == rb && a.Distance() < b.Distance()) {
			best = i
		}
	}
	return best
}

// accumulateLighting adds light i to the accumulators of its lit geometries. Each geometry is
// visited by one worker.
func (c *sceneBatchCollector) accumulateLighting(i int) {
	sl := c.visibleLights[i]
	l := sl.light
	importance := l.Importance()
	penaltyScale := 1 / l.IntensityDivisor()
	geometries := sl.litGeometries

	c.dispatcher.ParallelFor(len(geometries), func(_, from, to int) {
		for _, g := range geometries[from:to] {
			index := g.Index()
			if index < 0 || index >= len(c.lighting) {
				continue
			}
			penalty := -common.LargeValue
			if i != c.mainLight {
				penalty = max(l.DistanceTo(g), common.LargeEpsilon) * penaltyScale
			}
			c.lighting[index].Accumulate(i, importance, penalty)
		}
	})
}

func (c *sceneBatchCollector) CollectSceneBatches() {
	for _, pass := range c.passes {
		c.collectLitBatches(pass)

		pass.sortedBase = append(pass.sortedBase[:0], pass.unlitBase...)
		pass.sortedBase = append(pass.sortedBase, pass.litBase...)
		pass.sortedBase = compactBatches(pass.sortedBase)
		SortBatches(pass.sortedBase)

		pass.sortedLight = append(pass.sortedLight[:0], pass.lightBatches...)
		pass.sortedLight = compactBatches(pass.sortedLight)
		SortBatches(pass.sortedLight)

		c.stats.BaseBatches += len(pass.sortedBase)
		c.stats.LightBatches += len(pass.sortedLight)
	}

	logger.Logger().Debug("scene batches collected",
		"frame", c.frame.FrameNumber,
		"geometries", c.stats.VisibleGeometries,
		"lights", c.stats.VisibleLights,
		"baseBatches", c.stats.BaseBatches,
		"lightBatches", c.stats.LightBatches,
		"shadowSplits", c.stats.ShadowSplits)
}

func (c *sceneBatchCollector) collectLitBatches(pass *passData) {
	lit := pass.litIntermediate
	if cap(pass.litBase) < len(lit) {
		pass.litBase = make([]SceneBatch, len(lit))
	}
	pass.litBase = pass.litBase[:len(lit)]

	lightChunks := make([][]SceneBatch, c.dispatcher.NumThreads())
	c.dispatcher.ParallelFor(len(lit), func(chunk, from, to int) {
		for i := from; i < to; i++ {
			ib := lit[i]
			accumulator := &c.lighting[ib.drawableIndex]
			pixelLights := accumulator.PixelLights(pass.maxPixelLights)
			hasLitBase := pass.desc.Role == RoleForwardLitBase && len(pixelLights) > 0 && pixelLights[0] == c.mainLight

			base := newSceneBatch(ib, ib.basePass)
			base.VertexLights = c.limitVertexLights(accumulator.VertexLights(pass.maxPixelLights, c.mainLight))
			first := 0
			if hasLitBase {
				base.LightIndex = c.mainLight
				first = 1
			}
			pass.litBase[i] = base

			for _, lightIndex := range pixelLights[first:] {
				lb := newSceneBatch(ib, ib.additionalPass)
				lb.LightIndex = lightIndex
				lightChunks[chunk] = append(lightChunks[chunk], lb)
			}
		}
	})

	pass.lightBatches = pass.lightBatches[:0]
	for _, chunk := range lightChunks {
		pass.lightBatches = append(pass.lightBatches, chunk...)
	}

	c.assignPipelineStates(pass.caches.litBase, pass.litBase, SubPassLitBase, c.litBaseKey)
	c.assignPipelineStates(pass.caches.light, pass.lightBatches, SubPassLight, c.lightKey)
}

func (c *sceneBatchCollector) limitVertexLights(lights [MaxVertexLights]int) [MaxVertexLights]int {
	limit := min(max(c.settings.Lighting.MaxVertexLights, 0), MaxVertexLights)
	for i := limit; i < MaxVertexLights; i++ {
		lights[i] = NoLight
	}
	return lights
}

// assignPipelineStates looks up cached states in parallel and creates the misses on the caller
// in batch order.
func (c *sceneBatchCollector) assignPipelineStates(cache *ScenePipelineStateCache, batches []SceneBatch, subPass SubPass, keyOf func(*SceneBatch) PipelineStateKey) {
	misses := make([][]int, c.dispatcher.NumThreads())
	c.dispatcher.ParallelFor(len(batches), func(chunk, from, to int) {
		for i := from; i < to; i++ {
			b := &batches[i]
			b.PipelineState = cache.PipelineState(keyOf(b))
			if b.PipelineState == nil {
				misses[chunk] = append(misses[chunk], i)
			}
		}
	})

	for _, chunk := range misses {
		for _, i := range chunk {
			b := &batches[i]
			ctx := PipelineStateContext{
				Camera:          c.frame.Camera,
				Drawable:        b.Drawable,
				Light:           c.VisibleLight(b.LightIndex),
				SubPass:         subPass,
				NumVertexLights: b.NumVertexLights(),
			}
			b.PipelineState = cache.GetOrCreatePipelineState(keyOf(b), ctx, c.factory)
			if b.PipelineState == nil {
				c.stats.MissingPipelineStates++
			}
		}
	}
}

func newSceneBatch(ib intermediateBatch, pass material.Pass) SceneBatch {
	return SceneBatch{
		Drawable:         ib.drawable,
		DrawableIndex:    ib.drawableIndex,
		SourceBatchIndex: ib.sourceIndex,
		Geometry:         ib.geometry,
		Material:         ib.material,
		Pass:             pass,
		LightIndex:       NoLight,
		VertexLights:     noVertexLights(),
	}
}

func (c *sceneBatchCollector) unlitKey(b *SceneBatch) PipelineStateKey {
	return PipelineStateKey{
		DrawableHash: b.Drawable.PipelineStateHash(),
		Geometry:     b.Geometry,
		Material:     b.Material,
		Pass:         b.Pass,
	}
}

func (c *sceneBatchCollector) litBaseKey(b *SceneBatch) PipelineStateKey {
	key := PipelineStateKey{
		DrawableHash: common.CombineHash(b.Drawable.PipelineStateHash(), uint32(b.NumVertexLights())),
		Geometry:     b.Geometry,
		Material:     b.Material,
		Pass:         b.Pass,
	}
	if sl := c.VisibleLight(b.LightIndex); sl != nil {
		key.LightHash = sl.hash
	}
	return key
}

func (c *sceneBatchCollector) lightKey(b *SceneBatch) PipelineStateKey {
	return PipelineStateKey{
		DrawableHash: b.Drawable.PipelineStateHash(),
		LightHash:    c.visibleLights[b.LightIndex].hash,
		Geometry:     b.Geometry,
		Material:     b.Material,
		Pass:         b.Pass,
	}
}

func (c *sceneBatchCollector) shadowKey(b *SceneBatch, sl *SceneLight) PipelineStateKey {
	return PipelineStateKey{
		DrawableHash: b.Drawable.PipelineStateHash(),
		LightHash:    sl.hash,
		Geometry:     b.Geometry,
		Material:     b.Material,
		Pass:         b.Pass,
	}
}

func (c *sceneBatchCollector) GetSortedBaseBatches(pass string) []SceneBatch {
	if p, ok := c.passLookup[pass]; ok {
		return p.sortedBase
	}
	return nil
}

func (c *sceneBatchCollector) GetSortedLightBatches(pass string) []SceneBatch {
	if p, ok := c.passLookup[pass]; ok {
		return p.sortedLight
	}
	return nil
}

func (c *sceneBatchCollector) GetMainLight() *SceneLight {
	return c.VisibleLight(c.mainLight)
}

func (c *sceneBatchCollector) MainLightIndex() int {
	return c.mainLight
}

func (c *sceneBatchCollector) VisibleLights() []*SceneLight {
	return c.visibleLights
}

func (c *sceneBatchCollector) VisibleLight(i int) *SceneLight {
	if i < 0 || i >= len(c.visibleLights) {
		return nil
	}
	return c.visibleLights[i]
}

func (c *sceneBatchCollector) VertexLights(drawableIndex int) [MaxVertexLights]int {
	if drawableIndex < 0 || drawableIndex >= len(c.lighting) {
		return noVertexLights()
	}
	return c.limitVertexLights(c.lighting[drawableIndex].VertexLights(c.settings.Lighting.MaxPixelLights, c.mainLight))
}

func (c *sceneBatchCollector) ShadowSplits() []*ShadowSplit {
	return c.shadowSplits
}

func (c *sceneBatchCollector) Stats() CollectorStats {
	return c.stats
}
