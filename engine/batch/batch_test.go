package batch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/camera"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/dispatcher"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/light"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
	"github.com/xgdwangdechao/rbfx/engine/scene"
	"github.com/xgdwangdechao/rbfx/engine/view"
)

type fakeState struct {
	id uint32
}

func (s *fakeState) ID() uint32                             { return s.id }
func (s *fakeState) Desc() pipeline.PipelineStateDesc       { return pipeline.PipelineStateDesc{} }
func (s *fakeState) Hash() uint32                           { return s.id }
func (s *fakeState) ShaderHash() uint32                     { return s.id }
func (s *fakeState) RenderPipeline() *wgpu.RenderPipeline   { return nil }
func (s *fakeState) SetRenderPipeline(*wgpu.RenderPipeline) {}

type fakeFactory struct {
	calls    int
	failPass string
	subPass  []SubPass
}

func (f *fakeFactory) CreatePipelineState(key PipelineStateKey, ctx PipelineStateContext) (pipeline.PipelineState, error) {
	f.calls++
	f.subPass = append(f.subPass, ctx.SubPass)
	if key.Pass.Name() == f.failPass {
		return nil, fmt.Errorf("pass %q has no shaders", key.Pass.Name())
	}
	return &fakeState{id: uint32(f.calls)}, nil
}

func testTechnique() material.Technique {
	return material.NewTechnique("lit",
		material.NewPass("base"),
		material.NewPass("litbase"),
		material.NewPass("light"),
		material.NewPass("shadow"),
	)
}

func testPasses() []ScenePassDescription {
	return []ScenePassDescription{{
		Name:                "opaque",
		Role:                RoleForwardLitBase,
		UnlitBasePass:       "base",
		LitBasePass:         "litbase",
		AdditionalLightPass: "light",
	}}
}

type testFrame struct {
	scene     scene.Scene
	cache     *view.VisibilityCache
	collector SceneBatchCollector
	view      *view.ViewCollector
	camera    camera.Camera
	factory   *fakeFactory
}

func newTestFrame(t *testing.T, settings config.Settings, drawables ...drawable.Drawable) *testFrame {
	t.Helper()
	return newTestFrameWithOptions(t, settings, nil, drawables...)
}

func newTestFrameWithOptions(t *testing.T, settings config.Settings, opts []SceneBatchCollectorOption, drawables ...drawable.Drawable) *testFrame {
	t.Helper()
	d := dispatcher.NewDispatcher(dispatcher.WithWorkers(2))
	t.Cleanup(d.Release)
	cache := view.NewVisibilityCache()
	backend := renderer.NewStubBackend()
	allocator := renderer.NewShadowMapAllocator(backend, renderer.WithAtlasSize(1024))
	return &testFrame{
		scene: scene.NewScene(scene.WithDrawables(drawables...)),
		cache: cache,
		collector: NewSceneBatchCollector(d, cache, append([]SceneBatchCollectorOption{
			WithSettings(settings),
			WithShadowMapAllocator(allocator),
		}, opts...)...),
		view:    view.NewViewCollector(d, cache),
		camera:  camera.NewCamera(camera.WithPosition(0, 0, 10), camera.WithTarget(0, 0, 0)),
		factory: &fakeFactory{},
	}
}

func (f *testFrame) run(t *testing.T, frameNumber uint32) {
	t.Helper()
	frame := view.FrameInfo{
		FrameNumber:  frameNumber,
		TimeStep:     0.016,
		OutputSize:   common.IntSize{Width: 640, Height: 480},
		Camera:       f.camera,
		SpatialIndex: f.scene,
	}
	if err := f.view.Update(frame); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := f.collector.BeginFrame(frame, f.factory, testPasses()); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	f.collector.ProcessVisibleDrawables(f.cache.Geometries())
	f.collector.ProcessVisibleLights()
	f.collector.CollectSceneBatches()
}

func newBox(geom model.Geometry, mat material.Material, x, y, z float32, opts ...drawable.DrawableBuilderOption) drawable.Drawable {
	opts = append([]drawable.DrawableBuilderOption{
		drawable.WithPosition(x, y, z),
		drawable.WithBatch(geom, mat),
	}, opts...)
	return drawable.NewDrawable(opts...)
}

func TestScenePassDescriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    ScenePassDescription
		wantErr bool
	}{
		{"unlit", ScenePassDescription{Name: "p", Role: RoleUnlit, UnlitBasePass: "base"}, false},
		{"unlit with light pass", ScenePassDescription{Name: "p", Role: RoleUnlit, UnlitBasePass: "base", AdditionalLightPass: "light"}, true},
		{"lit base", ScenePassDescription{Name: "p", Role: RoleForwardLitBase, UnlitBasePass: "base", LitBasePass: "litbase", AdditionalLightPass: "light"}, false},
		{"lit base without lit pass", ScenePassDescription{Name: "p", Role: RoleForwardLitBase, AdditionalLightPass: "light"}, true},
		{"unlit base", ScenePassDescription{Name: "p", Role: RoleForwardUnlitBase, UnlitBasePass: "alpha", AdditionalLightPass: "litalpha"}, false},
		{"unlit base with lit pass", ScenePassDescription{Name: "p", Role: RoleForwardUnlitBase, UnlitBasePass: "alpha", LitBasePass: "x", AdditionalLightPass: "litalpha"}, true},
		{"missing name", ScenePassDescription{Role: RoleUnlit, UnlitBasePass: "base"}, true},
		{"negative pixel lights", ScenePassDescription{Name: "p", Role: RoleUnlit, UnlitBasePass: "base", MaxPixelLights: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPassDescription) {
				t.Errorf("Validate() error = %v, want ErrInvalidPassDescription", err)
			}
		})
	}
}

func TestLightAccumulatorSplit(t *testing.T) {
	var a LightAccumulator
	a.Accumulate(0, light.ImportanceAuto, 5)
	a.Accumulate(1, light.ImportanceNotImportant, 1)
	a.Accumulate(2, light.ImportanceImportant, 9)
	a.Accumulate(3, light.ImportanceAuto, 2)
	a.Accumulate(4, light.ImportanceAuto, -common.LargeValue)

	tests := []struct {
		name       string
		maxPixel   int
		mainLight  int
		wantPixel  []int
		wantVertex [MaxVertexLights]int
	}{
		{"budget of two", 2, 4, []int{4, 2}, [MaxVertexLights]int{1, 3, 0, NoLight}},
		{"budget of three", 3, 4, []int{4, 3, 2}, [MaxVertexLights]int{1, 0, NoLight, NoLight}},
		{"no budget keeps important", 0, NoLight, []int{2}, [MaxVertexLights]int{4, 1, 3, 0}},
		{"no budget skips main light", 0, 4, []int{2}, [MaxVertexLights]int{1, 3, 0, NoLight}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.PixelLights(tt.maxPixel); fmt.Sprint(got) != fmt.Sprint(tt.wantPixel) {
				t.Errorf("PixelLights(%d) = %v, want %v", tt.maxPixel, got, tt.wantPixel)
			}
			if got := a.VertexLights(tt.maxPixel, tt.mainLight); got != tt.wantVertex {
				t.Errorf("VertexLights(%d, %d) = %v, want %v", tt.maxPixel, tt.mainLight, got, tt.wantVertex)
			}
		})
	}

	a.Reset()
	if a.Len() != 0 || len(a.PixelLights(4)) != 0 {
		t.Errorf("Reset() left %d lights", a.Len())
	}
}

func TestLightAccumulatorTiesByIndex(t *testing.T) {
	var a LightAccumulator
	a.Accumulate(3, light.ImportanceAuto, 1)
	a.Accumulate(1, light.ImportanceAuto, 1)
	a.Accumulate(2, light.ImportanceAuto, 1)
	if got := a.PixelLights(4); fmt.Sprint(got) != "[1 2 3]" {
		t.Errorf("PixelLights() = %v, want [1 2 3]", got)
	}
}

func TestSortBatches(t *testing.T) {
	geomA := model.NewGeometry(model.WithVertices(model.Cube()))
	geomB := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	low, high := &fakeState{id: 1}, &fakeState{id: 2}

	batches := []SceneBatch{
		{PipelineState: high, Material: mat, Geometry: geomA, DrawableIndex: 0},
		{PipelineState: low, Material: mat, Geometry: geomB, DrawableIndex: 1},
		{PipelineState: low, Material: mat, Geometry: geomA, DrawableIndex: 2},
		{PipelineState: low, Material: mat, Geometry: geomA, DrawableIndex: 3},
	}
	SortBatches(batches)

	want := []struct {
		state uint32
		geom  uint64
	}{{1, geomA.ID()}, {1, geomA.ID()}, {1, geomB.ID()}, {2, geomA.ID()}}
	for i, w := range want {
		if batches[i].PipelineState.ID() != w.state || batches[i].Geometry.ID() != w.geom {
			t.Errorf("batch %d = state %d geometry %d, want state %d geometry %d",
				i, batches[i].PipelineState.ID(), batches[i].Geometry.ID(), w.state, w.geom)
		}
	}
	if batches[0].DrawableIndex > batches[1].DrawableIndex {
		t.Error("SortBatches() did not keep equal batches in order")
	}
}

func TestScenePipelineStateCacheInvalidation(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	pass := mat.FindTechnique(0, 0).Pass("base")
	key := PipelineStateKey{Geometry: geom, Material: mat, Pass: pass}
	factory := &fakeFactory{}
	cache := NewScenePipelineStateCache()

	if cache.PipelineState(key) != nil {
		t.Fatal("PipelineState() on an empty cache returned a state")
	}
	first := cache.GetOrCreatePipelineState(key, PipelineStateContext{}, factory)
	if first == nil || cache.PipelineState(key) != first {
		t.Fatal("GetOrCreatePipelineState() did not cache the state")
	}
	if again := cache.GetOrCreatePipelineState(key, PipelineStateContext{}, factory); again != first || factory.calls != 1 {
		t.Errorf("second GetOrCreatePipelineState() created a new state, calls = %d", factory.calls)
	}

	geom.SetTopology(wgpu.PrimitiveTopologyLineList)
	if cache.PipelineState(key) != nil {
		t.Error("PipelineState() returned a stale state after the material changed")
	}
	if recreated := cache.GetOrCreatePipelineState(key, PipelineStateContext{}, factory); recreated == first || factory.calls != 2 {
		t.Errorf("GetOrCreatePipelineState() after invalidation: calls = %d", factory.calls)
	}
}

func TestScenePipelineStateCacheFailure(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	key := PipelineStateKey{Geometry: geom, Material: mat, Pass: mat.FindTechnique(0, 0).Pass("shadow")}
	factory := &fakeFactory{failPass: "shadow"}
	cache := NewScenePipelineStateCache()

	if cache.GetOrCreatePipelineState(key, PipelineStateContext{}, factory) != nil {
		t.Fatal("GetOrCreatePipelineState() returned a state for a failing factory")
	}
	if cache.Len() != 1 || cache.PipelineState(key) != nil {
		t.Errorf("failed entry: Len() = %d", cache.Len())
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear() left %d entries", cache.Len())
	}
}

func TestScenePipelineStateCacheEvict(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	tech := mat.FindTechnique(0, 0)
	used := PipelineStateKey{Geometry: geom, Material: mat, Pass: tech.Pass("base")}
	unused := PipelineStateKey{Geometry: geom, Material: mat, Pass: tech.Pass("light")}
	factory := &fakeFactory{}
	cache := NewScenePipelineStateCache()

	cache.BeginFrame()
	cache.GetOrCreatePipelineState(used, PipelineStateContext{}, factory)
	cache.GetOrCreatePipelineState(unused, PipelineStateContext{}, factory)
	for frame := 0; frame < 3; frame++ {
		cache.BeginFrame()
		if cache.PipelineState(used) == nil {
			t.Fatalf("frame %d: PipelineState() lost the used entry", frame)
		}
	}
	if dropped := cache.Evict(2); dropped != 1 || cache.Len() != 1 {
		t.Fatalf("Evict(2) dropped %d, Len() = %d, want 1 and 1", dropped, cache.Len())
	}
	if cache.PipelineState(unused) != nil || cache.PipelineState(used) == nil {
		t.Error("Evict() dropped the wrong entry")
	}

	geom.SetTopology(wgpu.PrimitiveTopologyLineList)
	if cache.PipelineState(used) != nil {
		t.Fatal("PipelineState() returned a stale state")
	}
	if dropped := cache.Evict(100); dropped != 1 || cache.Len() != 0 {
		t.Errorf("Evict() of an invalidated entry dropped %d, Len() = %d", dropped, cache.Len())
	}
}

func TestSplitRegion(t *testing.T) {
	region := common.IntRect{Left: 512, Top: 0, Right: 1536, Bottom: 512}
	tests := []struct {
		n, i int
		want common.IntRect
	}{
		{1, 0, common.IntRect{Left: 512, Top: 0, Right: 1536, Bottom: 512}},
		{2, 1, common.IntRect{Left: 1024, Top: 0, Right: 1536, Bottom: 512}},
		{4, 3, common.IntRect{Left: 1024, Top: 256, Right: 1536, Bottom: 512}},
		{6, 4, common.IntRect{Left: 853, Top: 256, Right: 1194, Bottom: 512}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.i, tt.n), func(t *testing.T) {
			if got := splitRegion(region, tt.i, tt.n); got != tt.want {
				t.Errorf("splitRegion(%d, %d) = %+v, want %+v", tt.i, tt.n, got, tt.want)
			}
		})
	}
}

func TestCollectorBeginFrameErrors(t *testing.T) {
	f := newTestFrame(t, config.Default())
	frame := view.FrameInfo{Camera: f.camera, SpatialIndex: f.scene}

	if err := f.collector.BeginFrame(view.FrameInfo{SpatialIndex: f.scene}, f.factory, testPasses()); !errors.Is(err, view.ErrMissingCamera) {
		t.Errorf("BeginFrame() without camera error = %v, want ErrMissingCamera", err)
	}
	if err := f.collector.BeginFrame(frame, nil, testPasses()); !errors.Is(err, ErrMissingFactory) {
		t.Errorf("BeginFrame() without factory error = %v, want ErrMissingFactory", err)
	}
	duplicate := append(testPasses(), testPasses()...)
	if err := f.collector.BeginFrame(frame, f.factory, duplicate); !errors.Is(err, ErrInvalidPassDescription) {
		t.Errorf("BeginFrame() with duplicate passes error = %v, want ErrInvalidPassDescription", err)
	}
}

func TestCollectorLitBaseBatches(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	a := newBox(geom, mat, 0, 0, 0)
	b := newBox(geom, mat, 3, 0, 0)
	farLight := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 0), light.WithRange(20))
	nearLight := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 4), light.WithRange(20))

	settings := config.Default()
	settings.Shadows.Enabled = false
	f := newTestFrame(t, settings, a, b, farLight, nearLight)
	f.run(t, 1)

	c := f.collector
	if got := c.GetMainLight(); got == nil || got.Light() != nearLight {
		t.Fatalf("GetMainLight() = %v, want the closer light", got)
	}
	main := c.MainLightIndex()

	base := c.GetSortedBaseBatches("opaque")
	if len(base) != 2 {
		t.Fatalf("GetSortedBaseBatches() = %d batches, want 2", len(base))
	}
	for _, batch := range base {
		if batch.LightIndex != main || batch.Pass.Name() != "litbase" {
			t.Errorf("base batch light = %d pass = %q, want main light and litbase", batch.LightIndex, batch.Pass.Name())
		}
		if batch.PipelineState != base[0].PipelineState {
			t.Error("equal base batches resolved to different pipeline states")
		}
	}

	lights := c.GetSortedLightBatches("opaque")
	if len(lights) != 2 {
		t.Fatalf("GetSortedLightBatches() = %d batches, want 2", len(lights))
	}
	for _, batch := range lights {
		if batch.LightIndex == main || batch.Pass.Name() != "light" {
			t.Errorf("light batch light = %d pass = %q", batch.LightIndex, batch.Pass.Name())
		}
	}
	if f.factory.calls != 2 {
		t.Errorf("factory calls = %d, want 2", f.factory.calls)
	}

	f.run(t, 2)
	if f.factory.calls != 2 {
		t.Errorf("factory calls after a second frame = %d, want 2", f.factory.calls)
	}
	if got := c.Stats(); got.BaseBatches != 2 || got.LightBatches != 2 || got.VisibleLights != 2 {
		t.Errorf("Stats() = %+v", got)
	}
	if c.GetSortedBaseBatches("missing") != nil {
		t.Error("GetSortedBaseBatches() for an unknown pass returned batches")
	}
}

func TestCollectorVertexLights(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	box := newBox(geom, mat, 0, 0, 0)
	lit := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 0), light.WithRange(20))
	vertex := light.NewLight(light.LightTypePoint, light.WithPosition(0, -2, 0), light.WithRange(20),
		light.WithImportance(light.ImportanceNotImportant))

	settings := config.Default()
	settings.Shadows.Enabled = false
	f := newTestFrame(t, settings, box, lit, vertex)
	f.run(t, 1)

	c := f.collector
	var vertexIndex int
	for i, sl := range c.VisibleLights() {
		if sl.Light() == vertex {
			vertexIndex = i
		}
	}
	want := [MaxVertexLights]int{vertexIndex, NoLight, NoLight, NoLight}
	if got := c.VertexLights(box.Index()); got != want {
		t.Errorf("VertexLights() = %v, want %v", got, want)
	}
	base := c.GetSortedBaseBatches("opaque")
	if len(base) != 1 || base[0].NumVertexLights() != 1 {
		t.Fatalf("base batches = %d, want one with a vertex light", len(base))
	}
	if got := c.GetSortedLightBatches("opaque"); len(got) != 0 {
		t.Errorf("GetSortedLightBatches() = %d batches, want 0", len(got))
	}
}

func TestCollectorMainLightImportanceBeatsDistance(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	box := newBox(geom, mat, 0, 0, 0)
	important := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, -4), light.WithRange(30),
		light.WithImportance(light.ImportanceImportant))
	closer := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 6), light.WithRange(30),
		light.WithImportance(light.ImportanceAuto))

	settings := config.Default()
	settings.Shadows.Enabled = false
	f := newTestFrame(t, settings, box, important, closer)
	f.run(t, 1)

	if got := f.collector.GetMainLight(); got == nil || got.Light() != important {
		t.Fatalf("GetMainLight() = %v, want the important light", got)
	}
	if closer.Distance() >= important.Distance() {
		t.Fatalf("distances: auto %v, important %v, want the auto light closer", closer.Distance(), important.Distance())
	}
}

func TestCollectorShadowPredicate(t *testing.T) {
	newSpot := func(opts ...light.LightBuilderOption) light.Light {
		return light.NewLight(light.LightTypeSpot, append([]light.LightBuilderOption{
			light.WithPosition(0, 6, 0),
			light.WithDirection(0, -1, 0),
			light.WithFov(60),
			light.WithRange(20),
			light.WithCastShadows(true),
		}, opts...)...)
	}
	allCaps := renderer.Capabilities{DirectionalShadows: true, SpotShadows: true, PointShadows: true}
	disabled := config.Default()
	disabled.Shadows.Enabled = false

	tests := []struct {
		name     string
		light    light.Light
		settings config.Settings
		caps     renderer.Capabilities
		want     bool
	}{
		{"shadowed", newSpot(), config.Default(), allCaps, true},
		{"not important", newSpot(light.WithImportance(light.ImportanceNotImportant)), config.Default(), allCaps, false},
		{"full shadow intensity", newSpot(light.WithShadowIntensity(1)), config.Default(), allCaps, false},
		{"beyond shadow distance", newSpot(light.WithShadowDistance(5, 4)), config.Default(), allCaps, false},
		{"no backend support", newSpot(), config.Default(), renderer.Capabilities{DirectionalShadows: true, PointShadows: true}, false},
		{"shadows disabled", newSpot(), disabled, allCaps, false},
		{"no cast shadows", newSpot(light.WithCastShadows(false)), config.Default(), allCaps, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom := model.NewGeometry(model.WithVertices(model.Cube()))
			mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
			caster := newBox(geom, mat, 0, 0, 0, drawable.WithCastShadows(true))

			f := newTestFrameWithOptions(t, tt.settings, []SceneBatchCollectorOption{WithCapabilities(tt.caps)}, caster, tt.light)
			f.run(t, 1)

			sl := f.collector.GetMainLight()
			if sl == nil || sl.Light() != tt.light {
				t.Fatalf("GetMainLight() = %v, want the spot light", sl)
			}
			if sl.HasShadow() != tt.want {
				t.Errorf("HasShadow() = %v, want %v", sl.HasShadow(), tt.want)
			}
			if got := len(f.collector.ShadowSplits()) > 0; got != tt.want {
				t.Errorf("ShadowSplits() present = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectorVertexLightsSkipMainLight(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	box := newBox(geom, mat, 0, 0, 0)
	near := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 2), light.WithRange(20),
		light.WithImportance(light.ImportanceNotImportant))
	far := light.NewLight(light.LightTypePoint, light.WithPosition(0, -2, -2), light.WithRange(20),
		light.WithImportance(light.ImportanceNotImportant))

	settings := config.Default()
	settings.Shadows.Enabled = false
	f := newTestFrame(t, settings, box, near, far)
	f.run(t, 1)

	c := f.collector
	main := c.MainLightIndex()
	if main == NoLight || c.VisibleLight(main).Light() != near {
		t.Fatalf("MainLightIndex() = %d, want the closer light", main)
	}
	other := 1 - main
	want := [MaxVertexLights]int{other, NoLight, NoLight, NoLight}
	if got := c.VertexLights(box.Index()); got != want {
		t.Errorf("VertexLights() = %v, want %v", got, want)
	}
	base := c.GetSortedBaseBatches("opaque")
	if len(base) != 1 {
		t.Fatalf("GetSortedBaseBatches() = %d batches, want 1", len(base))
	}
	if base[0].VertexLights != want {
		t.Errorf("base batch vertex lights = %v, want %v", base[0].VertexLights, want)
	}
}

func TestCollectorUnlitAndMissingStates(t *testing.T) {
	unlitTech := material.NewTechnique("unlit", material.NewPass("base"))
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	unlit := newBox(geom, material.NewMaterial(material.WithTechnique(unlitTech, 0, 0)), 0, 0, 0)
	lit := newBox(geom, material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0)), 2, 0, 0)
	l := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 0), light.WithRange(20))

	settings := config.Default()
	settings.Shadows.Enabled = false
	f := newTestFrame(t, settings, unlit, lit, l)
	f.factory.failPass = "litbase"
	f.run(t, 1)

	base := f.collector.GetSortedBaseBatches("opaque")
	if len(base) != 1 || base[0].Drawable != unlit || base[0].LightIndex != NoLight {
		t.Fatalf("GetSortedBaseBatches() = %d batches, want the unlit batch only", len(base))
	}
	if got := f.collector.Stats().MissingPipelineStates; got != 1 {
		t.Errorf("Stats().MissingPipelineStates = %d, want 1", got)
	}
}

func TestCollectorSpotShadow(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	caster := newBox(geom, mat, 0, 0, 0, drawable.WithCastShadows(true))
	receiver := newBox(geom, mat, 0, -3, 0)
	spot := light.NewLight(light.LightTypeSpot,
		light.WithPosition(0, 6, 0),
		light.WithDirection(0, -1, 0),
		light.WithFov(60),
		light.WithRange(20),
		light.WithCastShadows(true),
	)

	f := newTestFrame(t, config.Default(), caster, receiver, spot)
	f.run(t, 1)

	c := f.collector
	sl := c.GetMainLight()
	if sl == nil || !sl.HasShadow() {
		t.Fatal("spot light has no shadow")
	}
	if sl.NumSplits() != 1 || !sl.ShadowMap().IsValid() {
		t.Fatalf("NumSplits() = %d, shadow map valid = %v", sl.NumSplits(), sl.ShadowMap().IsValid())
	}
	splits := c.ShadowSplits()
	if len(splits) != 1 {
		t.Fatalf("ShadowSplits() = %d, want 1", len(splits))
	}
	split := splits[0]
	if len(split.Casters) != 1 || split.Casters[0] != caster {
		t.Errorf("Casters = %d, want the caster only", len(split.Casters))
	}
	if len(split.Batches) != 1 || split.Batches[0].Pass.Name() != "shadow" || split.Batches[0].PipelineState == nil {
		t.Errorf("split batches = %d, want one shadow batch with a state", len(split.Batches))
	}
	if split.ShadowMap.Region.Size() != (common.IntSize{Width: 512, Height: 512}) {
		t.Errorf("split region = %+v, want 512x512", split.ShadowMap.Region)
	}
	if got := c.Stats(); got.ShadowedLights != 1 || got.ShadowBatches != 1 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestCollectorShadowWithoutCasters(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	mat := material.NewMaterial(material.WithTechnique(testTechnique(), 0, 0))
	box := newBox(geom, mat, 0, 0, 0)
	spot := light.NewLight(light.LightTypeSpot,
		light.WithPosition(0, 6, 0),
		light.WithDirection(0, -1, 0),
		light.WithFov(60),
		light.WithRange(20),
		light.WithCastShadows(true),
	)

	f := newTestFrame(t, config.Default(), box, spot)
	f.run(t, 1)

	if sl := f.collector.GetMainLight(); sl == nil || sl.HasShadow() || sl.ShadowMapSize() != (common.IntSize{}) {
		t.Error("light without casters kept its shadow")
	}
	if len(f.collector.ShadowSplits()) != 0 {
		t.Errorf("ShadowSplits() = %d, want 0", len(f.collector.ShadowSplits()))
	}
}
