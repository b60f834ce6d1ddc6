package engine

import (
	"errors"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/batch"
	"github.com/xgdwangdechao/rbfx/engine/camera"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
	"github.com/xgdwangdechao/rbfx/engine/light"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/scene"
	"github.com/xgdwangdechao/rbfx/engine/view"
)

func newTestEngine(t *testing.T, backend renderer.Backend, settings config.Settings) Engine {
	t.Helper()
	e := NewEngine(backend, WithSettings(settings), WithShaderValidation(false))
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(e.Release)
	return e
}

func testFrameInfo(number uint32, s scene.Scene) view.FrameInfo {
	return view.FrameInfo{
		FrameNumber:  number,
		TimeStep:     0.016,
		OutputSize:   common.IntSize{Width: 640, Height: 480},
		Camera:       camera.NewCamera(camera.WithPosition(0, 0, 10), camera.WithTarget(0, 0, 0)),
		SpatialIndex: s,
	}
}

func noShadowSettings() config.Settings {
	settings := config.Default()
	settings.Workers = 2
	settings.Shadows.Enabled = false
	return settings
}

func TestEngineInitializeErrors(t *testing.T) {
	if err := NewEngine(nil).Initialize(); !errors.Is(err, ErrMissingBackend) {
		t.Errorf("Initialize() error = %v, want ErrMissingBackend", err)
	}

	settings := config.Default()
	settings.Workers = -1
	err := NewEngine(renderer.NewStubBackend(), WithSettings(settings)).Initialize()
	if !errors.Is(err, config.ErrInvalidSettings) {
		t.Errorf("Initialize() error = %v, want ErrInvalidSettings", err)
	}

	bad := config.Default()
	bad.Passes = []config.PassSettings{{Name: "opaque", Role: config.RoleUnlit}}
	err = NewEngine(renderer.NewStubBackend(), WithSettings(bad)).Initialize()
	if err == nil {
		t.Error("Initialize() with a pass without material passes succeeded")
	}
}

func TestEngineNotInitialized(t *testing.T) {
	e := NewEngine(renderer.NewStubBackend())
	if _, err := e.RenderFrame(testFrameInfo(1, scene.NewScene())); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RenderFrame() error = %v, want ErrNotInitialized", err)
	}
	if e.Collector() != nil || e.VisibilityCache() != nil || e.PipelineCache() != nil {
		t.Error("accessors returned values before Initialize()")
	}
}

func TestEngineRenderFrameInvalid(t *testing.T) {
	backend := renderer.NewStubBackend()
	e := newTestEngine(t, backend, noShadowSettings())

	frame := testFrameInfo(1, scene.NewScene())
	frame.Camera = nil
	if _, err := e.RenderFrame(frame); !errors.Is(err, view.ErrMissingCamera) {
		t.Errorf("RenderFrame() error = %v, want ErrMissingCamera", err)
	}
	frame = testFrameInfo(1, nil)
	if _, err := e.RenderFrame(frame); !errors.Is(err, view.ErrMissingSpatialIndex) {
		t.Errorf("RenderFrame() error = %v, want ErrMissingSpatialIndex", err)
	}
	if got := backend.Stats().Frames; got != 0 {
		t.Errorf("Frames = %d, want 0", got)
	}
}

func TestEngineRenderFrame(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	near := drawable.NewDrawable(drawable.WithPosition(0, 0, 0), drawable.WithBatch(geom, nil))
	far := drawable.NewDrawable(drawable.WithPosition(4, 0, 0), drawable.WithBatch(geom, nil), drawable.WithDrawDistance(5))
	l := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 0), light.WithRange(20))
	s := scene.NewScene(scene.WithDrawables(near, far, l))

	backend := renderer.NewStubBackend()
	e := newTestEngine(t, backend, noShadowSettings())

	stats, err := e.RenderFrame(testFrameInfo(1, s))
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if stats.VisibleGeometries != 1 || stats.VisibleLights != 1 {
		t.Errorf("visible = %d geometries, %d lights, want 1, 1", stats.VisibleGeometries, stats.VisibleLights)
	}
	if stats.BaseBatches != 1 || stats.LightBatches != 0 {
		t.Errorf("batches = %d base, %d light, want 1, 0", stats.BaseBatches, stats.LightBatches)
	}
	if stats.Draws != 1 {
		t.Errorf("Draws = %d, want 1", stats.Draws)
	}

	bs := backend.Stats()
	if bs.Frames != 1 || bs.ScenePasses != 2 || bs.ShadowPasses != 0 {
		t.Errorf("backend = %d frames, %d scene passes, %d shadow passes, want 1, 2, 0", bs.Frames, bs.ScenePasses, bs.ShadowPasses)
	}
	if bs.UnbalancedEndCalls != 0 {
		t.Errorf("UnbalancedEndCalls = %d, want 0", bs.UnbalancedEndCalls)
	}

	draws := backend.Draws()
	if len(draws) != 1 {
		t.Fatalf("len(Draws()) = %d, want 1", len(draws))
	}
	want := renderer.StubDraw{
		Pass:          "opaque",
		PipelineID:    draws[0].PipelineID,
		GeometryID:    geom.ID(),
		IndexStart:    geom.IndexStart(),
		IndexCount:    geom.IndexCount(),
		BaseVertex:    geom.BaseVertex(),
		InstanceCount: 1,
	}
	if draws[0] != want {
		t.Errorf("Draws()[0] = %+v, want %+v", draws[0], want)
	}

	for _, group := range []renderer.ShaderParameterGroup{
		renderer.GroupFrame, renderer.GroupCamera, renderer.GroupZone,
		renderer.GroupLight, renderer.GroupMaterial, renderer.GroupObject,
	} {
		if got := bs.Uploads[group]; got != 1 {
			t.Errorf("Uploads[%s] = %d, want 1", group, got)
		}
	}

	for _, u := range backend.Uploads() {
		if u.Group != renderer.GroupLight {
			continue
		}
		if u.Params[0].Name != "LightPos" || u.Data[1] != 2 {
			t.Errorf("light upload starts with %s = %v, want LightPos with y = 2", u.Params[0].Name, u.Data[:4])
		}
		if got := u.Data[3]; got != 1.0/20 {
			t.Errorf("light inverse range = %v, want %v", got, 1.0/20)
		}
	}
}

func TestEngineReusesPipelineStates(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	box := drawable.NewDrawable(drawable.WithBatch(geom, nil))
	l := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 0), light.WithRange(20))
	s := scene.NewScene(scene.WithDrawables(box, l))

	backend := renderer.NewStubBackend()
	e := newTestEngine(t, backend, noShadowSettings())

	first, err := e.RenderFrame(testFrameInfo(1, s))
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	second, err := e.RenderFrame(testFrameInfo(2, s))
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if first.PipelineStates == 0 || second.PipelineStates != first.PipelineStates {
		t.Errorf("PipelineStates = %d then %d, want equal and non-zero", first.PipelineStates, second.PipelineStates)
	}
	if got := backend.Stats().RegisteredStates; got != first.PipelineStates {
		t.Errorf("RegisteredStates = %d, want %d", got, first.PipelineStates)
	}
}

func TestEngineShadowSplit(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	caster := drawable.NewDrawable(drawable.WithBatch(geom, nil), drawable.WithCastShadows(true))
	spot := light.NewLight(light.LightTypeSpot,
		light.WithPosition(0, 6, 0),
		light.WithDirection(0, -1, 0),
		light.WithFov(60),
		light.WithRange(20),
		light.WithCastShadows(true),
	)
	s := scene.NewScene(scene.WithDrawables(caster, spot))

	settings := config.Default()
	settings.Workers = 2
	backend := renderer.NewStubBackend()
	e := newTestEngine(t, backend, settings)

	stats, err := e.RenderFrame(testFrameInfo(1, s))
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if stats.ShadowSplits != 1 || stats.ShadowBatches != 1 {
		t.Errorf("shadow = %d splits, %d batches, want 1, 1", stats.ShadowSplits, stats.ShadowBatches)
	}
	if stats.ShadowAtlasPages != 1 {
		t.Errorf("ShadowAtlasPages = %d, want 1", stats.ShadowAtlasPages)
	}
	if stats.Draws != 2 {
		t.Errorf("Draws = %d, want 2", stats.Draws)
	}

	passes := backend.ShadowPasses()
	if len(passes) != 1 {
		t.Fatalf("len(ShadowPasses()) = %d, want 1", len(passes))
	}
	if got := passes[0].Viewport; got.Width() != 512 || got.Height() != 512 {
		t.Errorf("shadow viewport = %+v, want 512x512", got)
	}

	draws := backend.Draws()
	if len(draws) != 2 || draws[1].Pass != "opaque" {
		t.Fatalf("Draws() = %+v, want a shadow draw then an opaque draw", draws)
	}
	if draws[0].PipelineID == draws[1].PipelineID {
		t.Errorf("shadow and scene draws share pipeline state %d", draws[0].PipelineID)
	}
	if got := backend.Stats().ResourceBinds[renderer.GroupLight]; got != 1 {
		t.Errorf("ResourceBinds[light] = %d, want 1", got)
	}
}

func TestEngineRelease(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	caster := drawable.NewDrawable(drawable.WithBatch(geom, nil), drawable.WithCastShadows(true))
	spot := light.NewLight(light.LightTypeSpot,
		light.WithPosition(0, 6, 0),
		light.WithDirection(0, -1, 0),
		light.WithFov(60),
		light.WithRange(20),
		light.WithCastShadows(true),
	)
	s := scene.NewScene(scene.WithDrawables(caster, spot))

	backend := renderer.NewStubBackend()
	e := NewEngine(backend, WithShaderValidation(false))
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := e.RenderFrame(testFrameInfo(1, s)); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	e.Release()

	bs := backend.Stats()
	if bs.TexturesCreated == 0 || bs.TexturesReleased != bs.TexturesCreated {
		t.Errorf("textures = %d created, %d released, want all released", bs.TexturesCreated, bs.TexturesReleased)
	}
	if e.PipelineCache().Len() != 0 {
		t.Errorf("PipelineCache().Len() = %d after Release(), want 0", e.PipelineCache().Len())
	}
	if _, err := e.RenderFrame(testFrameInfo(2, s)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RenderFrame() after Release() error = %v, want ErrNotInitialized", err)
	}
}

func TestEngineReleaseStopsWorkers(t *testing.T) {
	settings := noShadowSettings()
	settings.Workers = 4
	s := scene.NewScene(scene.WithDrawables(
		drawable.NewDrawable(drawable.WithBatch(model.NewGeometry(model.WithVertices(model.Cube())), nil)),
	))

	before := runtime.NumGoroutine()
	e := NewEngine(renderer.NewStubBackend(), WithSettings(settings), WithShaderValidation(false))
	for cycle := 0; cycle < 5; cycle++ {
		if err := e.Initialize(); err != nil {
			t.Fatalf("cycle %d: Initialize() error = %v", cycle, err)
		}
		if _, err := e.RenderFrame(testFrameInfo(uint32(cycle+1), s)); err != nil {
			t.Fatalf("cycle %d: RenderFrame() error = %v", cycle, err)
		}
		e.Release()
	}

	deadline := time.Now().Add(2 * time.Second)
	got := runtime.NumGoroutine()
	for got > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		got = runtime.NumGoroutine()
	}
	if got > before {
		t.Errorf("goroutines after %d Initialize/Release cycles = %d, want <= %d", 5, got, before)
	}
}

func TestEngineWithPasses(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	box := drawable.NewDrawable(drawable.WithBatch(geom, nil))
	s := scene.NewScene(scene.WithDrawables(box))

	backend := renderer.NewStubBackend()
	e := NewEngine(backend,
		WithSettings(noShadowSettings()),
		WithShaderValidation(false),
		WithPasses(batch.ScenePassDescription{Name: "main", Role: batch.RoleUnlit, UnlitBasePass: "base"}),
	)
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer e.Release()

	if _, err := e.RenderFrame(testFrameInfo(1, s)); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	draws := backend.Draws()
	if len(draws) != 1 || draws[0].Pass != "main" {
		t.Errorf("Draws() = %+v, want one draw in pass main", draws)
	}
	if got := backend.Stats().Uploads[renderer.GroupLight]; got != 0 {
		t.Errorf("Uploads[light] = %d, want 0", got)
	}
}

func TestShaderDefines(t *testing.T) {
	geom := model.NewGeometry(model.WithVertices(model.Cube()))
	box := drawable.NewDrawable(drawable.WithBatch(geom, nil))
	l := light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 0), light.WithRange(20))
	s := scene.NewScene(scene.WithDrawables(box, l))

	e := newTestEngine(t, renderer.NewStubBackend(), noShadowSettings())
	if _, err := e.RenderFrame(testFrameInfo(1, s)); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	sl := e.Collector().VisibleLight(0)
	if sl == nil {
		t.Fatal("VisibleLight(0) = nil")
	}

	tests := []struct {
		name string
		ctx  batch.PipelineStateContext
		want []string
	}{
		{"unlit", batch.PipelineStateContext{SubPass: batch.SubPassUnlitBase}, nil},
		{"vertex lights", batch.PipelineStateContext{SubPass: batch.SubPassLitBase, NumVertexLights: 2}, []string{"NUMVERTEXLIGHTS=2"}},
		{"pixel light", batch.PipelineStateContext{SubPass: batch.SubPassLight, Light: sl}, []string{"POINTLIGHT", "PERPIXEL", "SPECULAR"}},
		{"shadow", batch.PipelineStateContext{SubPass: batch.SubPassShadow, Light: sl}, []string{"SHADOWPASS", "POINTLIGHT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shaderDefines(tt.ctx); !slices.Equal(got, tt.want) {
				t.Errorf("shaderDefines() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultTechniqueSkipsUnlitBasePasses(t *testing.T) {
	tech, err := NewDefaultTechnique(config.Default())
	if err != nil {
		t.Fatalf("NewDefaultTechnique() error = %v", err)
	}
	for _, name := range []string{"base", "litbase", "light", "shadow"} {
		if tech.Pass(name) == nil {
			t.Errorf("Pass(%q) = nil", name)
		}
	}
	for _, name := range []string{"alpha", "litalpha"} {
		if tech.Pass(name) != nil {
			t.Errorf("Pass(%q) exists on the opaque default technique", name)
		}
	}
	if tech.Pass("light").BlendMode() == tech.Pass("base").BlendMode() {
		t.Error("light pass does not blend additively")
	}
}
