package renderer

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
)

// StubDraw is one DrawIndexed call recorded by the stub backend.
type StubDraw struct {
	Pass          string
	PipelineID    uint32
	GeometryID    uint64
	IndexStart    int
	IndexCount    int
	BaseVertex    int
	InstanceCount int
}

// StubShadowPass is one BeginShadowPass call recorded by the stub backend.
type StubShadowPass struct {
	TextureID uint32
	Viewport  common.IntRect
	Clear     bool
}

// StubUpload is one UploadShaderParameters call recorded by the stub backend.
type StubUpload struct {
	Group  ShaderParameterGroup
	Params []ShaderParameterDesc
	Data   []float32
}

// StubStats counts the calls received by the stub backend.
type StubStats struct {
	Frames             int
	ScenePasses        int
	ShadowPasses       int
	PipelineStates     int
	RegisteredStates   int
	BufferBinds        int
	Draws              int
	TexturesCreated    int
	TexturesReleased   int
	Uploads            [NumShaderParameterGroups]int
	ResourceBinds      [NumShaderParameterGroups]int
	UnbalancedEndCalls int
}

// stubBackend is the implementation of the StubBackend interface.
type stubBackend struct {
	mu *sync.Mutex

	caps        Capabilities
	registerErr error

	nextTextureID uint32
	pass          string
	inPass        bool
	pipelineID    uint32
	geometryID    uint64

	stats        StubStats
	draws        []StubDraw
	shadowPasses []StubShadowPass
	uploads      []StubUpload
}

// StubBackend is a Backend that records every call instead of talking to a GPU.
// It backs tests and headless runs without a device.
type StubBackend interface {
	Backend

	// Stats returns the call counters.
	//
	// Returns:
	//   - StubStats: the counters
	Stats() StubStats

	// Draws returns the recorded draw calls in call order.
	//
	// Returns:
	//   - []StubDraw: the draws
	Draws() []StubDraw

	// ShadowPasses returns the recorded shadow passes in call order.
	//
	// Returns:
	//   - []StubShadowPass: the shadow passes
	ShadowPasses() []StubShadowPass

	// Uploads returns the recorded parameter uploads in call order.
	//
	// Returns:
	//   - []StubUpload: the uploads
	Uploads() []StubUpload

	// ResetRecording clears the recorded calls and counters.
	ResetRecording()
}

var _ StubBackend = &stubBackend{}

// NewStubBackend creates a recording backend. By default every shadow type is supported.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - StubBackend: the backend
func NewStubBackend(options ...StubBackendOption) StubBackend {
	b := &stubBackend{
		mu: &sync.Mutex{},
		caps: Capabilities{
			DirectionalShadows: true,
			SpotShadows:        true,
			PointShadows:       true,
			MaxTextureSize:     8192,
			ColorFormat:        wgpu.TextureFormatBGRA8Unorm,
			DepthFormat:        wgpu.TextureFormatDepth32Float,
			ShadowFormat:       wgpu.TextureFormatDepth32Float,
			SampleCount:        MSAAOff,
		},
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *stubBackend) RegisterPipelineState(state pipeline.PipelineState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.registerErr != nil {
		return b.registerErr
	}
	b.stats.RegisteredStates++
	return nil
}

func (b *stubBackend) Capabilities() Capabilities {
	return b.caps
}

func (b *stubBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Frames++
	return nil
}

func (b *stubBackend) EndFrame() error {
	return nil
}

func (b *stubBackend) CreateShadowTexture(label string, size int) (*RenderTexture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextTextureID++
	b.stats.TexturesCreated++
	return &RenderTexture{
		ID:     b.nextTextureID,
		Label:  label,
		Size:   common.IntSize{Width: size, Height: size},
		Format: b.caps.ShadowFormat,
	}, nil
}

func (b *stubBackend) ReleaseTexture(tex *RenderTexture) {
	if tex == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.TexturesReleased++
}

func (b *stubBackend) BeginShadowPass(tex *RenderTexture, viewport common.IntRect, clear bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.ShadowPasses++
	b.shadowPasses = append(b.shadowPasses, StubShadowPass{TextureID: tex.ID, Viewport: viewport, Clear: clear})
	b.pass = tex.Label
	b.inPass = true
	return nil
}

func (b *stubBackend) EndShadowPass() {
	b.endPass()
}

func (b *stubBackend) BeginScenePass(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.ScenePasses++
	b.pass = name
	b.inPass = true
	return nil
}

func (b *stubBackend) EndScenePass() {
	b.endPass()
}

func (b *stubBackend) endPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inPass {
		b.stats.UnbalancedEndCalls++
	}
	b.inPass = false
	b.pipelineID = 0
	b.geometryID = 0
}

func (b *stubBackend) SetPipelineState(state pipeline.PipelineState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.PipelineStates++
	b.pipelineID = state.ID()
}

func (b *stubBackend) SetBuffers(geometry model.Geometry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.BufferBinds++
	b.geometryID = geometry.ID()
}

func (b *stubBackend) UploadShaderParameters(group ShaderParameterGroup, params []ShaderParameterDesc, data []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Uploads[group]++
	b.uploads = append(b.uploads, StubUpload{
		Group:  group,
		Params: append([]ShaderParameterDesc(nil), params...),
		Data:   append([]float32(nil), data...),
	})
}

func (b *stubBackend) BindShaderResources(group ShaderParameterGroup, resources []ShaderResource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.ResourceBinds[group]++
}

func (b *stubBackend) DrawIndexed(indexStart, indexCount, baseVertex, instanceCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Draws++
	b.draws = append(b.draws, StubDraw{
		Pass:          b.pass,
		PipelineID:    b.pipelineID,
		GeometryID:    b.geometryID,
		IndexStart:    indexStart,
		IndexCount:    indexCount,
		BaseVertex:    baseVertex,
		InstanceCount: instanceCount,
	})
}

func (b *stubBackend) Stats() StubStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *stubBackend) Draws() []StubDraw {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StubDraw(nil), b.draws...)
}

func (b *stubBackend) ShadowPasses() []StubShadowPass {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StubShadowPass(nil), b.shadowPasses...)
}

func (b *stubBackend) Uploads() []StubUpload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StubUpload(nil), b.uploads...)
}

func (b *stubBackend) ResetRecording() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = StubStats{}
	b.draws = nil
	b.shadowPasses = nil
	b.uploads = nil
}
