package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/model"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// Capabilities describes what a Backend supports. Shadow flags gate the shadow predicate
// of each light type.
type Capabilities struct {
	DirectionalShadows bool
	SpotShadows        bool
	PointShadows       bool
	MaxTextureSize     int
	ColorFormat        wgpu.TextureFormat
	DepthFormat        wgpu.TextureFormat
	ShadowFormat       wgpu.TextureFormat
	SampleCount        MSAASampleCount
}

// Backend is the capability interface the frame is recorded against. The wgpu backend
// encodes real GPU work; the stub backend records calls for tests and headless runs.
//
// All methods are called from the goroutine that executes the DrawCommandQueue.
type Backend interface {
	pipeline.Registrar

	// Capabilities returns the supported feature set.
	//
	// Returns:
	//   - Capabilities: the capabilities
	Capabilities() Capabilities

	// BeginFrame starts recording a frame. Per-frame transient resources of the previous
	// frame are recycled.
	//
	// Returns:
	//   - error: an error if recording could not be started
	BeginFrame() error

	// EndFrame finishes recording and submits the frame.
	//
	// Returns:
	//   - error: a submission error
	EndFrame() error

	// CreateShadowTexture creates a square depth texture usable as a shadow atlas page.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the width and height in texels
	//
	// Returns:
	//   - *RenderTexture: the texture
	//   - error: a creation error
	CreateShadowTexture(label string, size int) (*RenderTexture, error)

	// ReleaseTexture frees a texture created by the backend.
	//
	// Parameters:
	//   - tex: the texture
	ReleaseTexture(tex *RenderTexture)

	// BeginShadowPass starts a depth-only pass rendering into a region of a shadow texture.
	//
	// Parameters:
	//   - tex: the shadow texture
	//   - viewport: the region to render into
	//   - clear: true to clear the whole texture before rendering
	//
	// Returns:
	//   - error: an error if the pass could not be started
	BeginShadowPass(tex *RenderTexture, viewport common.IntRect, clear bool) error

	// EndShadowPass finishes the current shadow pass.
	EndShadowPass()

	// BeginScenePass starts a color pass.
	//
	// Parameters:
	//   - name: the scene pass name
	//
	// Returns:
	//   - error: an error if the pass could not be started
	BeginScenePass(name string) error

	// EndScenePass finishes the current color pass.
	EndScenePass()

	// SetPipelineState binds a pipeline state.
	SetPipelineState(state pipeline.PipelineState)

	// SetBuffers binds the vertex and index buffers of a geometry.
	SetBuffers(geometry model.Geometry)

	// UploadShaderParameters uploads the packed values of one parameter group.
	//
	// Parameters:
	//   - group: the parameter group
	//   - params: the parameter layout
	//   - data: the packed values
	UploadShaderParameters(group ShaderParameterGroup, params []ShaderParameterDesc, data []float32)

	// BindShaderResources binds the textures of one parameter group.
	//
	// Parameters:
	//   - group: the parameter group
	//   - resources: the textures
	BindShaderResources(group ShaderParameterGroup, resources []ShaderResource)

	// DrawIndexed draws indexed primitives with the bound state.
	//
	// Parameters:
	//   - indexStart: the first index
	//   - indexCount: the number of indices
	//   - baseVertex: the value added to each index
	//   - instanceCount: the number of instances
	DrawIndexed(indexStart, indexCount, baseVertex, instanceCount int)
}
