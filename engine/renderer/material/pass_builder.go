package material

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/xgdwangdechao/rbfx/engine/renderer/shader"
)

// PassBuilderOption is a function that configures a pass instance during construction.
type PassBuilderOption func(*pass)

// WithShaders is an option builder that sets the vertex and fragment shader templates of the pass.
//
// Parameters:
//   - vertex: the vertex shader
//   - fragment: the fragment shader
//
// Returns:
//   - PassBuilderOption: a function that applies the shaders option to a pass
func WithShaders(vertex, fragment shader.Shader) PassBuilderOption {
	return func(p *pass) {
		p.vertexShader = vertex
		p.fragmentShader = fragment
	}
}

// WithBlendMode is an option builder that sets the blend mode of the pass.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - PassBuilderOption: a function that applies the blend mode option to a pass
func WithBlendMode(mode BlendMode) PassBuilderOption {
	return func(p *pass) {
		p.blendMode = mode
	}
}

// WithDepthWrite is an option builder that toggles depth writes.
func WithDepthWrite(enabled bool) PassBuilderOption {
	return func(p *pass) {
		p.depthWrite = enabled
	}
}

// WithDepthCompare is an option builder that sets the depth test function.
func WithDepthCompare(compare wgpu.CompareFunction) PassBuilderOption {
	return func(p *pass) {
		p.depthCompare = compare
	}
}

// WithPassCullMode is an option builder that overrides the material cull mode for this pass.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PassBuilderOption: a function that applies the cull mode override to a pass
func WithPassCullMode(mode wgpu.CullMode) PassBuilderOption {
	return func(p *pass) {
		p.cullMode = mode
		p.overrideCull = true
	}
}

// WithAlphaToCoverage is an option builder that toggles alpha-to-coverage.
func WithAlphaToCoverage(enabled bool) PassBuilderOption {
	return func(p *pass) {
		p.alphaToCoverage = enabled
	}
}
