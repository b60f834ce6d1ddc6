package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/shader"
)

// PipelineStateDescOption is a function that configures a pipeline state descriptor.
type PipelineStateDescOption func(*PipelineStateDesc)

// WithLabel is an option builder that sets the debug label. The label does not take part in equality.
func WithLabel(label string) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.Label = label
	}
}

// WithShaders is an option builder that sets the vertex and fragment shaders.
//
// Parameters:
//   - vertex: the vertex shader variant
//   - fragment: the fragment shader variant
//
// Returns:
//   - PipelineStateDescOption: a function that applies the shaders option to a descriptor
func WithShaders(vertex, fragment shader.Shader) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.VertexShader = vertex
		d.FragmentShader = fragment
	}
}

// WithVertexLayoutHash is an option builder that sets the vertex layout hash.
func WithVertexLayoutHash(hash uint32) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.VertexLayoutHash = hash
	}
}

// WithTopology is an option builder that sets the primitive topology and index format.
//
// Parameters:
//   - topology: the primitive topology
//   - indexFormat: the index format
//
// Returns:
//   - PipelineStateDescOption: a function that applies the topology option to a descriptor
func WithTopology(topology wgpu.PrimitiveTopology, indexFormat wgpu.IndexFormat) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.Topology = topology
		d.IndexFormat = indexFormat
	}
}

// WithDepth is an option builder that sets depth write and compare function.
//
// Parameters:
//   - write: true to write depth
//   - compare: the depth compare function
//
// Returns:
//   - PipelineStateDescOption: a function that applies the depth option to a descriptor
func WithDepth(write bool, compare wgpu.CompareFunction) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.DepthWrite = write
		d.DepthCompare = compare
	}
}

// WithStencil is an option builder that sets the stencil block.
func WithStencil(stencil StencilState) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.Stencil = stencil
	}
}

// WithBlend is an option builder that sets the blend mode, alpha-to-coverage and color write mask.
//
// Parameters:
//   - mode: the blend mode
//   - alphaToCoverage: true to enable alpha-to-coverage
//   - writeMask: the color write mask
//
// Returns:
//   - PipelineStateDescOption: a function that applies the blend option to a descriptor
func WithBlend(mode material.BlendMode, alphaToCoverage bool, writeMask wgpu.ColorWriteMask) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.BlendMode = mode
		d.AlphaToCoverage = alphaToCoverage
		d.ColorWriteMask = writeMask
	}
}

// WithCullMode is an option builder that sets the cull mode.
func WithCullMode(mode wgpu.CullMode) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.CullMode = mode
	}
}

// WithFrontFace is an option builder that sets the front face winding.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.FrontFace = frontFace
	}
}

// WithDepthBias is an option builder that sets constant and slope-scaled depth bias.
//
// Parameters:
//   - bias: the constant depth bias in depth units
//   - slopeScale: the slope-scaled bias
//
// Returns:
//   - PipelineStateDescOption: a function that applies the depth bias option to a descriptor
func WithDepthBias(bias int32, slopeScale float32) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.DepthBias = bias
		d.DepthBiasSlopeScale = slopeScale
	}
}

// WithFormats is an option builder that sets the render target formats. A color format of
// wgpu.TextureFormatUndefined describes a depth-only pipeline.
//
// Parameters:
//   - color: the color target format
//   - depth: the depth target format
//
// Returns:
//   - PipelineStateDescOption: a function that applies the formats option to a descriptor
func WithFormats(color, depth wgpu.TextureFormat) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		d.ColorFormat = color
		d.DepthFormat = depth
	}
}

// WithSampleCount is an option builder that sets the multisample count.
func WithSampleCount(count uint32) PipelineStateDescOption {
	return func(d *PipelineStateDesc) {
		if count > 0 {
			d.SampleCount = count
		}
	}
}
