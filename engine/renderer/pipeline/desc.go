package pipeline

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/shader"
)

// ErrInvalidPipelineDesc is returned for descriptors without both shaders.
var ErrInvalidPipelineDesc = errors.New("pipeline: invalid pipeline state descriptor")

// StencilState is the stencil block of a pipeline state descriptor.
type StencilState struct {
	Enabled   bool
	Compare   wgpu.CompareFunction
	Pass      wgpu.StencilOperation
	Fail      wgpu.StencilOperation
	DepthFail wgpu.StencilOperation
	ReadMask  uint32
	WriteMask uint32
}

// PipelineStateDesc describes every input of a render pipeline. It is a comparable value:
// two descriptors built from the same inputs are equal and intern to the same PipelineState.
// Shaders compare by identity, which holds because shader variants are memoised.
type PipelineStateDesc struct {
	Label string

	VertexLayoutHash uint32
	VertexShader     shader.Shader
	FragmentShader   shader.Shader

	Topology    wgpu.PrimitiveTopology
	IndexFormat wgpu.IndexFormat

	DepthWrite   bool
	DepthCompare wgpu.CompareFunction
	Stencil      StencilState

	ColorWriteMask  wgpu.ColorWriteMask
	BlendMode       material.BlendMode
	AlphaToCoverage bool

	CullMode            wgpu.CullMode
	FrontFace           wgpu.FrontFace
	DepthBias           int32
	DepthBiasSlopeScale float32

	ColorFormat wgpu.TextureFormat
	DepthFormat wgpu.TextureFormat
	SampleCount uint32
}

// NewPipelineStateDesc creates a descriptor with the defaults of an opaque triangle-list
// pipeline and applies the provided options.
//
// Parameters:
//   - options: variadic list of PipelineStateDescOption functions
//
// Returns:
//   - PipelineStateDesc: the descriptor
func NewPipelineStateDesc(options ...PipelineStateDescOption) PipelineStateDesc {
	d := PipelineStateDesc{
		Topology:       wgpu.PrimitiveTopologyTriangleList,
		IndexFormat:    wgpu.IndexFormatUint32,
		DepthWrite:     true,
		DepthCompare:   wgpu.CompareFunctionLessEqual,
		ColorWriteMask: wgpu.ColorWriteMaskAll,
		CullMode:       wgpu.CullModeBack,
		FrontFace:      wgpu.FrontFaceCCW,
		ColorFormat:    wgpu.TextureFormatBGRA8Unorm,
		DepthFormat:    wgpu.TextureFormatDepth32Float,
		SampleCount:    1,
	}
	for _, opt := range options {
		opt(&d)
	}
	return d
}

// IsValid reports whether the descriptor has both shaders.
//
// Returns:
//   - bool: true if a pipeline can be built from the descriptor
func (d PipelineStateDesc) IsValid() bool {
	return d.VertexShader != nil && d.FragmentShader != nil
}

// key returns the descriptor without its label, used as the interning key.
func (d PipelineStateDesc) key() PipelineStateDesc {
	d.Label = ""
	return d
}

// Hash returns an FNV-1a hash of every field except the label. The result is never 0.
//
// Returns:
//   - uint32: the hash
func (d PipelineStateDesc) Hash() uint32 {
	h := fnv.New32a()
	var buf [4]byte
	u32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		h.Write(buf[:])
	}
	b := func(v bool) {
		if v {
			u32(1)
		} else {
			u32(0)
		}
	}
	str := func(s shader.Shader) {
		if s != nil {
			h.Write([]byte(s.Key()))
		}
		h.Write([]byte{0})
	}

	u32(d.VertexLayoutHash)
	str(d.VertexShader)
	str(d.FragmentShader)
	u32(uint32(d.Topology))
	u32(uint32(d.IndexFormat))
	b(d.DepthWrite)
	u32(uint32(d.DepthCompare))
	b(d.Stencil.Enabled)
	u32(uint32(d.Stencil.Compare))
	u32(uint32(d.Stencil.Pass))
	u32(uint32(d.Stencil.Fail))
	u32(uint32(d.Stencil.DepthFail))
	u32(d.Stencil.ReadMask)
	u32(d.Stencil.WriteMask)
	u32(uint32(d.ColorWriteMask))
	u32(uint32(d.BlendMode))
	b(d.AlphaToCoverage)
	u32(uint32(d.CullMode))
	u32(uint32(d.FrontFace))
	u32(uint32(d.DepthBias))
	u32(math.Float32bits(d.DepthBiasSlopeScale))
	u32(uint32(d.ColorFormat))
	u32(uint32(d.DepthFormat))
	u32(d.SampleCount)

	if sum := h.Sum32(); sum != 0 {
		return sum
	}
	return 1
}
