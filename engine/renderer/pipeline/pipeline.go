package pipeline

import (
	"hash/fnv"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineState is the implementation of the PipelineState interface.
type pipelineState struct {
	mu *sync.RWMutex

	id             uint32
	desc           PipelineStateDesc
	hash           uint32
	shaderHash     uint32
	renderPipeline *wgpu.RenderPipeline
}

// PipelineState is the interned, shared handle for one PipelineStateDesc.
// Batches compare and sort pipeline states by ID.
type PipelineState interface {
	// ID returns the intern order of the state, starting at 1.
	//
	// Returns:
	//   - uint32: the state ID
	ID() uint32

	// Desc returns the descriptor the state was built from.
	//
	// Returns:
	//   - PipelineStateDesc: the descriptor
	Desc() PipelineStateDesc

	// Hash returns the descriptor hash.
	//
	// Returns:
	//   - uint32: the hash
	Hash() uint32

	// ShaderHash returns a hash of the shader pair, used to group states sharing shader programs.
	//
	// Returns:
	//   - uint32: the shader hash
	ShaderHash() uint32

	// RenderPipeline returns the GPU pipeline, or nil on backends without GPU objects.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline stores the GPU pipeline created by the backend.
	//
	// Parameters:
	//   - p: the render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)
}

var _ PipelineState = &pipelineState{}

func newPipelineState(id uint32, desc PipelineStateDesc) *pipelineState {
	h := fnv.New32a()
	h.Write([]byte(desc.VertexShader.Key()))
	h.Write([]byte{0})
	h.Write([]byte(desc.FragmentShader.Key()))
	return &pipelineState{
		mu:         &sync.RWMutex{},
		id:         id,
		desc:       desc,
		hash:       desc.Hash(),
		shaderHash: h.Sum32(),
	}
}

func (p *pipelineState) ID() uint32 {
	return p.id
}

func (p *pipelineState) Desc() PipelineStateDesc {
	return p.desc
}

func (p *pipelineState) Hash() uint32 {
	return p.hash
}

func (p *pipelineState) ShaderHash() uint32 {
	return p.shaderHash
}

func (p *pipelineState) RenderPipeline() *wgpu.RenderPipeline {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renderPipeline
}

func (p *pipelineState) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderPipeline = rp
}
