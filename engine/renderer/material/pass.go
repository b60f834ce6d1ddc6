package material

import (
	"hash/fnv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/renderer/shader"
)

// BlendMode selects the color blend equation of a pass.
type BlendMode int

const (
	// BlendReplace writes the source color unblended.
	BlendReplace BlendMode = iota
	// BlendAdd adds the source color to the destination.
	BlendAdd
	// BlendMultiply multiplies the destination by the source color.
	BlendMultiply
	// BlendAlpha blends by source alpha.
	BlendAlpha
	// BlendAddAlpha adds the source color weighted by source alpha.
	BlendAddAlpha
	// BlendPremulAlpha blends a premultiplied source by source alpha.
	BlendPremulAlpha
)

// State returns the wgpu blend state for the mode, or nil for BlendReplace.
//
// Returns:
//   - *wgpu.BlendState: the blend state
func (b BlendMode) State() *wgpu.BlendState {
	component := func(src, dst wgpu.BlendFactor) wgpu.BlendComponent {
		return wgpu.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: wgpu.BlendOperationAdd}
	}
	var color wgpu.BlendComponent
	switch b {
	case BlendAdd:
		color = component(wgpu.BlendFactorOne, wgpu.BlendFactorOne)
	case BlendMultiply:
		color = component(wgpu.BlendFactorDst, wgpu.BlendFactorZero)
	case BlendAlpha:
		color = component(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha)
	case BlendAddAlpha:
		color = component(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOne)
	case BlendPremulAlpha:
		color = component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha)
	default:
		return nil
	}
	return &wgpu.BlendState{
		Color: color,
		Alpha: component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
	}
}

// pass is the implementation of the Pass interface.
type pass struct {
	name            string
	vertexShader    shader.Shader
	fragmentShader  shader.Shader
	blendMode       BlendMode
	depthWrite      bool
	depthCompare    wgpu.CompareFunction
	cullMode        wgpu.CullMode
	overrideCull    bool
	alphaToCoverage bool
	hash            uint32
}

// Pass defines one render pass of a technique: the shader pair and the fixed-function
// state a batch rendered through it uses.
type Pass interface {
	// Name retrieves the pass name, e.g. "base", "litbase", "light" or "shadow".
	//
	// Returns:
	//   - string: the pass name
	Name() string

	// VertexShader retrieves the vertex shader template of the pass.
	//
	// Returns:
	//   - shader.Shader: the vertex shader, or nil if not set
	VertexShader() shader.Shader

	// FragmentShader retrieves the fragment shader template of the pass.
	//
	// Returns:
	//   - shader.Shader: the fragment shader, or nil if not set
	FragmentShader() shader.Shader

	// BlendMode retrieves the blend mode of the pass.
	//
	// Returns:
	//   - BlendMode: the blend mode
	BlendMode() BlendMode

	// DepthWrite reports whether the pass writes depth.
	//
	// Returns:
	//   - bool: true if depth is written
	DepthWrite() bool

	// DepthCompare retrieves the depth test function of the pass.
	//
	// Returns:
	//   - wgpu.CompareFunction: the depth compare function
	DepthCompare() wgpu.CompareFunction

	// CullMode retrieves the cull mode override of the pass.
	//
	// Returns:
	//   - wgpu.CullMode: the override cull mode
	//   - bool: true if the pass overrides the material cull mode
	CullMode() (wgpu.CullMode, bool)

	// AlphaToCoverage reports whether alpha-to-coverage is enabled.
	//
	// Returns:
	//   - bool: true if enabled
	AlphaToCoverage() bool

	// PipelineStateHash retrieves a hash of every pass property that affects pipeline state.
	//
	// Returns:
	//   - uint32: the hash
	PipelineStateHash() uint32
}

var _ Pass = &pass{}

// NewPass creates a new Pass configured with the provided options.
// Defaults: replace blending, depth write on, LessEqual depth test, no cull override.
//
// Parameters:
//   - name: the pass name
//   - options: variadic list of PassBuilderOption functions to configure the pass
//
// Returns:
//   - Pass: a new Pass instance
func NewPass(name string, options ...PassBuilderOption) Pass {
	p := &pass{
		name:         name,
		depthWrite:   true,
		depthCompare: wgpu.CompareFunctionLessEqual,
	}
	for _, opt := range options {
		opt(p)
	}
	p.hash = p.computeHash()
	return p
}

func (p *pass) computeHash() uint32 {
	h := fnv.New32a()
	if p.vertexShader != nil {
		h.Write([]byte(p.vertexShader.Key()))
	}
	h.Write([]byte{0})
	if p.fragmentShader != nil {
		h.Write([]byte(p.fragmentShader.Key()))
	}
	hash := h.Sum32()
	hash = common.CombineHash(hash, uint32(p.blendMode))
	hash = common.CombineHash(hash, boolHash(p.depthWrite))
	hash = common.CombineHash(hash, uint32(p.depthCompare))
	hash = common.CombineHash(hash, uint32(p.cullMode))
	hash = common.CombineHash(hash, boolHash(p.overrideCull))
	hash = common.CombineHash(hash, boolHash(p.alphaToCoverage))
	return hash
}

func boolHash(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (p *pass) Name() string {
	return p.name
}

func (p *pass) VertexShader() shader.Shader {
	return p.vertexShader
}

func (p *pass) FragmentShader() shader.Shader {
	return p.fragmentShader
}

func (p *pass) BlendMode() BlendMode {
	return p.blendMode
}

func (p *pass) DepthWrite() bool {
	return p.depthWrite
}

func (p *pass) DepthCompare() wgpu.CompareFunction {
	return p.depthCompare
}

func (p *pass) CullMode() (wgpu.CullMode, bool) {
	return p.cullMode, p.overrideCull
}

func (p *pass) AlphaToCoverage() bool {
	return p.alphaToCoverage
}

func (p *pass) PipelineStateHash() uint32 {
	return p.hash
}
