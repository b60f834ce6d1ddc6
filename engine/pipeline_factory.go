package engine

import (
	"fmt"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/engine/batch"
	"github.com/xgdwangdechao/rbfx/engine/light"
	"github.com/xgdwangdechao/rbfx/engine/renderer"
	"github.com/xgdwangdechao/rbfx/engine/renderer/pipeline"
)

// depthBiasScale converts a depth-range bias into the integer units of the pipeline depth bias.
const depthBiasScale float32 = 1 << 24

// Shader variant defines.
const (
	defineDirLight        = "DIRLIGHT"
	definePointLight      = "POINTLIGHT"
	defineSpotLight       = "SPOTLIGHT"
	defineShadow          = "SHADOW"
	defineSpecular        = "SPECULAR"
	definePerPixel        = "PERPIXEL"
	defineNumVertexLights = "NUMVERTEXLIGHTS"
	defineShadowPass      = "SHADOWPASS"
)

// pipelineStateFactory builds pipeline descriptors for scene batches and interns them in the
// pipeline cache.
type pipelineStateFactory struct {
	cache pipeline.Cache
	caps  renderer.Capabilities
}

var _ batch.PipelineStateFactory = &pipelineStateFactory{}

func newPipelineStateFactory(cache pipeline.Cache, caps renderer.Capabilities) *pipelineStateFactory {
	return &pipelineStateFactory{cache: cache, caps: caps}
}

func (f *pipelineStateFactory) CreatePipelineState(key batch.PipelineStateKey, ctx batch.PipelineStateContext) (pipeline.PipelineState, error) {
	pass := key.Pass
	if pass.VertexShader() == nil || pass.FragmentShader() == nil {
		return nil, fmt.Errorf("%w: pass %q has no shaders", pipeline.ErrInvalidPipelineDesc, pass.Name())
	}
	defines := shaderDefines(ctx)
	vs, err := pass.VertexShader().Variant(defines...)
	if err != nil {
		return nil, fmt.Errorf("vertex variant of pass %q: %w", pass.Name(), err)
	}
	fs, err := pass.FragmentShader().Variant(defines...)
	if err != nil {
		return nil, fmt.Errorf("fragment variant of pass %q: %w", pass.Name(), err)
	}

	geometry := key.Geometry
	mat := key.Material
	opts := []pipeline.PipelineStateDescOption{
		pipeline.WithLabel(fmt.Sprintf("%s/%s/%s", mat.Name(), pass.Name(), ctx.SubPass)),
		pipeline.WithShaders(vs, fs),
		pipeline.WithVertexLayoutHash(geometry.VertexLayoutHash()),
		pipeline.WithTopology(geometry.Topology(), geometry.IndexFormat()),
		pipeline.WithDepth(pass.DepthWrite(), pass.DepthCompare()),
	}

	if ctx.SubPass == batch.SubPassShadow {
		cull := mat.ShadowCullMode()
		if mode, ok := pass.CullMode(); ok {
			cull = mode
		}
		constant, slope := mat.DepthBias().Constant, mat.DepthBias().Slope
		if ctx.Light != nil {
			bias := ctx.Light.ShadowBias()
			constant += bias.Constant
			slope += bias.Slope
		}
		opts = append(opts,
			pipeline.WithCullMode(cull),
			pipeline.WithBlend(pass.BlendMode(), false, wgpu.ColorWriteMaskNone),
			pipeline.WithDepthBias(int32(constant*depthBiasScale), slope),
			pipeline.WithFormats(wgpu.TextureFormatUndefined, f.caps.ShadowFormat),
			pipeline.WithSampleCount(1),
		)
	} else {
		cull := mat.CullMode()
		if mode, ok := pass.CullMode(); ok {
			cull = mode
		}
		bias := mat.DepthBias()
		opts = append(opts,
			pipeline.WithCullMode(cull),
			pipeline.WithBlend(pass.BlendMode(), pass.AlphaToCoverage(), wgpu.ColorWriteMaskAll),
			pipeline.WithDepthBias(int32(bias.Constant*depthBiasScale), bias.Slope),
			pipeline.WithFormats(f.caps.ColorFormat, f.caps.DepthFormat),
			pipeline.WithSampleCount(uint32(max(f.caps.SampleCount, renderer.MSAAOff))),
		)
	}

	return f.cache.GetOrCreatePipelineState(pipeline.NewPipelineStateDesc(opts...))
}

// shaderDefines returns the variant defines of a batch: the light type, per-pixel lighting,
// shadow and specular flags of the light it is lit by, and the number of vertex lights.
func shaderDefines(ctx batch.PipelineStateContext) []string {
	var defines []string
	if ctx.SubPass == batch.SubPassShadow {
		defines = append(defines, defineShadowPass)
	}
	if sl := ctx.Light; sl != nil {
		switch sl.Light().Type() {
		case light.LightTypeDirectional:
			defines = append(defines, defineDirLight)
		case light.LightTypePoint:
			defines = append(defines, definePointLight)
		case light.LightTypeSpot:
			defines = append(defines, defineSpotLight)
		}
		if ctx.SubPass != batch.SubPassShadow {
			defines = append(defines, definePerPixel)
			if sl.HasShadow() {
				defines = append(defines, defineShadow)
			}
			if sl.Light().SpecularIntensity() > 0 {
				defines = append(defines, defineSpecular)
			}
		}
	}
	if ctx.NumVertexLights > 0 {
		defines = append(defines, defineNumVertexLights+"="+strconv.Itoa(ctx.NumVertexLights))
	}
	return defines
}
