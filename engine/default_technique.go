package engine

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
	"github.com/xgdwangdechao/rbfx/engine/renderer/shader"
)

// ForwardShaderSource is the WGSL template of the default forward lighting passes.
//
//go:embed assets/forward.wgsl
var ForwardShaderSource string

// ShadowShaderSource is the WGSL template of the default shadow caster pass.
//
//go:embed assets/shadow.wgsl
var ShadowShaderSource string

// defineAmbient enables ambient, vertex lighting and fog in the forward shader.
const defineAmbient = "AMBIENT"

// NewDefaultTechnique creates the technique used by the default material. It provides the
// ambient base, additive light and shadow caster passes named by settings. The default
// material is opaque, so passes with the forwardUnlitBase role get no entry.
//
// Parameters:
//   - settings: the renderer settings naming the scene passes and the shadow pass
//
// Returns:
//   - material.Technique: the technique
//   - error: a shader pre-processing error
func NewDefaultTechnique(settings config.Settings) (material.Technique, error) {
	baseVS, err := shader.NewShader("forward", shader.ShaderTypeVertex, ForwardShaderSource, shader.WithDefines(defineAmbient))
	if err != nil {
		return nil, fmt.Errorf("default technique: %w", err)
	}
	baseFS, err := shader.NewShader("forward", shader.ShaderTypeFragment, ForwardShaderSource, shader.WithDefines(defineAmbient))
	if err != nil {
		return nil, fmt.Errorf("default technique: %w", err)
	}
	lightVS, err := shader.NewShader("forward", shader.ShaderTypeVertex, ForwardShaderSource)
	if err != nil {
		return nil, fmt.Errorf("default technique: %w", err)
	}
	lightFS, err := shader.NewShader("forward", shader.ShaderTypeFragment, ForwardShaderSource)
	if err != nil {
		return nil, fmt.Errorf("default technique: %w", err)
	}
	shadowVS, err := shader.NewShader("shadow", shader.ShaderTypeVertex, ShadowShaderSource)
	if err != nil {
		return nil, fmt.Errorf("default technique: %w", err)
	}
	shadowFS, err := shader.NewShader("shadow", shader.ShaderTypeFragment, ShadowShaderSource)
	if err != nil {
		return nil, fmt.Errorf("default technique: %w", err)
	}

	seen := make(map[string]bool)
	var passes []material.Pass
	add := func(name string, opts ...material.PassBuilderOption) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		passes = append(passes, material.NewPass(name, opts...))
	}

	add(settings.ShadowPass, material.WithShaders(shadowVS, shadowFS))
	for _, p := range settings.Passes {
		if p.Role == config.RoleForwardUnlitBase {
			continue
		}
		add(p.UnlitBase, material.WithShaders(baseVS, baseFS))
		add(p.LitBase, material.WithShaders(baseVS, baseFS))
		add(p.AdditionalLight,
			material.WithShaders(lightVS, lightFS),
			material.WithBlendMode(material.BlendAdd),
			material.WithDepthWrite(false),
			material.WithDepthCompare(wgpu.CompareFunctionEqual),
		)
	}
	return material.NewTechnique("default", passes...), nil
}

// NewDefaultMaterial creates the white material used for source batches without one.
//
// Parameters:
//   - technique: the default technique
//
// Returns:
//   - material.Material: the material
func NewDefaultMaterial(technique material.Technique) material.Material {
	m := material.NewDefaultMaterial(technique)
	_ = m.SetShaderParameter("MatSpecColor", [4]float32{0.5, 0.5, 0.5, 16})
	_ = m.SetShaderParameter("MatDiffColor", common.White)
	return m
}
