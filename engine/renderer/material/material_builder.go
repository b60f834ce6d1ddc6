package material

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithTechnique is an option builder that adds a technique entry to the material.
//
// Parameters:
//   - technique: the technique
//   - qualityLevel: the minimum material quality the technique is used at
//   - lodDistance: the minimum LOD distance the technique is used from
//
// Returns:
//   - MaterialBuilderOption: a function that applies the technique option to a material
func WithTechnique(technique Technique, qualityLevel int, lodDistance float32) MaterialBuilderOption {
	return func(m *material) {
		m.techniques = append(m.techniques, TechniqueEntry{
			Technique:    technique,
			QualityLevel: qualityLevel,
			LodDistance:  lodDistance,
		})
	}
}

// WithCullMode is an option builder that sets the cull mode of color passes.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the cull mode option to a material
func WithCullMode(mode wgpu.CullMode) MaterialBuilderOption {
	return func(m *material) {
		m.cullMode = mode
	}
}

// WithShadowCullMode is an option builder that sets the cull mode of the shadow pass.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shadow cull mode option to a material
func WithShadowCullMode(mode wgpu.CullMode) MaterialBuilderOption {
	return func(m *material) {
		m.shadowCullMode = mode
	}
}

// WithDepthBias is an option builder that sets the material depth bias.
//
// Parameters:
//   - constant: the constant depth bias
//   - slope: the slope-scaled depth bias
//
// Returns:
//   - MaterialBuilderOption: a function that applies the depth bias option to a material
func WithDepthBias(constant, slope float32) MaterialBuilderOption {
	return func(m *material) {
		m.depthBias = DepthBias{Constant: constant, Slope: slope}
	}
}

// WithShaderParameter is an option builder that sets an initial shader parameter.
// Values of unsupported types are ignored.
//
// Parameters:
//   - name: the parameter name
//   - value: the parameter value
//
// Returns:
//   - MaterialBuilderOption: a function that applies the parameter option to a material
func WithShaderParameter(name string, value any) MaterialBuilderOption {
	return func(m *material) {
		if ValidateParameterValue(value) == nil {
			m.parameters[name] = value
		}
	}
}

// WithTexture is an option builder that binds an initial texture.
//
// Parameters:
//   - unit: the texture unit name
//   - texture: the texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(unit string, texture Texture) MaterialBuilderOption {
	return func(m *material) {
		m.textures[unit] = texture
	}
}
