package material

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/xgdwangdechao/rbfx/common"
)

var materialCount atomic.Uint32

// TechniqueEntry binds a technique to the quality level and LOD distance it is used from.
type TechniqueEntry struct {
	Technique    Technique
	QualityLevel int
	LodDistance  float32
}

// DepthBias is the depth bias applied to every pass of a material.
type DepthBias struct {
	Constant float32
	Slope    float32
}

// Parameter is a named shader parameter value. Value is one of float32, [2]float32,
// [3]float32, [4]float32, common.Color, [12]float32 (mat3x4) or [16]float32 (mat4).
type Parameter struct {
	Name  string
	Value any
}

// Texture is a texture bound to a material texture unit.
type Texture struct {
	Label   string
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
}

// TextureBinding is a Texture together with the unit it is bound to.
type TextureBinding struct {
	Unit    string
	Texture Texture
}

// material is the implementation of the Material interface.
type material struct {
	id             uint32
	name           string
	techniques     []TechniqueEntry
	cullMode       wgpu.CullMode
	shadowCullMode wgpu.CullMode
	depthBias      DepthBias

	mu         *sync.RWMutex
	parameters map[string]any
	textures   map[string]Texture
	paramHash  uint32
}

// Material defines the interface for a render material: the techniques used to draw a
// batch at each quality level and LOD distance, the rasterizer state shared by all of its
// passes, and the shader parameters and textures uploaded in the material parameter group.
//
// Techniques and rasterizer state are fixed at construction. Parameters and textures may be
// changed between frames; ShaderParameterHash changes with them.
type Material interface {
	// ID retrieves the process-unique material identifier, used as a sort key.
	//
	// Returns:
	//   - uint32: the material ID
	ID() uint32

	// Name retrieves the material name.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Techniques retrieves the technique entries sorted by descending LOD distance,
	// then descending quality level.
	//
	// Returns:
	//   - []TechniqueEntry: the technique entries
	Techniques() []TechniqueEntry

	// FindTechnique selects the first technique whose quality level does not exceed the
	// requested quality and whose LOD distance does not exceed lodDistance. When none
	// qualifies the last entry is used.
	//
	// Parameters:
	//   - lodDistance: the LOD distance of the drawable
	//   - quality: the material quality setting
	//
	// Returns:
	//   - Technique: the technique, or nil if the material has no techniques
	FindTechnique(lodDistance float32, quality int) Technique

	// CullMode retrieves the cull mode used by color passes.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// ShadowCullMode retrieves the cull mode used by the shadow pass.
	//
	// Returns:
	//   - wgpu.CullMode: the shadow cull mode
	ShadowCullMode() wgpu.CullMode

	// DepthBias retrieves the material depth bias.
	//
	// Returns:
	//   - DepthBias: the depth bias
	DepthBias() DepthBias

	// ShaderParameters retrieves the shader parameters sorted by name.
	//
	// Returns:
	//   - []Parameter: the parameters
	ShaderParameters() []Parameter

	// SetShaderParameter sets a shader parameter value.
	//
	// Parameters:
	//   - name: the parameter name
	//   - value: the parameter value (see Parameter for accepted types)
	//
	// Returns:
	//   - error: an error if the value type is not supported
	SetShaderParameter(name string, value any) error

	// Textures retrieves the texture bindings sorted by unit.
	//
	// Returns:
	//   - []TextureBinding: the texture bindings
	Textures() []TextureBinding

	// SetTexture binds a texture to a unit.
	//
	// Parameters:
	//   - unit: the texture unit name
	//   - texture: the texture
	SetTexture(unit string, texture Texture)

	// ShaderParameterHash retrieves a hash of the parameter and texture set.
	//
	// Returns:
	//   - uint32: the hash
	ShaderParameterHash() uint32

	// PipelineStateHash retrieves a hash of every material property that affects pipeline state.
	//
	// Returns:
	//   - uint32: the hash
	PipelineStateHash() uint32
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		id:             materialCount.Add(1),
		cullMode:       wgpu.CullModeBack,
		shadowCullMode: wgpu.CullModeBack,
		mu:             &sync.RWMutex{},
		parameters:     make(map[string]any),
		textures:       make(map[string]Texture),
	}
	for _, opt := range options {
		opt(m)
	}
	sort.SliceStable(m.techniques, func(i, j int) bool {
		a, b := m.techniques[i], m.techniques[j]
		if a.LodDistance != b.LodDistance {
			return a.LodDistance > b.LodDistance
		}
		return a.QualityLevel > b.QualityLevel
	})
	m.paramHash = m.computeParameterHash()
	return m
}

// NewDefaultMaterial creates the material used for source batches that carry none.
//
// Parameters:
//   - technique: the technique of the default material
//
// Returns:
//   - Material: the default material
func NewDefaultMaterial(technique Technique) Material {
	return NewMaterial(
		WithName("default"),
		WithTechnique(technique, 0, 0),
		WithShaderParameter("MatDiffColor", common.White),
	)
}

func (m *material) ID() uint32 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Techniques() []TechniqueEntry {
	return append([]TechniqueEntry(nil), m.techniques...)
}

func (m *material) FindTechnique(lodDistance float32, quality int) Technique {
	for _, entry := range m.techniques {
		if entry.Technique == nil || !entry.Technique.Supported() {
			continue
		}
		if entry.QualityLevel <= quality && lodDistance >= entry.LodDistance {
			return entry.Technique
		}
	}
	if len(m.techniques) == 0 {
		return nil
	}
	return m.techniques[len(m.techniques)-1].Technique
}

func (m *material) CullMode() wgpu.CullMode {
	return m.cullMode
}

func (m *material) ShadowCullMode() wgpu.CullMode {
	return m.shadowCullMode
}

func (m *material) DepthBias() DepthBias {
	return m.depthBias
}

func (m *material) ShaderParameters() []Parameter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Parameter, 0, len(m.parameters))
	for name, value := range m.parameters {
		out = append(out, Parameter{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *material) SetShaderParameter(name string, value any) error {
	if err := ValidateParameterValue(value); err != nil {
		return fmt.Errorf("material %q parameter %q: %w", m.name, name, err)
	}
	m.mu.Lock()
	m.parameters[name] = value
	m.mu.Unlock()
	m.refreshHash()
	return nil
}

func (m *material) Textures() []TextureBinding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TextureBinding, 0, len(m.textures))
	for unit, tex := range m.textures {
		out = append(out, TextureBinding{Unit: unit, Texture: tex})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}

func (m *material) SetTexture(unit string, texture Texture) {
	m.mu.Lock()
	m.textures[unit] = texture
	m.mu.Unlock()
	m.refreshHash()
}

func (m *material) ShaderParameterHash() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paramHash
}

func (m *material) PipelineStateHash() uint32 {
	hash := uint32(m.cullMode)
	hash = common.CombineHash(hash, uint32(m.shadowCullMode))
	hash = common.CombineHash(hash, common.FloatHash(m.depthBias.Constant))
	hash = common.CombineHash(hash, common.FloatHash(m.depthBias.Slope))
	return hash
}

func (m *material) refreshHash() {
	hash := m.computeParameterHash()
	m.mu.Lock()
	m.paramHash = hash
	m.mu.Unlock()
}

func (m *material) computeParameterHash() uint32 {
	h := fnv.New32a()
	var buf [4]byte
	for _, p := range m.ShaderParameters() {
		h.Write([]byte(p.Name))
		for _, f := range ParameterFloats(p.Value) {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			h.Write(buf[:])
		}
	}
	for _, t := range m.Textures() {
		h.Write([]byte(t.Unit))
		h.Write([]byte(t.Texture.Label))
	}
	return h.Sum32()
}

// ValidateParameterValue reports whether value is a supported shader parameter type.
//
// Parameters:
//   - value: the value to check
//
// Returns:
//   - error: nil if supported
func ValidateParameterValue(value any) error {
	switch value.(type) {
	case float32, [2]float32, [3]float32, [4]float32, common.Color, [12]float32, [16]float32:
		return nil
	default:
		return fmt.Errorf("unsupported shader parameter type %T", value)
	}
}

// ParameterFloats flattens a shader parameter value into its float components.
//
// Parameters:
//   - value: the parameter value
//
// Returns:
//   - []float32: the components, or nil for an unsupported type
func ParameterFloats(value any) []float32 {
	switch v := value.(type) {
	case float32:
		return []float32{v}
	case [2]float32:
		return v[:]
	case [3]float32:
		return v[:]
	case [4]float32:
		return v[:]
	case common.Color:
		return []float32{v.R, v.G, v.B, v.A}
	case [12]float32:
		return v[:]
	case [16]float32:
		return v[:]
	default:
		return nil
	}
}
