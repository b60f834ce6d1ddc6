package shader

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// ShaderType identifies the pipeline stage a shader is written for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the WGSL stage attribute name of the shader type.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// compileFunc translates WGSL to SPIR-V. Tests replace it to avoid depending on the translator.
var compileFunc = func(source string) ([]byte, error) {
	return naga.Compile(source)
}

// shader is the implementation of the Shader interface.
// It holds the unprocessed template source and memoises the processed variants built from it.
type shader struct {
	key        string
	template   string
	source     string
	shaderType ShaderType
	entryPoint string
	defines    []string
	pp         PreProcessor

	compileOnce sync.Once
	spirv       []byte
	compileErr  error

	mu       *sync.Mutex
	variants map[string]Shader
}

// Shader defines the interface for a WGSL shader and the variants pre-processed from it.
// A Shader value is immutable once created and safe for concurrent use.
type Shader interface {
	// Key retrieves the unique identifier for this shader, including its define set.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Type retrieves the pipeline stage of this shader.
	//
	// Returns:
	//   - ShaderType: vertex or fragment
	Type() ShaderType

	// Source retrieves the WGSL source after directive resolution.
	//
	// Returns:
	//   - string: the processed WGSL source
	Source() string

	// EntryPoint retrieves the name of the entry point function for the shader's stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// Defines retrieves the canonical define set this shader was processed with.
	//
	// Returns:
	//   - []string: sorted "NAME" / "NAME=VALUE" entries
	Defines() []string

	// Module builds the wgpu shader module descriptor for the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor
	Module() *wgpu.ShaderModuleDescriptor

	// Compile validates the processed source by translating it to SPIR-V.
	// The result is computed once and cached.
	//
	// Returns:
	//   - []byte: the SPIR-V binary
	//   - error: the translation error, if any
	Compile() ([]byte, error)

	// Variant returns the shader processed with this shader's defines plus the given ones.
	// Variants are memoised per canonical define set.
	//
	// Parameters:
	//   - defines: additional "NAME" or "NAME=VALUE" entries
	//
	// Returns:
	//   - Shader: the variant
	//   - error: a pre-processing error
	Variant(defines ...string) (Shader, error)
}

var _ Shader = &shader{}

// NewShader creates a new Shader from WGSL source text. The source is pre-processed
// immediately with the defines given through options.
//
// Parameters:
//   - key: the base identifier of the shader
//   - shaderType: the pipeline stage
//   - source: the WGSL template source
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the new shader
//   - error: a pre-processing error or a missing entry point
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		template:   source,
		shaderType: shaderType,
		pp:         NewPreProcessor(),
		mu:         &sync.Mutex{},
		variants:   make(map[string]Shader),
	}
	for _, opt := range options {
		opt(s)
	}
	s.defines = CanonicalDefines(s.defines)
	if err := s.process(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewShaderFromFile reads the WGSL template from disk and creates a new Shader from it.
//
// Parameters:
//   - key: the base identifier of the shader
//   - shaderType: the pipeline stage
//   - path: the file path of the WGSL source
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the new shader
//   - error: a read, pre-processing or entry point error
func NewShaderFromFile(key string, shaderType ShaderType, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %q: %w", path, err)
	}
	return NewShader(key, shaderType, string(data), options...)
}

func (s *shader) process() error {
	source, err := s.pp.Process(s.template, ParseDefines(s.defines))
	if err != nil {
		return fmt.Errorf("shader %q: %w", s.Key(), err)
	}
	s.source = source
	if s.entryPoint == "" {
		s.entryPoint = parseEntryPoint(source, s.shaderType)
		if s.entryPoint == "" {
			return fmt.Errorf("shader %q: no @%s entry point", s.Key(), s.shaderType)
		}
	}
	return nil
}

func (s *shader) Key() string {
	if len(s.defines) == 0 {
		return s.key
	}
	return s.key + "[" + strings.Join(s.defines, ",") + "]"
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Defines() []string {
	return append([]string(nil), s.defines...)
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
}

func (s *shader) Compile() ([]byte, error) {
	s.compileOnce.Do(func() {
		spirv, err := compileFunc(s.source)
		if err != nil {
			s.compileErr = fmt.Errorf("shader %q: compile failed: %w", s.Key(), err)
			return
		}
		s.spirv = spirv
	})
	return s.spirv, s.compileErr
}

func (s *shader) Variant(defines ...string) (Shader, error) {
	all := CanonicalDefines(append(append([]string(nil), s.defines...), defines...))
	id := strings.Join(all, ",")

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.variants[id]; ok {
		return v, nil
	}
	v := &shader{
		key:        s.key,
		template:   s.template,
		shaderType: s.shaderType,
		entryPoint: s.entryPoint,
		defines:    all,
		pp:         s.pp,
		mu:         &sync.Mutex{},
		variants:   make(map[string]Shader),
	}
	if err := v.process(); err != nil {
		return nil, err
	}
	s.variants[id] = v
	return v, nil
}

var entryPointPattern = regexp.MustCompile(`@(vertex|fragment)\s+fn\s+([A-Za-z_][A-Za-z0-9_]*)`)

// parseEntryPoint finds the first function tagged with the stage attribute of shaderType.
func parseEntryPoint(source string, shaderType ShaderType) string {
	for _, m := range entryPointPattern.FindAllStringSubmatch(source, -1) {
		if m[1] == shaderType.String() {
			return m[2]
		}
	}
	return ""
}
