package shader

// ShaderBuilderOption is a function that configures a shader instance during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint is an option builder that overrides the entry point detected from the source.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: a function that applies the entry point option to a shader
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = name
	}
}

// WithDefines is an option builder that sets the base define set of the shader.
//
// Parameters:
//   - defines: "NAME" or "NAME=VALUE" entries
//
// Returns:
//   - ShaderBuilderOption: a function that applies the defines option to a shader
func WithDefines(defines ...string) ShaderBuilderOption {
	return func(s *shader) {
		s.defines = append(s.defines, defines...)
	}
}

// WithPreProcessor is an option builder that replaces the directive processor.
//
// Parameters:
//   - pp: the pre-processor to use
//
// Returns:
//   - ShaderBuilderOption: a function that applies the pre-processor option to a shader
func WithPreProcessor(pp PreProcessor) ShaderBuilderOption {
	return func(s *shader) {
		if pp != nil {
			s.pp = pp
		}
	}
}
