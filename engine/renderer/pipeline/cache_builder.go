package pipeline

// CacheBuilderOption is a function that configures a cache instance during construction.
type CacheBuilderOption func(*cache)

// WithRegistrar is an option builder that sets the backend creating GPU pipelines for new states.
//
// Parameters:
//   - r: the registrar
//
// Returns:
//   - CacheBuilderOption: a function that applies the registrar option to a cache
func WithRegistrar(r Registrar) CacheBuilderOption {
	return func(c *cache) {
		c.registrar = r
	}
}

// WithShaderValidation is an option builder that compiles both shaders of a new state before
// registering it, so a shader that does not translate marks the descriptor as failed.
//
// Parameters:
//   - enabled: true to validate
//
// Returns:
//   - CacheBuilderOption: a function that applies the validation option to a cache
func WithShaderValidation(enabled bool) CacheBuilderOption {
	return func(c *cache) {
		c.validateShaders = enabled
	}
}
