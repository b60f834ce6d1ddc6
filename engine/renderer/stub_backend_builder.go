package renderer

// StubBackendOption is a function that configures a stub backend during construction.
type StubBackendOption func(*stubBackend)

// WithStubCapabilities replaces the reported capabilities.
//
// Parameters:
//   - caps: the capabilities
//
// Returns:
//   - StubBackendOption: a function that applies the capabilities option
func WithStubCapabilities(caps Capabilities) StubBackendOption {
	return func(b *stubBackend) {
		b.caps = caps
	}
}

// WithStubPipelineFailure makes every pipeline state registration fail with err.
func WithStubPipelineFailure(err error) StubBackendOption {
	return func(b *stubBackend) {
		b.registerErr = err
	}
}
