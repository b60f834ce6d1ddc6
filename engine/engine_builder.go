package engine

import (
	"github.com/xgdwangdechao/rbfx/engine/batch"
	"github.com/xgdwangdechao/rbfx/engine/config"
	"github.com/xgdwangdechao/rbfx/engine/renderer/material"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithSettings sets the renderer settings. They are validated by Initialize.
//
// Parameters:
//   - settings: the renderer settings
//
// Returns:
//   - EngineBuilderOption: option to apply
func WithSettings(settings config.Settings) EngineBuilderOption {
	return func(e *engine) {
		e.settings = settings
		e.profilingEnabled = e.profilingEnabled || settings.Profiling
	}
}

// WithPasses overrides the scene passes derived from the settings.
//
// Parameters:
//   - passes: the scene pass descriptions, recorded in order
//
// Returns:
//   - EngineBuilderOption: option to apply
func WithPasses(passes ...batch.ScenePassDescription) EngineBuilderOption {
	return func(e *engine) {
		e.passes = append([]batch.ScenePassDescription(nil), passes...)
	}
}

// WithProfiling enables or disables the once-per-second statistics log line.
//
// Parameters:
//   - enabled: whether frames are profiled
//
// Returns:
//   - EngineBuilderOption: option to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithDefaultMaterial sets the material used by source batches without one.
// Defaults to a white material with the built-in forward technique.
//
// Parameters:
//   - m: the default material
//
// Returns:
//   - EngineBuilderOption: option to apply
func WithDefaultMaterial(m material.Material) EngineBuilderOption {
	return func(e *engine) {
		e.defaultMaterial = m
	}
}

// WithShaderValidation enables or disables naga validation of shader variants before
// pipeline creation. Enabled by default.
func WithShaderValidation(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.shaderValidation = enabled
	}
}
