package scene

import (
	"github.com/xgdwangdechao/rbfx/engine/drawable"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithDrawables adds initial drawables to the scene in order.
//
// Parameters:
//   - drawables: the drawables to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDrawables(drawables ...drawable.Drawable) SceneBuilderOption {
	return func(s *scene) {
		for _, d := range drawables {
			s.add(d)
		}
	}
}
