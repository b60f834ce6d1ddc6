// package batch turns the visible set of a frame into sorted, pass-grouped draw batches,
// shadow splits and per-drawable light assignments.
package batch

import (
	"errors"
	"fmt"

	"github.com/xgdwangdechao/rbfx/engine/config"
)

// ErrInvalidPassDescription is returned for scene passes whose material pass names do not
// match their role.
var ErrInvalidPassDescription = errors.New("batch: invalid scene pass description")

// PassRole selects how a scene pass applies forward lighting.
type PassRole int

const (
	// RoleUnlit renders each batch once through the unlit base pass.
	RoleUnlit PassRole = iota
	// RoleForwardLitBase renders the main light in the base batch and every other pixel light
	// in additional light batches.
	RoleForwardLitBase
	// RoleForwardUnlitBase renders an unlit base batch and every pixel light in additional
	// light batches.
	RoleForwardUnlitBase
)

// String returns the settings name of the role.
func (r PassRole) String() string {
	switch r {
	case RoleUnlit:
		return config.RoleUnlit
	case RoleForwardLitBase:
		return config.RoleForwardLitBase
	case RoleForwardUnlitBase:
		return config.RoleForwardUnlitBase
	default:
		return fmt.Sprintf("PassRole(%d)", int(r))
	}
}

// ParsePassRole converts a settings role name into a PassRole.
//
// Parameters:
//   - name: one of the config.Role* names
//
// Returns:
//   - PassRole: the role
//   - error: ErrInvalidPassDescription for unknown names
func ParsePassRole(name string) (PassRole, error) {
	switch name {
	case config.RoleUnlit:
		return RoleUnlit, nil
	case config.RoleForwardLitBase:
		return RoleForwardLitBase, nil
	case config.RoleForwardUnlitBase:
		return RoleForwardUnlitBase, nil
	default:
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidPassDescription, name)
	}
}

// ScenePassDescription names the material passes a scene pass collects batches from.
type ScenePassDescription struct {
	// Name identifies the scene pass in GetSortedBaseBatches and GetSortedLightBatches.
	Name string
	Role PassRole
	// UnlitBasePass is the material pass for batches that receive no light in the base batch.
	UnlitBasePass string
	// LitBasePass is the material pass for base batches lit by the main light.
	LitBasePass string
	// AdditionalLightPass is the material pass for per-light additive batches.
	AdditionalLightPass string
	// MaxPixelLights caps the per-pixel lights of a drawable in this pass; 0 uses the default.
	MaxPixelLights int
}

// Validate checks that the material pass names present match the role.
//
// Returns:
//   - error: ErrInvalidPassDescription wrapped with the reason
func (d ScenePassDescription) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPassDescription)
	}
	if d.MaxPixelLights < 0 {
		return fmt.Errorf("%w: pass %q has negative maxPixelLights", ErrInvalidPassDescription, d.Name)
	}

	base, lit, additional := d.UnlitBasePass != "", d.LitBasePass != "", d.AdditionalLightPass != ""
	var ok bool
	switch d.Role {
	case RoleUnlit:
		ok = base && !lit && !additional
	case RoleForwardLitBase:
		ok = lit && additional
	case RoleForwardUnlitBase:
		ok = base && !lit && additional
	}
	if !ok {
		return fmt.Errorf("%w: pass %q does not match role %s", ErrInvalidPassDescription, d.Name, d.Role)
	}
	return nil
}

// PassDescriptionFromSettings converts one configured pass.
//
// Parameters:
//   - s: the pass settings
//
// Returns:
//   - ScenePassDescription: the validated description
//   - error: ErrInvalidPassDescription wrapped with the reason
func PassDescriptionFromSettings(s config.PassSettings) (ScenePassDescription, error) {
	role, err := ParsePassRole(s.Role)
	if err != nil {
		return ScenePassDescription{}, err
	}
	desc := ScenePassDescription{
		Name:                s.Name,
		Role:                role,
		UnlitBasePass:       s.UnlitBase,
		LitBasePass:         s.LitBase,
		AdditionalLightPass: s.AdditionalLight,
		MaxPixelLights:      s.MaxPixelLights,
	}
	if err := desc.Validate(); err != nil {
		return ScenePassDescription{}, err
	}
	return desc, nil
}
