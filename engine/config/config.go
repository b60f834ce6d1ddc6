// package config loads renderer settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is wrapped by every error returned from Validate.
var ErrInvalidSettings = errors.New("invalid renderer settings")

// Pass roles accepted in the passes list.
const (
	RoleUnlit            = "unlit"
	RoleForwardLitBase   = "forwardLitBase"
	RoleForwardUnlitBase = "forwardUnlitBase"
)

// MaxCascades is the largest number of directional shadow cascades supported.
const MaxCascades = 4

// MaxVertexLights is the largest number of per-vertex lights per drawable.
const MaxVertexLights = 4

// Settings holds every tunable of the frame renderer.
type Settings struct {
	// Workers is the number of pool workers. The calling goroutine is an extra worker. 0 selects NumCPU-1.
	Workers int `yaml:"workers"`
	// MaterialQuality selects material techniques; techniques above this level are skipped.
	MaterialQuality int `yaml:"materialQuality"`
	// Shadows configures shadow casting and the shadow atlas.
	Shadows ShadowSettings `yaml:"shadows"`
	// Lighting configures forward lighting limits.
	Lighting LightingSettings `yaml:"lighting"`
	// Zone holds the ambient and fog parameters uploaded in the zone group.
	Zone ZoneSettings `yaml:"zone"`
	// Passes are the scene passes collected each frame, in draw order.
	Passes []PassSettings `yaml:"passes"`
	// ShadowPass is the material pass name used for shadow casters.
	ShadowPass string `yaml:"shadowPass"`
	// Profiling enables the once per second statistics log line.
	Profiling bool `yaml:"profiling"`
}

// ShadowSettings configures shadow casting.
type ShadowSettings struct {
	Enabled       bool      `yaml:"enabled"`
	AtlasSize     int       `yaml:"atlasSize"`
	MaxAtlasPages int       `yaml:"maxAtlasPages"`
	SplitSize     int       `yaml:"splitSize"`
	Reuse         bool      `yaml:"reuse"`
	Directional   bool      `yaml:"directional"`
	Spot          bool      `yaml:"spot"`
	Point         bool      `yaml:"point"`
	MaxCascades   int       `yaml:"maxCascades"`
	CascadeSplits []float32 `yaml:"cascadeSplits"`
	// DefaultBias and DefaultSlopeBias apply to lights that leave their bias unset.
	DefaultBias      float32 `yaml:"defaultBias"`
	DefaultSlopeBias float32 `yaml:"defaultSlopeBias"`
}

// LightingSettings configures forward lighting.
type LightingSettings struct {
	MaxPixelLights  int `yaml:"maxPixelLights"`
	MaxVertexLights int `yaml:"maxVertexLights"`
}

// ZoneSettings holds the ambient environment.
type ZoneSettings struct {
	AmbientColor [4]float32 `yaml:"ambientColor,flow"`
	FogColor     [4]float32 `yaml:"fogColor,flow"`
	FogStart     float32    `yaml:"fogStart"`
	FogEnd       float32    `yaml:"fogEnd"`
}

// PassSettings describes one scene pass by its material pass names.
type PassSettings struct {
	Name            string `yaml:"name"`
	Role            string `yaml:"role"`
	UnlitBase       string `yaml:"unlitBase"`
	LitBase         string `yaml:"litBase"`
	AdditionalLight string `yaml:"additionalLight"`
	MaxPixelLights  int    `yaml:"maxPixelLights"`
}

// Default returns the built-in settings.
//
// Returns:
//   - Settings: settings with one opaque and one alpha forward pass and shadows enabled
func Default() Settings {
	return Settings{
		Workers:         0,
		MaterialQuality: 2,
		Shadows: ShadowSettings{
			Enabled:          true,
			AtlasSize:        2048,
			MaxAtlasPages:    4,
			SplitSize:        512,
			Reuse:            true,
			Directional:      true,
			Spot:             true,
			Point:            true,
			MaxCascades:      MaxCascades,
			CascadeSplits:    []float32{10, 30, 80, 200},
			DefaultBias:      0.0002,
			DefaultSlopeBias: 0.5,
		},
		Lighting: LightingSettings{
			MaxPixelLights:  4,
			MaxVertexLights: MaxVertexLights,
		},
		Zone: ZoneSettings{
			AmbientColor: [4]float32{0.1, 0.1, 0.1, 1},
			FogColor:     [4]float32{0, 0, 0, 1},
			FogStart:     250,
			FogEnd:       1000,
		},
		Passes: []PassSettings{
			{Name: "opaque", Role: RoleForwardLitBase, UnlitBase: "base", LitBase: "litbase", AdditionalLight: "light"},
			{Name: "alpha", Role: RoleForwardUnlitBase, UnlitBase: "alpha", AdditionalLight: "litalpha"},
		},
		ShadowPass: "shadow",
	}
}

// Load reads settings from a YAML file on top of Default.
// A missing file yields the defaults.
//
// Parameters:
//   - path: the settings file
//
// Returns:
//   - Settings: the merged settings
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML settings on top of Default and validates the result.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - Settings: the merged settings
//   - error: error if the document is malformed or invalid
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Marshal encodes the settings as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks ranges and pass names.
//
// Returns:
//   - error: an error wrapping ErrInvalidSettings, or nil
func (s Settings) Validate() error {
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidSettings, s.Workers)
	}
	if s.Lighting.MaxPixelLights < 0 {
		return fmt.Errorf("%w: lighting.maxPixelLights must not be negative", ErrInvalidSettings)
	}
	if s.Lighting.MaxVertexLights < 0 || s.Lighting.MaxVertexLights > MaxVertexLights {
		return fmt.Errorf("%w: lighting.maxVertexLights must be in [0, %d]", ErrInvalidSettings, MaxVertexLights)
	}
	if err := s.Shadows.validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(s.Passes))
	for i, p := range s.Passes {
		if p.Name == "" {
			return fmt.Errorf("%w: pass %d has no name", ErrInvalidSettings, i)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("%w: duplicate pass %q", ErrInvalidSettings, p.Name)
		}
		seen[p.Name] = struct{}{}
		switch p.Role {
		case RoleUnlit, RoleForwardLitBase, RoleForwardUnlitBase:
		default:
			return fmt.Errorf("%w: pass %q has unknown role %q", ErrInvalidSettings, p.Name, p.Role)
		}
		if p.MaxPixelLights < 0 {
			return fmt.Errorf("%w: pass %q maxPixelLights must not be negative", ErrInvalidSettings, p.Name)
		}
	}
	return nil
}

func (s ShadowSettings) validate() error {
	if !s.Enabled {
		return nil
	}
	if s.AtlasSize <= 0 || s.AtlasSize&(s.AtlasSize-1) != 0 {
		return fmt.Errorf("%w: shadows.atlasSize must be a positive power of two, got %d", ErrInvalidSettings, s.AtlasSize)
	}
	if s.MaxAtlasPages <= 0 {
		return fmt.Errorf("%w: shadows.maxAtlasPages must be positive", ErrInvalidSettings)
	}
	if s.SplitSize <= 0 || s.SplitSize > s.AtlasSize {
		return fmt.Errorf("%w: shadows.splitSize must be in (0, atlasSize]", ErrInvalidSettings)
	}
	if s.MaxCascades < 1 || s.MaxCascades > MaxCascades {
		return fmt.Errorf("%w: shadows.maxCascades must be in [1, %d]", ErrInvalidSettings, MaxCascades)
	}
	prev := float32(0)
	for i, split := range s.CascadeSplits {
		if split <= prev {
			return fmt.Errorf("%w: shadows.cascadeSplits[%d] must be greater than %v", ErrInvalidSettings, i, prev)
		}
		prev = split
	}
	return nil
}
