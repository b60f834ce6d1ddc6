package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Shadows.AtlasSize != Default().Shadows.AtlasSize {
		t.Errorf("AtlasSize = %d, want %d", s.Shadows.AtlasSize, Default().Shadows.AtlasSize)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renderer.yaml")
	doc := `
workers: 3
shadows:
  atlasSize: 1024
  splitSize: 256
lighting:
  maxPixelLights: 2
zone:
  ambientColor: [0.2, 0.3, 0.4, 1]
passes:
  - name: main
    role: unlit
    unlitBase: base
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Workers != 3 {
		t.Errorf("Workers = %d, want 3", s.Workers)
	}
	if s.Shadows.AtlasSize != 1024 || s.Shadows.SplitSize != 256 {
		t.Errorf("Shadows = %+v, want atlas 1024 split 256", s.Shadows)
	}
	if !s.Shadows.Enabled || s.Shadows.MaxAtlasPages != 4 {
		t.Errorf("unset shadow keys lost their defaults: %+v", s.Shadows)
	}
	if s.Lighting.MaxPixelLights != 2 || s.Lighting.MaxVertexLights != MaxVertexLights {
		t.Errorf("Lighting = %+v", s.Lighting)
	}
	if s.Zone.AmbientColor != [4]float32{0.2, 0.3, 0.4, 1} {
		t.Errorf("AmbientColor = %v", s.Zone.AmbientColor)
	}
	if len(s.Passes) != 1 || s.Passes[0].Name != "main" || s.Passes[0].Role != RoleUnlit {
		t.Errorf("Passes = %+v, want single unlit pass", s.Passes)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("workers: [1, 2"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"negative workers", func(s *Settings) { s.Workers = -1 }},
		{"atlas not power of two", func(s *Settings) { s.Shadows.AtlasSize = 1000 }},
		{"split larger than atlas", func(s *Settings) { s.Shadows.SplitSize = 4096 }},
		{"too many cascades", func(s *Settings) { s.Shadows.MaxCascades = 5 }},
		{"unordered cascade splits", func(s *Settings) { s.Shadows.CascadeSplits = []float32{10, 5} }},
		{"too many vertex lights", func(s *Settings) { s.Lighting.MaxVertexLights = 8 }},
		{"unnamed pass", func(s *Settings) { s.Passes[0].Name = "" }},
		{"duplicate pass", func(s *Settings) { s.Passes[1].Name = s.Passes[0].Name }},
		{"unknown role", func(s *Settings) { s.Passes[0].Role = "deferred" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("Validate() = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestValidateIgnoresShadowSettingsWhenDisabled(t *testing.T) {
	s := Default()
	s.Shadows.Enabled = false
	s.Shadows.AtlasSize = 0
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
