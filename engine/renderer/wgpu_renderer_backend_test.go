package renderer

import "testing"

func TestGroupBinding(t *testing.T) {
	tests := []struct {
		group       ShaderParameterGroup
		wantIndex   uint32
		wantBinding int
	}{
		{GroupFrame, bindGroupView, 0},
		{GroupCamera, bindGroupView, 1},
		{GroupZone, bindGroupView, 2},
		{GroupLight, bindGroupLight, 0},
		{GroupMaterial, bindGroupMaterial, 0},
		{GroupObject, bindGroupObject, 0},
	}
	for _, tt := range tests {
		t.Run(tt.group.String(), func(t *testing.T) {
			index, binding := groupBinding(tt.group)
			if index != tt.wantIndex || binding != tt.wantBinding {
				t.Errorf("groupBinding(%s) = (%d, %d), want (%d, %d)", tt.group, index, binding, tt.wantIndex, tt.wantBinding)
			}
		})
	}
}

func TestNewWGPUBackendRequiresDevice(t *testing.T) {
	if _, err := NewWGPUBackend(nil); err == nil {
		t.Errorf("NewWGPUBackend(nil) returned nil error")
	}
}
