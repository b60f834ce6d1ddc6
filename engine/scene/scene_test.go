package scene

import (
	"testing"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/camera"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
)

func newBox(x, y, z float32, opts ...drawable.DrawableBuilderOption) drawable.Drawable {
	opts = append([]drawable.DrawableBuilderOption{
		drawable.WithFlags(drawable.FlagGeometry),
		drawable.WithPosition(x, y, z),
		drawable.WithBoundingBox(-1, -1, -1, 1, 1, 1),
	}, opts...)
	return drawable.NewDrawable(opts...)
}

func TestSceneIndicesStayDense(t *testing.T) {
	a, b, c := newBox(0, 0, 0), newBox(1, 0, 0), newBox(2, 0, 0)
	s := NewScene(WithName("test"), WithDrawables(a, b, c))

	if s.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", s.Count())
	}
	if !s.Remove(a.ID()) {
		t.Fatalf("Remove() = false, want true")
	}
	if s.Remove(a.ID()) {
		t.Errorf("second Remove() = true, want false")
	}
	if a.Index() != -1 {
		t.Errorf("removed Index() = %d, want -1", a.Index())
	}
	for i, d := range s.Drawables() {
		if d.Index() != i {
			t.Errorf("Drawables()[%d].Index() = %d, want %d", i, d.Index(), i)
		}
	}
	if s.Get(c.ID()) != c {
		t.Errorf("Get() did not return the registered drawable")
	}

	s.Add(b)
	if s.Count() != 2 {
		t.Errorf("Count() after re-adding = %d, want 2", s.Count())
	}
	s.Clear()
	if s.Count() != 0 || b.Index() != -1 {
		t.Errorf("Clear() left Count() = %d, Index() = %d", s.Count(), b.Index())
	}
}

func TestSceneQuery(t *testing.T) {
	cam := camera.NewCamera(
		camera.WithPosition(0, 0, 10),
		camera.WithTarget(0, 0, 0),
	)
	inside := newBox(0, 0, 0)
	behind := newBox(0, 0, 30)
	masked := newBox(0, 0, 0, drawable.WithMasks(0x2, 0xffffffff, 0xffffffff))
	disabled := newBox(0, 0, 0)
	disabled.SetEnabled(false)
	lightLike := newBox(0, 0, 0, drawable.WithFlags(drawable.FlagLight))

	s := NewScene(WithDrawables(inside, behind, masked, disabled, lightLike))

	tests := []struct {
		name     string
		flags    drawable.Flags
		viewMask uint32
		want     []drawable.Drawable
	}{
		{"geometry", drawable.FlagGeometry, 0x1, []drawable.Drawable{inside}},
		{"lights", drawable.FlagLight, 0xffffffff, []drawable.Drawable{lightLike}},
		{"both with mask bit 2", drawable.FlagGeometry | drawable.FlagLight, 0x2, []drawable.Drawable{inside, masked, lightLike}},
		{"geometry with mask bit 2", drawable.FlagGeometry, 0x2, []drawable.Drawable{inside, masked}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Query(cam.Frustum(), tt.flags, tt.viewMask)
			if len(got) != len(tt.want) {
				t.Fatalf("len(Query()) = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Query()[%d] = drawable %d, want %d", i, got[i].ID(), tt.want[i].ID())
				}
			}
		})
	}

	if got := s.Query(common.Frustum{}, drawable.FlagGeometry, 0xffffffff); len(got) == 0 {
		t.Errorf("Query() with a degenerate frustum returned nothing, want every enabled geometry")
	}
}
