package camera

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestCameraFrustumFollowsPosition(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 10), WithTarget(0, 0, 0), WithFov(90), WithFar(50))

	if !c.Frustum().ContainsPoint([3]float32{0, 0, 0}) {
		t.Error("origin should be visible")
	}
	if c.Frustum().ContainsPoint([3]float32{0, 0, 20}) {
		t.Error("point behind the camera should not be visible")
	}

	c.SetPosition([3]float32{0, 0, 100})
	if c.Frustum().ContainsPoint([3]float32{0, 0, 0}) {
		t.Error("origin beyond far plane should not be visible after moving")
	}
}

func TestCameraForward(t *testing.T) {
	c := NewCamera(WithPosition(0, 5, 0), WithTarget(0, 0, 0), WithUp(0, 0, -1))
	f := c.Forward()
	if math32.Abs(f[1]+1) > 1e-6 {
		t.Errorf("Forward() = %v, want (0,-1,0)", f)
	}
}

func TestFrustumCorners(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 0), WithTarget(0, 0, -1), WithFov(90), WithNear(0.1), WithFar(100))
	corners := c.FrustumCorners(2, 8)
	for i := 0; i < 4; i++ {
		if math32.Abs(corners[i][2]+2) > 1e-3 {
			t.Errorf("corner %d z = %v, want -2", i, corners[i][2])
		}
		if math32.Abs(math32.Abs(corners[i][0])-2) > 1e-3 {
			t.Errorf("corner %d x = %v, want +-2", i, corners[i][0])
		}
	}
	for i := 4; i < 8; i++ {
		if math32.Abs(corners[i][2]+8) > 1e-2 {
			t.Errorf("corner %d z = %v, want -8", i, corners[i][2])
		}
	}
}

func TestViewMaskDefault(t *testing.T) {
	if got := NewCamera().ViewMask(); got != DefaultViewMask {
		t.Errorf("ViewMask() = %#x, want %#x", got, DefaultViewMask)
	}
}
