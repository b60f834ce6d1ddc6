package light

import (
	"testing"

	"github.com/xgdwangdechao/rbfx/common"
	"github.com/xgdwangdechao/rbfx/engine/drawable"
)

func boxAt(x, y, z float32) drawable.Drawable {
	return drawable.NewDrawable(drawable.WithBoundingBox(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5), drawable.WithPosition(x, y, z))
}

func TestNewLight_Defaults(t *testing.T) {
	l := NewLight(LightTypePoint)
	if l.Flags() != drawable.FlagLight {
		t.Errorf("Flags() = %v, want FlagLight", l.Flags())
	}
	if l.Importance() != ImportanceAuto {
		t.Errorf("Importance() = %v, want ImportanceAuto", l.Importance())
	}
	if l.EffectiveColor().IsBlack() {
		t.Error("EffectiveColor() is black by default")
	}
	if l.EffectiveLightMask() == 0 {
		t.Error("EffectiveLightMask() = 0 by default")
	}
	if l.ShadowBias().Constant != DefaultConstantBias {
		t.Errorf("ShadowBias().Constant = %v, want %v", l.ShadowBias().Constant, DefaultConstantBias)
	}
}

func TestLight_EffectiveValues(t *testing.T) {
	l := NewLight(LightTypePoint, WithColor(1, 0.5, 0), WithBrightness(2))
	c := l.EffectiveColor()
	if c.R != 2 || c.G != 1 || c.B != 0 {
		t.Errorf("EffectiveColor() = %+v, want {2 1 0}", c)
	}
	if got := l.IntensityDivisor(); got < 3 || got > 3.001 {
		t.Errorf("IntensityDivisor() = %v, want ~3", got)
	}

	dark := NewLight(LightTypePoint, WithBrightness(0))
	if !dark.EffectiveColor().IsBlack() {
		t.Error("EffectiveColor() not black with zero brightness")
	}

	baked := NewLight(LightTypePoint, WithBaked(true))
	if baked.EffectiveLightMask() != 0 {
		t.Errorf("EffectiveLightMask() = %#x for baked light, want 0", baked.EffectiveLightMask())
	}
}

func TestImportance_Rank(t *testing.T) {
	if !(ImportanceImportant.Rank() > ImportanceAuto.Rank() && ImportanceAuto.Rank() > ImportanceNotImportant.Rank()) {
		t.Error("Rank() does not order Important > Auto > NotImportant")
	}
}

func TestLight_Bounds(t *testing.T) {
	dir := NewLight(LightTypeDirectional)
	if dir.WorldBoundingBox().HalfSize()[0] < common.LargeValue {
		t.Error("directional WorldBoundingBox() not infinite")
	}

	point := NewLight(LightTypePoint, WithPosition(1, 2, 3), WithRange(5))
	box := point.WorldBoundingBox()
	if box.Min[0] != -4 || box.Max[2] != 8 {
		t.Errorf("point WorldBoundingBox() = %+v, want min.x -4 and max.z 8", box)
	}

	spot := NewLight(LightTypeSpot, WithPosition(0, 0, 0), WithDirection(0, 0, -1), WithRange(10), WithFov(60))
	box = spot.WorldBoundingBox()
	if box.Min[2] > -9.9 || box.Max[2] < -0.01 {
		t.Errorf("spot WorldBoundingBox() z range = [%v, %v], want about [-10, 0]", box.Min[2], box.Max[2])
	}
}

func TestLight_IsLit(t *testing.T) {
	tests := []struct {
		name   string
		light  Light
		target drawable.Drawable
		want   bool
	}{
		{"directional lights everything", NewLight(LightTypeDirectional), boxAt(1000, 0, 0), true},
		{"point in range", NewLight(LightTypePoint, WithRange(5)), boxAt(3, 0, 0), true},
		{"point out of range", NewLight(LightTypePoint, WithRange(5)), boxAt(10, 0, 0), false},
		{"spot inside cone", NewLight(LightTypeSpot, WithDirection(0, 0, -1), WithRange(10), WithFov(60)), boxAt(0, 0, -5), true},
		{"spot behind", NewLight(LightTypeSpot, WithDirection(0, 0, -1), WithRange(10), WithFov(60)), boxAt(0, 0, 5), false},
		{"mask mismatch", NewLight(LightTypeDirectional, WithLightMask(0x2)), drawable.NewDrawable(drawable.WithMasks(0xffffffff, 0x1, 0x1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.light.IsLit(tt.target); got != tt.want {
				t.Errorf("IsLit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLight_Distance(t *testing.T) {
	point := NewLight(LightTypePoint, WithPosition(0, 0, -10))
	point.UpdateBatches(drawable.UpdateContext{CameraPosition: [3]float32{0, 0, 0}})
	if point.Distance() != 10 {
		t.Errorf("Distance() = %v, want 10", point.Distance())
	}
	if got := point.DistanceTo(boxAt(0, 0, -4)); got < 5.49 || got > 5.51 {
		t.Errorf("DistanceTo() = %v, want 5.5", got)
	}

	dir := NewLight(LightTypeDirectional)
	dir.UpdateBatches(drawable.UpdateContext{CameraPosition: [3]float32{100, 0, 0}})
	if dir.Distance() != 0 || dir.DistanceTo(boxAt(5, 5, 5)) != 0 {
		t.Error("directional light distances not 0")
	}
}

func TestShadowCascade(t *testing.T) {
	c := ShadowCascade{Splits: [MaxCascades]float32{10, 40, 0, 100}}
	if c.NumSplits() != 2 {
		t.Errorf("NumSplits() = %d, want 2", c.NumSplits())
	}
	if c.ShadowDistance() != 40 {
		t.Errorf("ShadowDistance() = %v, want 40", c.ShadowDistance())
	}
}
