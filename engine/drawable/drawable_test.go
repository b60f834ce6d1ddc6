package drawable

import (
	"math"
	"testing"

	"github.com/xgdwangdechao/rbfx/engine/model"
)

func cubeGeometry() model.Geometry {
	return model.NewGeometry(model.WithVertices(model.Cube()))
}

func TestNewDrawable_Defaults(t *testing.T) {
	d := NewDrawable()
	if d.Flags() != FlagGeometry {
		t.Errorf("Flags() = %v, want FlagGeometry", d.Flags())
	}
	if d.Index() != -1 {
		t.Errorf("Index() = %d, want -1", d.Index())
	}
	if !d.Enabled() {
		t.Error("Enabled() = false, want true")
	}
	if d.ViewMask() != 0xffffffff || d.LightMask() != 0xffffffff || d.ShadowMask() != 0xffffffff {
		t.Error("masks not all set by default")
	}
	if d.WorldBoundingBox().Defined() {
		t.Error("WorldBoundingBox() defined without batches")
	}
	if NewDrawable().ID() == d.ID() {
		t.Error("ID() not unique")
	}
}

func TestDrawable_BoundsFollowTransform(t *testing.T) {
	d := NewDrawable(WithBatch(cubeGeometry(), nil), WithPosition(10, 0, 0), WithScale(2, 2, 2))
	box := d.WorldBoundingBox()
	if !box.Defined() {
		t.Fatal("WorldBoundingBox() undefined")
	}
	if box.Min[0] != 9 || box.Max[0] != 11 {
		t.Errorf("WorldBoundingBox() x range = [%v, %v], want [9, 11]", box.Min[0], box.Max[0])
	}

	d.SetTransform([3]float32{0, 5, 0}, [3]float32{}, [3]float32{1, 1, 1})
	box = d.WorldBoundingBox()
	if box.Center()[1] != 5 {
		t.Errorf("WorldBoundingBox().Center().y = %v, want 5", box.Center()[1])
	}
	if got := d.Batches()[0].WorldTransform[13]; got != 5 {
		t.Errorf("batch WorldTransform translation y = %v, want 5", got)
	}
}

func TestDrawable_UpdateBatches(t *testing.T) {
	d := NewDrawable(WithBatch(cubeGeometry(), nil), WithPosition(0, 0, -20), WithLodBias(2))
	d.UpdateBatches(UpdateContext{FrameNumber: 1, CameraPosition: [3]float32{0, 0, 0}})

	if math.Abs(float64(d.Distance()-20)) > 1e-4 {
		t.Errorf("Distance() = %v, want 20", d.Distance())
	}
	if math.Abs(float64(d.LodDistance()-40)) > 1e-4 {
		t.Errorf("LodDistance() = %v, want 40", d.LodDistance())
	}
	b := d.Batches()[0]
	if b.Distance != d.Distance() {
		t.Errorf("batch Distance = %v, want %v", b.Distance, d.Distance())
	}
	if b.InstanceCount != 1 {
		t.Errorf("batch InstanceCount = %d, want 1", b.InstanceCount)
	}
}

func TestDrawable_ExplicitBounds(t *testing.T) {
	d := NewDrawable(WithBoundingBox(-1, -1, -1, 1, 1, 1), WithPosition(0, 0, 3))
	d.AddBatch(model.NewGeometry(), nil)
	box := d.WorldBoundingBox()
	if box.Min[2] != 2 || box.Max[2] != 4 {
		t.Errorf("WorldBoundingBox() z range = [%v, %v], want [2, 4]", box.Min[2], box.Max[2])
	}
}
