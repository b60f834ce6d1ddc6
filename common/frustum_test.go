package common

import "testing"

func TestFrustumContainsPoint(t *testing.T) {
	vp := testViewProjection()
	f := ExtractFrustumFromMatrix(vp[:])

	tests := []struct {
		name  string
		point [3]float32
		want  bool
	}{
		{"in front", [3]float32{0, 0, -10}, true},
		{"behind camera", [3]float32{0, 0, 10}, false},
		{"before near plane", [3]float32{0, 0, -0.5}, false},
		{"beyond far plane", [3]float32{0, 0, -150}, false},
		{"left of view", [3]float32{-20, 0, -10}, false},
		{"just inside right edge", [3]float32{9.5, 0, -10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsPoint(tt.point); got != tt.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestFrustumIntersectsBox(t *testing.T) {
	vp := testViewProjection()
	f := ExtractFrustumFromMatrix(vp[:])
	half := [3]float32{1, 1, 1}

	tests := []struct {
		name string
		box  BoundingBox
		want bool
	}{
		{"centered", NewBoundingBox([3]float32{0, 0, -10}, half), true},
		{"straddling near plane", NewBoundingBox([3]float32{0, 0, -1}, half), true},
		{"outside right", NewBoundingBox([3]float32{50, 0, -10}, half), false},
		{"behind", NewBoundingBox([3]float32{0, 0, 10}, half), false},
		{"undefined", EmptyBoundingBox(), false},
		{"infinite", InfiniteBoundingBox(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IntersectsBox(tt.box); got != tt.want {
				t.Errorf("IntersectsBox() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrustumIntersectsSphere(t *testing.T) {
	vp := testViewProjection()
	f := ExtractFrustumFromMatrix(vp[:])
	if !f.IntersectsSphere([3]float32{0, 0, -0.5}, 1) {
		t.Error("sphere crossing near plane reported outside")
	}
	if f.IntersectsSphere([3]float32{0, 0, 5}, 1) {
		t.Error("sphere behind camera reported inside")
	}
}

func TestCornersNearFar(t *testing.T) {
	vp := testViewProjection()
	var inv [16]float32
	if !Invert4(inv[:], vp[:]) {
		t.Fatal("view projection not invertible")
	}
	corners := Corners(inv[:])
	if !approxEqual(corners[0][2], -1, 1e-3) {
		t.Errorf("near corner z = %v, want -1", corners[0][2])
	}
	if !approxEqual(corners[7][2], -100, 0.5) {
		t.Errorf("far corner z = %v, want -100", corners[7][2])
	}
}
