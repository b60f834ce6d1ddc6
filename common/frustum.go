package common

import "github.com/chewxy/math32"

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns the signed distance of a point to the plane.
// Positive values are on the side the normal points to.
func (p Plane) SignedDistance(point [3]float32) float32 {
	return Dot3(p.Normal, point) + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix with WebGPU clip depth [0, 1],
// so the near plane is row 2 alone and the far plane is row 3 - row 2.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row.
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(index int, a, b [4]float32, sign float32) {
		f.Planes[index] = Plane{
			Normal:   [3]float32{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]},
			Distance: a[3] + sign*b[3],
		}
	}
	set(FrustumLeft, r3, r0, 1)
	set(FrustumRight, r3, r0, -1)
	set(FrustumBottom, r3, r1, 1)
	set(FrustumTop, r3, r1, -1)
	set(FrustumNear, r2, [4]float32{}, 0)
	set(FrustumFar, r3, r2, -1)

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := Length3(p.Normal)
	if length > 0 {
		invLen := 1.0 / length
		p.Normal = Scale3(p.Normal, invLen)
		p.Distance *= invLen
	}
}

// IntersectsBox tests whether any part of the box may be inside the frustum.
// For every plane the corner furthest along the plane normal is tested; if it is
// outside, the whole box is outside.
//
// Parameters:
//   - box: the world-space bounding box
//
// Returns:
//   - bool: false if the box is certainly outside, true otherwise
func (f Frustum) IntersectsBox(box BoundingBox) bool {
	if !box.Defined() {
		return false
	}
	for i := range f.Planes {
		p := f.Planes[i]
		var positive [3]float32
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] >= 0 {
				positive[axis] = box.Max[axis]
			} else {
				positive[axis] = box.Min[axis]
			}
		}
		if p.SignedDistance(positive) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere tests whether a sphere is at least partially inside the frustum.
//
// Parameters:
//   - center: the sphere center
//   - radius: the sphere radius
//
// Returns:
//   - bool: false if the sphere is certainly outside, true otherwise
func (f Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// ContainsPoint tests whether a point is inside all six planes.
func (f Frustum) ContainsPoint(p [3]float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(p) < 0 {
			return false
		}
	}
	return true
}

// Corners returns the eight corners of the frustum given its inverse view-projection.
// Corners 0-3 lie on the near plane, 4-7 on the far plane.
//
// Parameters:
//   - invViewProj: inverse of the view-projection matrix
//
// Returns:
//   - [8][3]float32: world-space corners
func Corners(invViewProj []float32) [8][3]float32 {
	var out [8][3]float32
	i := 0
	for _, z := range [2]float32{0, 1} {
		for _, y := range [2]float32{-1, 1} {
			for _, x := range [2]float32{-1, 1} {
				cx := invViewProj[0]*x + invViewProj[4]*y + invViewProj[8]*z + invViewProj[12]
				cy := invViewProj[1]*x + invViewProj[5]*y + invViewProj[9]*z + invViewProj[13]
				cz := invViewProj[2]*x + invViewProj[6]*y + invViewProj[10]*z + invViewProj[14]
				w := invViewProj[3]*x + invViewProj[7]*y + invViewProj[11]*z + invViewProj[15]
				if math32.Abs(w) > 0 {
					cx, cy, cz = cx/w, cy/w, cz/w
				}
				out[i] = [3]float32{cx, cy, cz}
				i++
			}
		}
	}
	return out
}
