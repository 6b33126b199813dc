package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OBB represents an Oriented Bounding Box
type OBB struct {
	Center   rl.Vector3    // World-space center
	HalfSize rl.Vector3    // Half-extents along local axes
	Axes     [3]rl.Vector3 // Local X, Y, Z axes (rotated)
}

// local returns point expressed along the box axes, relative to its centre.
func (o OBB) local(point rl.Vector3) rl.Vector3 {
	d := rl.Vector3Subtract(point, o.Center)
	return rl.Vector3{
		X: rl.Vector3DotProduct(d, o.Axes[0]),
		Y: rl.Vector3DotProduct(d, o.Axes[1]),
		Z: rl.Vector3DotProduct(d, o.Axes[2]),
	}
}

func (o OBB) world(local rl.Vector3) rl.Vector3 {
	result := o.Center
	result = rl.Vector3Add(result, rl.Vector3Scale(o.Axes[0], local.X))
	result = rl.Vector3Add(result, rl.Vector3Scale(o.Axes[1], local.Y))
	result = rl.Vector3Add(result, rl.Vector3Scale(o.Axes[2], local.Z))
	return result
}

// Contains reports whether point lies inside or on the box.
func (o OBB) Contains(point rl.Vector3) bool {
	l := o.local(point)
	return math32.Abs(l.X) <= o.HalfSize.X && math32.Abs(l.Y) <= o.HalfSize.Y && math32.Abs(l.Z) <= o.HalfSize.Z
}

// ClosestPointOnOBB returns the closest point of the solid box to the given point.
// Points inside the box are returned unchanged.
func ClosestPointOnOBB(o OBB, point rl.Vector3) rl.Vector3 {
	l := o.local(point)
	return o.world(rl.Vector3{
		X: clampf(l.X, -o.HalfSize.X, o.HalfSize.X),
		Y: clampf(l.Y, -o.HalfSize.Y, o.HalfSize.Y),
		Z: clampf(l.Z, -o.HalfSize.Z, o.HalfSize.Z),
	})
}

// nearestFace returns, for a point inside the box, the outward normal of the
// closest face, the projection of the point onto it and the distance to it.
func (o OBB) nearestFace(point rl.Vector3) (normal, surface rl.Vector3, distance float32) {
	l := o.local(point)
	distance = math32.MaxFloat32
	axis, sign := 0, float32(1)
	for i := 0; i < 3; i++ {
		c := component(l, i)
		h := component(o.HalfSize, i)
		if d := h - c; d < distance {
			distance, axis, sign = d, i, 1
		}
		if d := h + c; d < distance {
			distance, axis, sign = d, i, -1
		}
	}

	normal = rl.Vector3Scale(o.Axes[axis], sign)
	surface = rl.Vector3Add(point, rl.Vector3Scale(normal, distance))
	return normal, surface, distance
}
