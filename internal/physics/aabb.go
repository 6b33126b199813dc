package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// planeExtent bounds the AABB of an infinite plane while keeping it finite.
const planeExtent = 1e18

type AABB struct {
	Min rl.Vector3
	Max rl.Vector3
}

// EmptyAABB returns an inverted box that any Union replaces.
func EmptyAABB() AABB {
	return AABB{
		Min: rl.Vector3{X: math32.MaxFloat32, Y: math32.MaxFloat32, Z: math32.MaxFloat32},
		Max: rl.Vector3{X: -math32.MaxFloat32, Y: -math32.MaxFloat32, Z: -math32.MaxFloat32},
	}
}

// NewAABBFromCenter creates an AABB from a center point and half extents.
func NewAABBFromCenter(center, half rl.Vector3) AABB {
	return AABB{
		Min: rl.Vector3Subtract(center, half),
		Max: rl.Vector3Add(center, half),
	}
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

func (a AABB) Contains(p rl.Vector3) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X &&
		p.Y >= a.Min.Y && p.Y <= a.Max.Y &&
		p.Z >= a.Min.Z && p.Z <= a.Max.Z
}

func (a AABB) Union(b AABB) AABB {
	return AABB{Min: rl.Vector3Min(a.Min, b.Min), Max: rl.Vector3Max(a.Max, b.Max)}
}

// Include grows the box to contain p.
func (a AABB) Include(p rl.Vector3) AABB {
	return AABB{Min: rl.Vector3Min(a.Min, p), Max: rl.Vector3Max(a.Max, p)}
}

// Expand grows the box by r on every side.
func (a AABB) Expand(r float32) AABB {
	d := rl.Vector3{X: r, Y: r, Z: r}
	return AABB{Min: rl.Vector3Subtract(a.Min, d), Max: rl.Vector3Add(a.Max, d)}
}

func (a AABB) Center() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Add(a.Min, a.Max), 0.5)
}

func (a AABB) HalfExtents() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Subtract(a.Max, a.Min), 0.5)
}

// BoundingBox converts to the raylib type for debug drawing.
func (a AABB) BoundingBox() rl.BoundingBox {
	return rl.NewBoundingBox(a.Min, a.Max)
}

// Transformed returns the world AABB enclosing the local box a under t.
func (a AABB) Transformed(t Transform) AABB {
	center := t.Apply(a.Center())
	half := a.HalfExtents()
	axes := t.Axes()

	var extent rl.Vector3
	for i, axis := range axes {
		h := component(half, i)
		extent.X += math32.Abs(axis.X) * h
		extent.Y += math32.Abs(axis.Y) * h
		extent.Z += math32.Abs(axis.Z) * h
	}
	return NewAABBFromCenter(center, extent)
}

func infiniteAABB() AABB {
	return AABB{
		Min: rl.Vector3{X: -planeExtent, Y: -planeExtent, Z: -planeExtent},
		Max: rl.Vector3{X: planeExtent, Y: planeExtent, Z: planeExtent},
	}
}
