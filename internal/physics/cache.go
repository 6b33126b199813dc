package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ShapeCache holds the world-space geometry of one shape for the current substep.
// It is rebuilt by the body's prepare phase and read by every pair that touches the shape.
type ShapeCache struct {
	Transform Transform

	// sphere centre, capsule end points
	Center         rl.Vector3
	PointA, PointB rl.Vector3
	Radius         float32

	// plane
	Normal   rl.Vector3
	Distance float32

	// OBB axes; Vertices and Normals hold the 8 corners and 6 face normals
	Axes        [3]rl.Vector3
	HalfExtents rl.Vector3

	// OBB and convex hull geometry in world space
	Vertices []rl.Vector3
	Normals  []rl.Vector3

	// mesh: world-to-local transform
	Inverse Transform

	Bounds AABB
}

// build fills c with the world geometry of s under t, reusing c's slices.
func (c *ShapeCache) build(s *Shape, t Transform) {
	c.Transform = t
	c.Bounds = s.AABB(t)

	switch s.kind {
	case ShapePlane:
		c.Normal = t.ApplyVector(s.normal)
		c.Distance = s.distance + dot(c.Normal, t.Position)
	case ShapeSphere:
		c.Center = t.Position
		c.Radius = s.radius
	case ShapeCapsule:
		c.PointA = t.Apply(s.pointA)
		c.PointB = t.Apply(s.pointB)
		c.Center = rl.Vector3Lerp(c.PointA, c.PointB, 0.5)
		c.Radius = s.radius
	case ShapeOBB, ShapeConvex:
		if s.kind == ShapeOBB {
			c.Axes = t.Axes()
			c.HalfExtents = s.halfExtents
		}
		c.Center = t.Position
		c.Vertices = c.Vertices[:0]
		for _, v := range s.hull.Vertices {
			c.Vertices = append(c.Vertices, t.Apply(v))
		}
		c.Normals = c.Normals[:0]
		for _, f := range s.hull.Faces {
			c.Normals = append(c.Normals, t.ApplyVector(f.Normal))
		}
		if s.kind == ShapeConvex {
			c.Center = t.Apply(s.hull.Centroid())
		}
	case ShapeMesh:
		c.Inverse = t.Inverse()
	}
}

// obb returns the cached box as the closest-point helper type.
func (c *ShapeCache) obb() OBB {
	return OBB{Center: c.Center, HalfSize: c.HalfExtents, Axes: c.Axes}
}
