package physics

import (
	"fmt"
	"log"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// ShapeKind tags the geometry a Shape carries.
type ShapeKind uint8

const (
	ShapePlane ShapeKind = iota
	ShapeSphere
	ShapeOBB
	ShapeCapsule
	ShapeConvex
	ShapeMesh

	shapeKindCount
)

func (k ShapeKind) String() string {
	switch k {
	case ShapePlane:
		return "Plane"
	case ShapeSphere:
		return "Sphere"
	case ShapeOBB:
		return "OBB"
	case ShapeCapsule:
		return "Capsule"
	case ShapeConvex:
		return "Convex"
	case ShapeMesh:
		return "Mesh"
	}
	return fmt.Sprintf("ShapeKind(%d)", uint8(k))
}

// Shape is an immutable collision primitive in body-local space.
// Only the fields matching its kind are meaningful.
type Shape struct {
	kind ShapeKind

	normal   rl.Vector3 // plane
	distance float32    // plane offset along normal

	radius float32 // sphere, capsule

	halfExtents rl.Vector3 // OBB

	pointA, pointB rl.Vector3 // capsule segment

	hull *Hull         // OBB, convex
	mesh *TriangleMesh // mesh

	mass    float32
	center  rl.Vector3
	inertia mgl32.Mat3
	bounds  AABB
}

// NewPlaneShape creates an infinite plane {p | dot(normal, p) = distance}. Planes have no mass.
func NewPlaneShape(normal rl.Vector3, distance float32) *Shape {
	n, _ := normalizeOr(normal, rl.Vector3{Y: 1})
	return &Shape{kind: ShapePlane, normal: n, distance: distance, bounds: infiniteAABB()}
}

// NewSphereShape creates a sphere centred on the body origin.
func NewSphereShape(radius, density float32) *Shape {
	mass := density * 4.0 / 3.0 * math32.Pi * radius * radius * radius
	i := 0.4 * mass * radius * radius
	return &Shape{
		kind:    ShapeSphere,
		radius:  radius,
		mass:    mass,
		inertia: mgl32.Diag3(mgl32.Vec3{i, i, i}),
		bounds:  NewAABBFromCenter(rl.Vector3{}, rl.Vector3{X: radius, Y: radius, Z: radius}),
	}
}

// NewOBBShape creates a box centred on the body origin.
func NewOBBShape(halfExtents rl.Vector3, density float32) *Shape {
	h := halfExtents
	mass := density * 8 * h.X * h.Y * h.Z
	k := mass / 3
	return &Shape{
		kind:        ShapeOBB,
		halfExtents: h,
		hull:        newBoxHull(h),
		mass:        mass,
		inertia:     mgl32.Diag3(mgl32.Vec3{k * (h.Y*h.Y + h.Z*h.Z), k * (h.X*h.X + h.Z*h.Z), k * (h.X*h.X + h.Y*h.Y)}),
		bounds:      NewAABBFromCenter(rl.Vector3{}, h),
	}
}

// NewCapsuleShape creates a capsule swept along the segment a-b.
func NewCapsuleShape(a, b rl.Vector3, radius, density float32) *Shape {
	axis, height := normalizeOr(rl.Vector3Subtract(b, a), rl.Vector3{Y: 1})
	r2 := radius * radius

	cylinder := density * math32.Pi * r2 * height
	caps := density * 4.0 / 3.0 * math32.Pi * r2 * radius
	mass := cylinder + caps

	along := cylinder*r2/2 + caps*2*r2/5
	across := cylinder*(height*height/12+r2/4) + caps*(2*r2/5+height*height/4+3*height*radius/8)

	// I = across*Id + (along-across) * axis*axisᵀ
	d := toMgl(axis)
	outer := mgl32.Mat3FromCols(d.Mul(d[0]), d.Mul(d[1]), d.Mul(d[2]))
	inertia := mgl32.Ident3().Mul(across).Add(outer.Mul(along - across))

	bounds := EmptyAABB().Include(a).Include(b).Expand(radius)
	return &Shape{
		kind:    ShapeCapsule,
		pointA:  a,
		pointB:  b,
		radius:  radius,
		mass:    mass,
		center:  rl.Vector3Lerp(a, b, 0.5),
		inertia: inertia,
		bounds:  bounds,
	}
}

// NewConvexShape creates a convex shape from explicit vertices and counter-clockwise face loops.
func NewConvexShape(vertices []rl.Vector3, faces [][]int, density float32) (*Shape, error) {
	hull, err := NewHull(vertices, faces)
	if err != nil {
		log.Printf("Physics: convex shape rejected: %v", err)
		return &Shape{kind: ShapeConvex}, err
	}
	return newConvexFromHull(hull, density), nil
}

// NewConvexShapeFromPoints hulls a point cloud and reduces it to at most budget vertices.
// On failure the returned shape is empty and must not be simulated.
func NewConvexShapeFromPoints(points []rl.Vector3, budget int, density float32) (*Shape, error) {
	hull, err := BuildHull(points)
	if err != nil {
		log.Printf("Physics: convex hull from %d points failed: %v", len(points), err)
		return &Shape{kind: ShapeConvex}, err
	}
	if budget > 0 {
		hull = ReduceHull(hull, budget)
	}
	return newConvexFromHull(hull, density), nil
}

func newConvexFromHull(hull *Hull, density float32) *Shape {
	mass, center, inertia := hull.massProperties(density)
	return &Shape{
		kind:    ShapeConvex,
		hull:    hull,
		mass:    mass,
		center:  center,
		inertia: inertia,
		bounds:  hull.Bounds(),
	}
}

// NewMeshShape creates a triangle mesh shape. Meshes are intended for static
// geometry; a zero density gives an immovable mesh.
func NewMeshShape(vertices []rl.Vector3, indices []int, density float32) (*Shape, error) {
	mesh, err := NewTriangleMesh(vertices, indices)
	if err != nil {
		log.Printf("Physics: mesh shape rejected: %v", err)
		return &Shape{kind: ShapeMesh}, err
	}

	s := &Shape{kind: ShapeMesh, mesh: mesh, bounds: mesh.Bounds()}
	if density > 0 {
		s.mass, s.center, s.inertia = mesh.massProperties(density)
	}
	return s, nil
}

func (s *Shape) Kind() ShapeKind {
	return s.kind
}

func (s *Shape) Mass() float32 {
	return s.mass
}

// InertiaTensor returns the local inertia tensor about the shape's centre of mass.
func (s *Shape) InertiaTensor() mgl32.Mat3 {
	return s.inertia
}

// CenterOfMass returns the local centre of mass.
func (s *Shape) CenterOfMass() rl.Vector3 {
	return s.center
}

func (s *Shape) Radius() float32 {
	return s.radius
}

func (s *Shape) HalfExtents() rl.Vector3 {
	return s.halfExtents
}

// Plane returns the plane normal and offset.
func (s *Shape) Plane() (rl.Vector3, float32) {
	return s.normal, s.distance
}

// Segment returns the capsule's local end points.
func (s *Shape) Segment() (rl.Vector3, rl.Vector3) {
	return s.pointA, s.pointB
}

func (s *Shape) Hull() *Hull {
	return s.hull
}

func (s *Shape) Mesh() *TriangleMesh {
	return s.mesh
}

// Empty reports whether hull or mesh construction failed for this shape.
func (s *Shape) Empty() bool {
	switch s.kind {
	case ShapeConvex:
		return s.hull.Empty()
	case ShapeMesh:
		return s.mesh == nil || len(s.mesh.Triangles) == 0
	}
	return false
}

// AABB returns the world bounds of the shape under t.
func (s *Shape) AABB(t Transform) AABB {
	switch s.kind {
	case ShapePlane:
		return infiniteAABB()
	case ShapeSphere:
		return NewAABBFromCenter(t.Position, rl.Vector3{X: s.radius, Y: s.radius, Z: s.radius})
	case ShapeCapsule:
		return EmptyAABB().Include(t.Apply(s.pointA)).Include(t.Apply(s.pointB)).Expand(s.radius)
	case ShapeConvex:
		box := EmptyAABB()
		for _, v := range s.hull.Vertices {
			box = box.Include(t.Apply(v))
		}
		return box
	}
	return s.bounds.Transformed(t)
}
