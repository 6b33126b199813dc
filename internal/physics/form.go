package physics

import (
	"fmt"
	"log"
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// FormParams are the material scalars of a PhysicsForm.
type FormParams struct {
	Friction       float32
	Restitution    float32
	LinearDamping  float32
	AngularDamping float32
	GravityFactor  float32
	// Scale multiplies every length passed to the form's Create methods.
	Scale float32
}

func DefaultFormParams() FormParams {
	return FormParams{
		Friction:       0.5,
		Restitution:    0,
		LinearDamping:  0.05,
		AngularDamping: 0.05,
		GravityFactor:  1,
		Scale:          1,
	}
}

// PhysicsForm is a reusable material and shape set shared by any number of bodies.
//
// Multi-shape forms sum the shape masses but take their inertia from the
// first shape only.
type PhysicsForm struct {
	handle FormHandle
	params FormParams
	shapes []*Shape

	dirty          bool
	mass           float32
	inverseMass    float32
	inertia        mgl32.Mat3
	inverseInertia mgl32.Mat3

	bodies atomic.Int32
}

func newPhysicsForm(params FormParams) *PhysicsForm {
	if params.Scale <= 0 {
		params.Scale = 1
	}
	return &PhysicsForm{params: params, dirty: true}
}

func (f *PhysicsForm) Handle() FormHandle {
	return f.handle
}

func (f *PhysicsForm) Params() FormParams {
	return f.params
}

func (f *PhysicsForm) Shapes() []*Shape {
	return f.shapes
}

func (f *PhysicsForm) Scale() float32 {
	return f.params.Scale
}

func (f *PhysicsForm) scale(v rl.Vector3) rl.Vector3 {
	return rl.Vector3Scale(v, f.params.Scale)
}

// AddShape appends a prebuilt shape. Empty shapes are rejected, and so is
// any shape once bodies have been created from the form.
func (f *PhysicsForm) AddShape(s *Shape) error {
	if s == nil || s.Empty() {
		log.Printf("Physics: refusing to add empty shape to form %v", f.handle)
		return ErrDegenerateHull
	}
	if n := f.bodies.Load(); n > 0 {
		return fmt.Errorf("%w: %v has %d bodies", ErrFormInUse, f.handle, n)
	}
	f.shapes = append(f.shapes, s)
	f.dirty = true
	return nil
}

// CreatePlane adds an infinite plane dot(normal, p) = distance.
func (f *PhysicsForm) CreatePlane(normal rl.Vector3, distance float32) error {
	return f.AddShape(NewPlaneShape(normal, distance*f.params.Scale))
}

func (f *PhysicsForm) CreateSphere(radius, density float32) error {
	return f.AddShape(NewSphereShape(radius*f.params.Scale, density))
}

func (f *PhysicsForm) CreateOBB(halfExtents rl.Vector3, density float32) error {
	return f.AddShape(NewOBBShape(f.scale(halfExtents), density))
}

func (f *PhysicsForm) CreateCapsule(a, b rl.Vector3, radius, density float32) error {
	return f.AddShape(NewCapsuleShape(f.scale(a), f.scale(b), radius*f.params.Scale, density))
}

// CreateConvex adds a convex shape from explicit vertices and face loops.
func (f *PhysicsForm) CreateConvex(vertices []rl.Vector3, faces [][]int, density float32) error {
	s, err := NewConvexShape(f.scaleAll(vertices), faces, density)
	if err != nil {
		return err
	}
	return f.AddShape(s)
}

// CreateConvexFromPoints hulls a point cloud, typically a render mesh's vertices,
// and reduces it to at most budget vertices.
func (f *PhysicsForm) CreateConvexFromPoints(points []rl.Vector3, budget int, density float32) error {
	s, err := NewConvexShapeFromPoints(f.scaleAll(points), budget, density)
	if err != nil {
		return err
	}
	return f.AddShape(s)
}

// CreateMesh adds a triangle mesh. indices holds three entries per triangle.
func (f *PhysicsForm) CreateMesh(vertices []rl.Vector3, indices []int, density float32) error {
	s, err := NewMeshShape(f.scaleAll(vertices), indices, density)
	if err != nil {
		return err
	}
	return f.AddShape(s)
}

func (f *PhysicsForm) scaleAll(points []rl.Vector3) []rl.Vector3 {
	out := make([]rl.Vector3, len(points))
	for i, p := range points {
		out[i] = f.scale(p)
	}
	return out
}

// RecalcParameters recomputes the combined mass and the inverse mass and inertia.
func (f *PhysicsForm) RecalcParameters() {
	f.mass = 0
	for _, s := range f.shapes {
		f.mass += s.mass
	}

	f.inertia = mgl32.Mat3{}
	if len(f.shapes) > 0 {
		f.inertia = f.shapes[0].inertia
	}

	if f.mass > epsilon {
		f.inverseMass = 1 / f.mass
		f.inverseInertia = f.inertia.Inv()
	} else {
		f.inverseMass = 0
		f.inverseInertia = mgl32.Mat3{}
	}
	f.dirty = false
}

func (f *PhysicsForm) ensureParameters() {
	if f.dirty {
		f.RecalcParameters()
	}
}

func (f *PhysicsForm) Mass() float32 {
	f.ensureParameters()
	return f.mass
}

func (f *PhysicsForm) InverseMass() float32 {
	f.ensureParameters()
	return f.inverseMass
}

// AABB unions the world bounds of every shape under t.
func (f *PhysicsForm) AABB(t Transform) AABB {
	box := EmptyAABB()
	for _, s := range f.shapes {
		box = box.Union(s.AABB(t))
	}
	return box
}
