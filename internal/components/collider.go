package components

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"rigid3d/internal/engine"
	"rigid3d/internal/physics"
)

// Collider contributes shapes to the form a Rigidbody builds on Start.
// All shapes are centred on the GameObject's origin.
type Collider interface {
	AddShapes(form *physics.PhysicsForm, convexBudget int) error
}

type SphereCollider struct {
	engine.BaseComponent
	Radius  float32
	Density float32
}

func NewSphereCollider(radius float32) *SphereCollider {
	return &SphereCollider{Radius: radius, Density: 1}
}

func (s *SphereCollider) AddShapes(form *physics.PhysicsForm, _ int) error {
	return form.CreateSphere(s.Radius, s.Density)
}

type BoxCollider struct {
	engine.BaseComponent
	HalfExtents rl.Vector3
	Density     float32
}

func NewBoxCollider(halfExtents rl.Vector3) *BoxCollider {
	return &BoxCollider{HalfExtents: halfExtents, Density: 1}
}

func (b *BoxCollider) AddShapes(form *physics.PhysicsForm, _ int) error {
	return form.CreateOBB(b.HalfExtents, b.Density)
}

// CapsuleCollider is a capsule of Height between the cap centres along local Y.
type CapsuleCollider struct {
	engine.BaseComponent
	Height  float32
	Radius  float32
	Density float32
}

func NewCapsuleCollider(height, radius float32) *CapsuleCollider {
	return &CapsuleCollider{Height: height, Radius: radius, Density: 1}
}

func (c *CapsuleCollider) AddShapes(form *physics.PhysicsForm, _ int) error {
	half := c.Height / 2
	return form.CreateCapsule(rl.Vector3{Y: -half}, rl.Vector3{Y: half}, c.Radius, c.Density)
}

// PlaneCollider is an infinite plane through the GameObject's origin. Use it
// on static bodies only.
type PlaneCollider struct {
	engine.BaseComponent
	Normal rl.Vector3
}

func NewPlaneCollider(normal rl.Vector3) *PlaneCollider {
	return &PlaneCollider{Normal: normal}
}

func (p *PlaneCollider) AddShapes(form *physics.PhysicsForm, _ int) error {
	return form.CreatePlane(p.Normal, 0)
}
