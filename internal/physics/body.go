package physics

import (
	"sync"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// Entity is the positioned, oriented object a body simulates.
// The world reads it once per substep and writes it back once per Process call.
type Entity interface {
	Position() rl.Vector3
	Rotation() rl.Quaternion
	SetPosition(rl.Vector3)
	SetRotation(rl.Quaternion)
}

// MotionType selects whether a body is integrated.
type MotionType uint8

const (
	// MotionStatic bodies never move and act as infinite-mass obstacles.
	MotionStatic MotionType = iota
	MotionDynamic
)

// AllChannels matches every collision channel.
const AllChannels = ^uint32(0)

// PhysicsBody is one simulated instance of a PhysicsForm.
//
// Velocity, force and translation mutators lock the body and may be called
// from any goroutine.
type PhysicsBody struct {
	handle BodyHandle
	entity Entity
	form   *PhysicsForm
	motion MotionType

	// UserData is free for gameplay code; the world never touches it.
	UserData any

	mu              sync.Mutex
	position        rl.Vector3
	rotation        rl.Quaternion
	linearVelocity  rl.Vector3
	angularVelocity rl.Vector3
	force           rl.Vector3
	torque          rl.Vector3
	translation     rl.Vector3
	linearDamping   float32
	angularDamping  float32
	sleepTimer      float32
	sleeping        bool
	enabled         bool
	destroyed       bool
	channel         uint32
	mask            uint32
	lock            AxisLock
	handler         *CollisionHandler

	// last transform exchanged with the entity
	syncedPosition rl.Vector3
	syncedRotation rl.Quaternion
	synced         bool

	publishedBounds AABB

	// substep state, written in prepare and read by the later phases
	bounds            AABB
	caches            []ShapeCache
	inverseInertia    mgl32.Mat3
	stepSleeping      bool
	stepEnabled       bool
	cachedTransform   Transform
	cachedTransformOK bool
}

func newPhysicsBody(entity Entity, form *PhysicsForm, motion MotionType) *PhysicsBody {
	b := &PhysicsBody{
		entity:         entity,
		form:           form,
		motion:         motion,
		rotation:       rl.QuaternionIdentity(),
		linearDamping:  form.params.LinearDamping,
		angularDamping: form.params.AngularDamping,
		enabled:        true,
		channel:        1,
		mask:           AllChannels,
		caches:         make([]ShapeCache, len(form.shapes)),
	}
	if entity != nil {
		b.position = entity.Position()
		b.rotation = entity.Rotation()
		b.syncedPosition, b.syncedRotation, b.synced = b.position, b.rotation, true
	}
	if motion == MotionStatic {
		b.sleeping = true
	}
	return b
}

func (b *PhysicsBody) Handle() BodyHandle {
	return b.handle
}

func (b *PhysicsBody) Entity() Entity {
	return b.entity
}

func (b *PhysicsBody) Form() *PhysicsForm {
	return b.form
}

func (b *PhysicsBody) MotionType() MotionType {
	return b.motion
}

func (b *PhysicsBody) IsStatic() bool {
	return b.motion == MotionStatic
}

func (b *PhysicsBody) Position() rl.Vector3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

func (b *PhysicsBody) Rotation() rl.Quaternion {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rotation
}

// Transform returns the body's current position and orientation.
func (b *PhysicsBody) Transform() Transform {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Transform{Position: b.position, Rotation: b.rotation}
}

// SetTransform teleports the body and its entity and wakes it.
func (b *PhysicsBody) SetTransform(position rl.Vector3, rotation rl.Quaternion) {
	b.mu.Lock()
	b.position = position
	b.rotation = rl.QuaternionNormalize(rotation)
	b.cachedTransformOK = false
	b.wakeLocked()
	b.mu.Unlock()

	if b.entity != nil {
		b.entity.SetPosition(position)
		b.entity.SetRotation(rotation)
	}
	b.mu.Lock()
	b.syncedPosition, b.syncedRotation, b.synced = position, rotation, b.entity != nil
	b.mu.Unlock()
}

func (b *PhysicsBody) LinearVelocity() rl.Vector3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linearVelocity
}

func (b *PhysicsBody) AngularVelocity() rl.Vector3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.angularVelocity
}

// SetLinearVelocity replaces the velocity without changing the sleep state.
func (b *PhysicsBody) SetLinearVelocity(v rl.Vector3) {
	b.mu.Lock()
	b.linearVelocity = v
	b.mu.Unlock()
}

func (b *PhysicsBody) SetAngularVelocity(w rl.Vector3) {
	b.mu.Lock()
	b.angularVelocity = w
	b.mu.Unlock()
}

// AddLinearVelocity applies an external velocity change and wakes the body.
func (b *PhysicsBody) AddLinearVelocity(dv rl.Vector3) {
	b.mu.Lock()
	b.linearVelocity = rl.Vector3Add(b.linearVelocity, dv)
	b.wakeLocked()
	b.mu.Unlock()
}

// AddAngularVelocity applies an external spin change and wakes the body.
func (b *PhysicsBody) AddAngularVelocity(dw rl.Vector3) {
	b.mu.Lock()
	b.angularVelocity = rl.Vector3Add(b.angularVelocity, dw)
	b.wakeLocked()
	b.mu.Unlock()
}

// Translate queues a displacement applied at the start of the next integration, bypassing velocity.
func (b *PhysicsBody) Translate(delta rl.Vector3) {
	b.mu.Lock()
	b.translation = rl.Vector3Add(b.translation, delta)
	b.wakeLocked()
	b.mu.Unlock()
}

// AddForce accumulates a force through the centre of mass for the next substep.
func (b *PhysicsBody) AddForce(f rl.Vector3) {
	b.mu.Lock()
	b.force = rl.Vector3Add(b.force, f)
	b.mu.Unlock()
}

// AddForceAtPoint accumulates a force applied at a world point, adding its torque.
func (b *PhysicsBody) AddForceAtPoint(f, point rl.Vector3) {
	b.mu.Lock()
	b.force = rl.Vector3Add(b.force, f)
	b.torque = rl.Vector3Add(b.torque, cross(rl.Vector3Subtract(point, b.position), f))
	b.mu.Unlock()
}

func (b *PhysicsBody) AddTorque(t rl.Vector3) {
	b.mu.Lock()
	b.torque = rl.Vector3Add(b.torque, t)
	b.mu.Unlock()
}

// ForceWake makes a dynamic body active. Static bodies stay asleep.
func (b *PhysicsBody) ForceWake() {
	b.mu.Lock()
	b.wakeLocked()
	b.mu.Unlock()
}

func (b *PhysicsBody) wakeLocked() {
	if b.motion == MotionStatic {
		return
	}
	b.sleeping = false
	b.sleepTimer = 0
}

func (b *PhysicsBody) IsSleeping() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sleeping
}

// SetEnabled removes the body from simulation and collision while false.
func (b *PhysicsBody) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	if enabled {
		b.wakeLocked()
	}
	b.mu.Unlock()
}

func (b *PhysicsBody) IsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// SetDamping overrides the damping inherited from the form.
func (b *PhysicsBody) SetDamping(linear, angular float32) {
	b.mu.Lock()
	b.linearDamping, b.angularDamping = linear, angular
	b.mu.Unlock()
}

// SetCollisionFilter sets the channels the body belongs to and the channels it collides with.
// Two bodies collide only if each one's channel intersects the other's mask.
func (b *PhysicsBody) SetCollisionFilter(channel, mask uint32) {
	b.mu.Lock()
	b.channel, b.mask = channel, mask
	b.mu.Unlock()
}

func (b *PhysicsBody) CollisionFilter() (channel, mask uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channel, b.mask
}

func (b *PhysicsBody) SetAxisLock(lock AxisLock) {
	b.mu.Lock()
	b.lock = lock
	b.lock.apply(&b.linearVelocity, &b.angularVelocity)
	b.mu.Unlock()
}

// SetCollisionHandler routes this body's collision events to h (nil to stop).
func (b *PhysicsBody) SetCollisionHandler(h *CollisionHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

func (b *PhysicsBody) CollisionHandler() *CollisionHandler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler
}

// AABB returns the bounds computed by the latest substep. It is safe to call
// while the world steps.
func (b *PhysicsBody) AABB() AABB {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.publishedBounds
}

// prepareForSimulation adopts the entity transform when gameplay moved the entity
// since the last write-back, then rebuilds the shape caches and world inertia.
func (b *PhysicsBody) prepareForSimulation() {
	var pos rl.Vector3
	var rot rl.Quaternion
	if b.entity != nil {
		pos, rot = b.entity.Position(), b.entity.Rotation()
	}

	b.mu.Lock()
	if b.entity != nil && (!b.synced || pos != b.syncedPosition || rot != b.syncedRotation) {
		b.position, b.rotation = pos, rl.QuaternionNormalize(rot)
		b.syncedPosition, b.syncedRotation, b.synced = pos, rot, true
		b.cachedTransformOK = false
		b.wakeLocked()
	}
	t := Transform{Position: b.position, Rotation: b.rotation}
	b.stepSleeping = b.sleeping
	b.stepEnabled = b.enabled && !b.destroyed
	// static geometry only needs rebuilding when it was moved
	unchanged := b.motion == MotionStatic && b.cachedTransformOK && b.cachedTransform == t
	b.mu.Unlock()
	if unchanged {
		return
	}

	b.bounds = EmptyAABB()
	for i, s := range b.form.shapes {
		b.caches[i].build(s, t)
		b.bounds = b.bounds.Union(b.caches[i].Bounds)
	}
	b.inverseInertia = worldInverseInertia(b.form.inverseInertia, t.Rotation)

	b.mu.Lock()
	b.cachedTransform, b.cachedTransformOK = t, true
	b.publishedBounds = b.bounds
	b.mu.Unlock()
}

// isActive reports whether the body is integrated this substep.
func (b *PhysicsBody) isActive() bool {
	return b.motion == MotionDynamic && b.stepEnabled && !b.stepSleeping
}

// processStep integrates velocity from gravity, force and torque, applies
// damping and clears the accumulators.
func (b *PhysicsBody) processStep(dt float32, gravity rl.Vector3) {
	if !b.isActive() {
		b.mu.Lock()
		b.force, b.torque = rl.Vector3{}, rl.Vector3{}
		b.mu.Unlock()
		return
	}

	invMass := b.form.inverseMass
	b.mu.Lock()
	defer b.mu.Unlock()

	accel := rl.Vector3Add(rl.Vector3Scale(gravity, b.form.params.GravityFactor), rl.Vector3Scale(b.force, invMass))
	b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(accel, dt))
	b.angularVelocity = rl.Vector3Add(b.angularVelocity, rl.Vector3Scale(mulMat3(b.inverseInertia, b.torque), dt))

	b.linearVelocity = rl.Vector3Scale(b.linearVelocity, max(0, 1-b.linearDamping*dt))
	b.angularVelocity = rl.Vector3Scale(b.angularVelocity, max(0, 1-b.angularDamping*dt))

	b.lock.apply(&b.linearVelocity, &b.angularVelocity)
	b.force, b.torque = rl.Vector3{}, rl.Vector3{}
}

// applyStep drains the translation accumulator, integrates the transform and
// updates the sleep accumulator.
func (b *PhysicsBody) applyStep(dt float32, cfg *Config) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.position = rl.Vector3Add(b.position, b.translation)
	b.translation = rl.Vector3{}

	if b.motion != MotionDynamic || !b.enabled || b.destroyed || b.sleeping {
		return
	}

	b.lock.apply(&b.linearVelocity, &b.angularVelocity)
	if speed := rl.Vector3Length(b.linearVelocity); cfg.MaxLinearSpeed > 0 && speed > cfg.MaxLinearSpeed {
		b.linearVelocity = rl.Vector3Scale(b.linearVelocity, cfg.MaxLinearSpeed/speed)
	}

	b.position = rl.Vector3Add(b.position, rl.Vector3Scale(b.linearVelocity, dt))
	if axis, rate := normalizeOr(b.angularVelocity, rl.Vector3{}); rate > epsilon {
		dq := rl.QuaternionFromAxisAngle(axis, rate*dt)
		b.rotation = rl.QuaternionNormalize(rl.QuaternionMultiply(dq, b.rotation))
	}

	scale := b.form.params.Scale
	linear := rl.Vector3Length(b.linearVelocity)
	angular := rl.Vector3Length(b.angularVelocity)
	if linear < cfg.SleepLinearThreshold*scale && angular < cfg.SleepAngularThreshold*scale {
		b.sleepTimer += dt
		if b.sleepTimer > cfg.SleepTime {
			b.sleeping = true
			b.linearVelocity = rl.Vector3{}
			b.angularVelocity = rl.Vector3{}
		}
	} else {
		b.sleepTimer = 0
	}
}

// finishSimulation writes the transform back to the entity.
func (b *PhysicsBody) finishSimulation() {
	if b.entity == nil {
		return
	}
	b.mu.Lock()
	pos, rot := b.position, b.rotation
	b.syncedPosition, b.syncedRotation, b.synced = pos, rot, true
	b.mu.Unlock()

	b.entity.SetPosition(pos)
	b.entity.SetRotation(rot)
}

// movable reports whether the solver may change the body this substep.
func (b *PhysicsBody) movable() bool {
	if b.motion != MotionDynamic {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled && !b.sleeping
}

// velocityAt returns the velocity of the body's material at a world point.
func (b *PhysicsBody) velocityAt(point rl.Vector3) rl.Vector3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := rl.Vector3Subtract(point, b.position)
	return rl.Vector3Add(b.linearVelocity, cross(b.angularVelocity, r))
}

// applyImpulse changes the velocities by an impulse at a world point without
// touching the sleep state.
func (b *PhysicsBody) applyImpulse(impulse, point rl.Vector3) {
	invMass := b.form.inverseMass
	b.mu.Lock()
	defer b.mu.Unlock()
	r := rl.Vector3Subtract(point, b.position)
	b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(impulse, invMass))
	b.angularVelocity = rl.Vector3Add(b.angularVelocity, mulMat3(b.inverseInertia, cross(r, impulse)))
	b.lock.apply(&b.linearVelocity, &b.angularVelocity)
}

// correct queues a positional correction without waking the body.
func (b *PhysicsBody) correct(delta rl.Vector3) {
	b.mu.Lock()
	b.translation = rl.Vector3Add(b.translation, delta)
	b.mu.Unlock()
}

// angularMass returns the inverse inertia term (I⁻¹(r×n))×r · n of the effective mass.
func (b *PhysicsBody) angularMass(r, n rl.Vector3) float32 {
	rn := cross(r, n)
	return dot(cross(mulMat3(b.inverseInertia, rn), r), n)
}

func (b *PhysicsBody) markDestroyed() {
	b.mu.Lock()
	b.destroyed = true
	b.mu.Unlock()
}

func (b *PhysicsBody) isDestroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// speedBelow reports whether the body's linear speed is under limit.
func (b *PhysicsBody) speedBelow(limit float32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return rl.Vector3LengthSqr(b.linearVelocity) < limit*limit
}
