package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// CollisionSolver resolves one contact per call: positional correction, normal
// impulse, then two friction axes. Impulses are not accumulated, so each call
// is a complete sequential-impulse step for that contact and it holds no
// per-pair state between substeps.
type CollisionSolver struct {
	bias      float32
	allowRest float32
	// a sleeping body hit faster than this wakes up instead of acting as a wall
	wakeSpeed float32
}

func NewCollisionSolver(cfg Config) *CollisionSolver {
	return &CollisionSolver{
		bias:      cfg.CorrectionBias,
		allowRest: cfg.AllowRestSpeed,
		wakeSpeed: 2 * cfg.SleepLinearThreshold,
	}
}

// Solve corrects the overlap of c and applies its impulses. It reports whether
// anything changed.
func (s *CollisionSolver) Solve(c *Collision) bool {
	return s.solve(c, true)
}

// Relax applies the impulses for c again without positional correction. The
// world calls it for the extra solver iterations.
func (s *CollisionSolver) Relax(c *Collision) bool {
	return s.solve(c, false)
}

func (s *CollisionSolver) solve(c *Collision, correct bool) bool {
	a, b := c.BodyA, c.BodyB
	contact := c.Contact
	if contact.Depth <= 0 {
		return false
	}

	n := contact.Normal
	point := rl.Vector3Lerp(contact.PositionA, contact.PositionB, 0.5)

	closing := dot(rl.Vector3Subtract(b.velocityAt(point), a.velocityAt(point)), n)
	if closing >= 0 {
		return false
	}

	moveA, moveB := s.participates(a, closing), s.participates(b, closing)
	if !moveA && !moveB {
		return false
	}

	var invA, invB float32
	if moveA {
		invA = a.form.inverseMass
	}
	if moveB {
		invB = b.form.inverseMass
	}
	invSum := invA + invB
	if invSum <= epsilon {
		return false
	}

	if correct {
		correction := s.bias * contact.Depth / invSum
		if moveA {
			a.correct(rl.Vector3Scale(n, -correction*invA))
		}
		if moveB {
			b.correct(rl.Vector3Scale(n, correction*invB))
		}
	}

	rA := rl.Vector3Subtract(point, a.Position())
	rB := rl.Vector3Subtract(point, b.Position())

	effective := func(axis rl.Vector3) float32 {
		k := invSum
		if moveA {
			k += a.angularMass(rA, axis)
		}
		if moveB {
			k += b.angularMass(rB, axis)
		}
		return k
	}
	apply := func(impulse rl.Vector3) {
		if moveA {
			a.applyImpulse(rl.Vector3Negate(impulse), point)
		}
		if moveB {
			b.applyImpulse(impulse, point)
		}
	}

	pa, pb := a.form.params, b.form.params
	restitution := (pa.Restitution + pb.Restitution) / 2
	friction := (pa.Friction + pb.Friction) / 2

	k := effective(n)
	if k <= epsilon {
		return false
	}
	target := -closing
	if closing < -s.allowRest {
		target += -restitution * closing
	}
	jn := max(target/k, 0)
	apply(rl.Vector3Scale(n, jn))

	limit := friction * jn
	t1, t2 := perpendicularBasis(n)
	for _, t := range [2]rl.Vector3{t1, t2} {
		kt := effective(t)
		if kt <= epsilon {
			continue
		}
		vt := dot(rl.Vector3Subtract(b.velocityAt(point), a.velocityAt(point)), t)
		jt := clampf(-vt/kt, -limit, limit)
		apply(rl.Vector3Scale(t, jt))
	}
	return true
}

// participates reports whether body can receive impulses from this contact,
// waking it when a sleeping body is struck hard enough.
func (s *CollisionSolver) participates(body *PhysicsBody, closing float32) bool {
	if body.motion != MotionDynamic {
		return false
	}
	if body.movable() {
		return true
	}
	if !body.IsEnabled() || -closing <= s.wakeSpeed {
		return false
	}
	body.ForceWake()
	return true
}
