package physics

import (
	"log"
	"sync"
)

// shapeRef is one shape of a body together with its cache for this substep.
type shapeRef struct {
	shape *Shape
	cache *ShapeCache
}

// collideFunc adds the contacts between a and b to m, normals pointing from a to b.
type collideFunc func(a, b shapeRef, m *Manifold)

// CollisionDispatcher routes each shape pair to the narrow-phase routine for its kinds.
type CollisionDispatcher struct {
	table   [shapeKindCount][shapeKindCount]collideFunc
	missing [shapeKindCount][shapeKindCount]sync.Once
}

// NewCollisionDispatcher builds the dispatch table.
func NewCollisionDispatcher() *CollisionDispatcher {
	d := &CollisionDispatcher{}

	d.register(ShapePlane, ShapeSphere, collidePlaneSphere)
	d.register(ShapePlane, ShapeOBB, collidePlaneHull)
	d.register(ShapePlane, ShapeCapsule, collidePlaneCapsule)
	d.register(ShapePlane, ShapeConvex, collidePlaneHull)

	d.register(ShapeSphere, ShapeSphere, collideSphereSphere)
	d.register(ShapeSphere, ShapeOBB, collideSphereOBB)
	d.register(ShapeSphere, ShapeCapsule, collideSphereCapsule)
	d.register(ShapeSphere, ShapeConvex, collideSphereConvex)
	d.register(ShapeSphere, ShapeMesh, collideSphereMesh)

	d.register(ShapeOBB, ShapeOBB, collideHullHull)
	d.register(ShapeOBB, ShapeCapsule, collideHullCapsule)
	d.register(ShapeOBB, ShapeConvex, collideHullHull)
	d.register(ShapeOBB, ShapeMesh, collideHullMesh)

	d.register(ShapeCapsule, ShapeCapsule, collideCapsuleCapsule)
	d.register(ShapeConvex, ShapeCapsule, collideHullCapsule)
	d.register(ShapeCapsule, ShapeMesh, collideCapsuleMesh)

	d.register(ShapeConvex, ShapeConvex, collideHullHull)
	d.register(ShapeConvex, ShapeMesh, collideHullMesh)

	return d
}

// register installs fn for (a, b) and its mirror for (b, a).
func (d *CollisionDispatcher) register(a, b ShapeKind, fn collideFunc) {
	d.table[a][b] = fn
	if a != b {
		d.table[b][a] = func(x, y shapeRef, m *Manifold) {
			fn(y, x, m)
			m.Flip()
		}
	}
}

// Supports reports whether a routine exists for the pair of kinds.
func (d *CollisionDispatcher) Supports(a, b ShapeKind) bool {
	return d.table[a][b] != nil
}

// CollideShapes runs the narrow phase for one shape pair and returns the
// manifold reduced to a single contact.
func (d *CollisionDispatcher) CollideShapes(a, b shapeRef) (ContactPoint, bool) {
	fn := d.table[a.shape.kind][b.shape.kind]
	if fn == nil {
		d.missing[a.shape.kind][b.shape.kind].Do(func() {
			log.Printf("Physics: no collision routine for %v vs %v", a.shape.kind, b.shape.kind)
		})
		return ContactPoint{}, false
	}

	var m Manifold
	fn(a, b, &m)
	return m.Reduce()
}

// Collide tests every shape of a against every shape of b and adds one
// collision per touching shape pair to the collector.
func (d *CollisionDispatcher) Collide(a, b *PhysicsBody, collector *CollisionCollector) {
	shapesA := a.form.shapes
	shapesB := b.form.shapes
	for i, sa := range shapesA {
		refA := shapeRef{shape: sa, cache: &a.caches[i]}
		for j, sb := range shapesB {
			refB := shapeRef{shape: sb, cache: &b.caches[j]}
			if !refA.cache.Bounds.Intersects(refB.cache.Bounds) {
				continue
			}
			contact, ok := d.CollideShapes(refA, refB)
			if !ok || contact.Depth <= 0 {
				continue
			}
			collector.Add(Collision{BodyA: a, BodyB: b, ShapeA: i, ShapeB: j, Contact: contact})
		}
	}
}
