package physics

import (
	"sort"
	"sync"
)

// Collision is one touching shape pair with its reduced contact.
type Collision struct {
	BodyA, BodyB   *PhysicsBody
	ShapeA, ShapeB int
	Contact        ContactPoint
}

// CollisionCollector accumulates collisions from concurrent narrow-phase jobs.
type CollisionCollector struct {
	mu         sync.Mutex
	collisions []Collision
}

func (c *CollisionCollector) Add(col Collision) {
	c.mu.Lock()
	c.collisions = append(c.collisions, col)
	c.mu.Unlock()
}

func (c *CollisionCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.collisions)
}

// Collisions returns the collected slice. It must not be called while jobs are adding.
func (c *CollisionCollector) Collisions() []Collision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collisions
}

func (c *Collision) touchesStatic() bool {
	return c.BodyA.IsStatic() || c.BodyB.IsStatic()
}

// Reset empties the collector, keeping its storage.
func (c *CollisionCollector) Reset() {
	c.mu.Lock()
	c.collisions = c.collisions[:0]
	c.mu.Unlock()
}

// Sort orders collisions by body handles then shape indices so the solver
// sees the same order regardless of which job produced each entry. Contacts
// with a static body go last, so supports see the load resting on them.
func (c *CollisionCollector) Sort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Slice(c.collisions, func(i, j int) bool {
		a, b := &c.collisions[i], &c.collisions[j]
		if sa, sb := a.touchesStatic(), b.touchesStatic(); sa != sb {
			return sb
		}
		if a.BodyA.handle != b.BodyA.handle {
			return a.BodyA.handle.less(b.BodyA.handle)
		}
		if a.BodyB.handle != b.BodyB.handle {
			return a.BodyB.handle.less(b.BodyB.handle)
		}
		if a.ShapeA != b.ShapeA {
			return a.ShapeA < b.ShapeA
		}
		return a.ShapeB < b.ShapeB
	})
}

// bodyPair is a broad-phase candidate pair.
type bodyPair struct {
	a, b *PhysicsBody
}

// pairCollector is the broad-phase output list shared by the pairing jobs.
type pairCollector struct {
	mu    sync.Mutex
	pairs []bodyPair
}

func (c *pairCollector) add(pairs ...bodyPair) {
	if len(pairs) == 0 {
		return
	}
	c.mu.Lock()
	c.pairs = append(c.pairs, pairs...)
	c.mu.Unlock()
}

func (c *pairCollector) reset() {
	c.mu.Lock()
	c.pairs = c.pairs[:0]
	c.mu.Unlock()
}

// sorted orders pairs by body handles; job completion order is arbitrary.
func (c *pairCollector) sorted() []bodyPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Slice(c.pairs, func(i, j int) bool {
		a, b := c.pairs[i], c.pairs[j]
		if a.a.handle != b.a.handle {
			return a.a.handle.less(b.a.handle)
		}
		return a.b.handle.less(b.b.handle)
	})
	return c.pairs
}
