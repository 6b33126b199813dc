package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

const maxManifoldPoints = 16

// ContactPoint is one point of contact. Normal points from body A to body B
// and Depth is the positive penetration along it.
type ContactPoint struct {
	PositionA rl.Vector3
	PositionB rl.Vector3
	Depth     float32
	Normal    rl.Vector3
}

// Manifold collects the contact points of one shape pair for one substep.
type Manifold struct {
	Points [maxManifoldPoints]ContactPoint
	Count  int
}

// Add appends p. When the manifold is full p replaces the shallowest point if it is deeper.
func (m *Manifold) Add(p ContactPoint) {
	if m.Count < maxManifoldPoints {
		m.Points[m.Count] = p
		m.Count++
		return
	}

	shallowest := 0
	for i := 1; i < m.Count; i++ {
		if m.Points[i].Depth < m.Points[shallowest].Depth {
			shallowest = i
		}
	}
	if p.Depth > m.Points[shallowest].Depth {
		m.Points[shallowest] = p
	}
}

// addFacePoint adds a clipped point p lying d below the reference plane with
// normal refNormal. flipped is set when the reference face belongs to body B.
func (m *Manifold) addFacePoint(p, refNormal rl.Vector3, d float32, normal rl.Vector3, flipped bool) bool {
	onRef := rl.Vector3Subtract(p, rl.Vector3Scale(refNormal, d))
	cp := ContactPoint{PositionA: onRef, PositionB: p, Depth: -d, Normal: normal}
	if flipped {
		cp.PositionA, cp.PositionB = p, onRef
	}
	m.Add(cp)
	return true
}

func (m *Manifold) Reset() {
	m.Count = 0
}

// Flip swaps the roles of A and B.
func (m *Manifold) Flip() {
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		p.PositionA, p.PositionB = p.PositionB, p.PositionA
		p.Normal = rl.Vector3Negate(p.Normal)
	}
}

// Transform maps every point and normal through t.
func (m *Manifold) Transform(t Transform) {
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		p.PositionA = t.Apply(p.PositionA)
		p.PositionB = t.Apply(p.PositionB)
		p.Normal = t.ApplyVector(p.Normal)
	}
}

// Deepest returns the largest penetration in the manifold.
func (m *Manifold) Deepest() float32 {
	deepest := float32(0)
	for i := 0; i < m.Count; i++ {
		deepest = max(deepest, m.Points[i].Depth)
	}
	return deepest
}

// Reduce collapses the manifold to one representative contact: the centroid of
// the points, the deepest penetration and the normal of the deepest point.
func (m *Manifold) Reduce() (ContactPoint, bool) {
	if m.Count == 0 {
		return ContactPoint{}, false
	}

	var out ContactPoint
	deepest := 0
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		out.PositionA = rl.Vector3Add(out.PositionA, p.PositionA)
		out.PositionB = rl.Vector3Add(out.PositionB, p.PositionB)
		if p.Depth > m.Points[deepest].Depth {
			deepest = i
		}
	}

	inv := 1 / float32(m.Count)
	out.PositionA = rl.Vector3Scale(out.PositionA, inv)
	out.PositionB = rl.Vector3Scale(out.PositionB, inv)
	out.Depth = m.Points[deepest].Depth
	out.Normal = m.Points[deepest].Normal
	return out, true
}
