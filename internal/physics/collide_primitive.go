package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

var fallbackNormal = rl.Vector3{Y: 1}

func collidePlaneSphere(a, b shapeRef, m *Manifold) {
	n, d := a.cache.Normal, a.cache.Distance
	c, r := b.cache.Center, b.cache.Radius

	dist := dot(n, c) - d
	if dist >= r {
		return
	}
	m.Add(ContactPoint{
		PositionA: rl.Vector3Subtract(c, rl.Vector3Scale(n, dist)),
		PositionB: rl.Vector3Subtract(c, rl.Vector3Scale(n, r)),
		Depth:     r - dist,
		Normal:    n,
	})
}

// collidePlaneHull emits every hull vertex below the plane.
func collidePlaneHull(a, b shapeRef, m *Manifold) {
	n, d := a.cache.Normal, a.cache.Distance
	for _, v := range b.cache.Vertices {
		dist := dot(n, v) - d
		if dist >= 0 {
			continue
		}
		m.Add(ContactPoint{
			PositionA: rl.Vector3Subtract(v, rl.Vector3Scale(n, dist)),
			PositionB: v,
			Depth:     -dist,
			Normal:    n,
		})
	}
}

func collidePlaneCapsule(a, b shapeRef, m *Manifold) {
	n, d := a.cache.Normal, a.cache.Distance
	r := b.cache.Radius
	for _, p := range [2]rl.Vector3{b.cache.PointA, b.cache.PointB} {
		dist := dot(n, p) - d
		if dist >= r {
			continue
		}
		m.Add(ContactPoint{
			PositionA: rl.Vector3Subtract(p, rl.Vector3Scale(n, dist)),
			PositionB: rl.Vector3Subtract(p, rl.Vector3Scale(n, r)),
			Depth:     r - dist,
			Normal:    n,
		})
	}
}

// addSphericalContact emits a contact between two spheres (or swept points)
// centred at ca and cb when they overlap.
func addSphericalContact(ca rl.Vector3, ra float32, cb rl.Vector3, rb float32, m *Manifold) {
	normal, dist := normalizeOr(rl.Vector3Subtract(cb, ca), fallbackNormal)
	if dist >= ra+rb {
		return
	}
	m.Add(ContactPoint{
		PositionA: rl.Vector3Add(ca, rl.Vector3Scale(normal, ra)),
		PositionB: rl.Vector3Subtract(cb, rl.Vector3Scale(normal, rb)),
		Depth:     ra + rb - dist,
		Normal:    normal,
	})
}

func collideSphereSphere(a, b shapeRef, m *Manifold) {
	addSphericalContact(a.cache.Center, a.cache.Radius, b.cache.Center, b.cache.Radius, m)
}

func collideSphereCapsule(a, b shapeRef, m *Manifold) {
	c := a.cache.Center
	closest := closestPointOnSegment(c, b.cache.PointA, b.cache.PointB)
	addSphericalContact(c, a.cache.Radius, closest, b.cache.Radius, m)
}

func collideCapsuleCapsule(a, b shapeRef, m *Manifold) {
	pa, pb := closestPointsSegmentSegment(a.cache.PointA, a.cache.PointB, b.cache.PointA, b.cache.PointB)
	addSphericalContact(pa, a.cache.Radius, pb, b.cache.Radius, m)
}

// addSphereSurfaceContact emits a contact between a sphere and the closest point
// of a solid (normal pointing from the sphere into the solid).
func addSphereSurfaceContact(c rl.Vector3, r float32, surface rl.Vector3, m *Manifold) {
	normal, dist := normalizeOr(rl.Vector3Subtract(surface, c), rl.Vector3Negate(fallbackNormal))
	if dist >= r {
		return
	}
	m.Add(ContactPoint{
		PositionA: rl.Vector3Add(c, rl.Vector3Scale(normal, r)),
		PositionB: surface,
		Depth:     r - dist,
		Normal:    normal,
	})
}

// addSphereInsideContact handles a sphere centre inside a solid: the contact
// pushes the sphere out through the nearest face with outward normal faceNormal.
func addSphereInsideContact(c rl.Vector3, r float32, faceNormal, surface rl.Vector3, faceDist float32, m *Manifold) {
	normal := rl.Vector3Negate(faceNormal)
	m.Add(ContactPoint{
		PositionA: rl.Vector3Add(c, rl.Vector3Scale(normal, r)),
		PositionB: surface,
		Depth:     r + faceDist,
		Normal:    normal,
	})
}

func collideSphereOBB(a, b shapeRef, m *Manifold) {
	c, r := a.cache.Center, a.cache.Radius
	box := b.cache.obb()
	if box.Contains(c) {
		faceNormal, surface, faceDist := box.nearestFace(c)
		addSphereInsideContact(c, r, faceNormal, surface, faceDist, m)
		return
	}
	addSphereSurfaceContact(c, r, ClosestPointOnOBB(box, c), m)
}

func collideSphereConvex(a, b shapeRef, m *Manifold) {
	c, r := a.cache.Center, a.cache.Radius
	hull := viewFromCache(b.shape, b.cache)

	// deepest face plane; positive means the centre is outside that face
	best, bestSep := 0, float32(-1e30)
	for i := range hull.hull.Faces {
		n, d := hull.plane(i)
		if sep := dot(n, c) - d; sep > bestSep {
			best, bestSep = i, sep
		}
	}
	if bestSep > r {
		return
	}

	if bestSep <= 0 {
		n, _ := hull.plane(best)
		surface := rl.Vector3Subtract(c, rl.Vector3Scale(n, bestSep))
		addSphereInsideContact(c, r, n, surface, -bestSep, m)
		return
	}

	var buf [32]rl.Vector3
	closest := rl.Vector3{}
	closestDist := float32(1e30)
	for i := range hull.hull.Faces {
		n, d := hull.plane(i)
		if dot(n, c)-d <= 0 {
			continue
		}
		q := closestPointOnPolygon(c, hull.faceVertices(i, buf[:0]))
		if dist := rl.Vector3LengthSqr(rl.Vector3Subtract(q, c)); dist < closestDist {
			closest, closestDist = q, dist
		}
	}
	addSphereSurfaceContact(c, r, closest, m)
}
