package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

func collideHullHull(a, b shapeRef, m *Manifold) {
	viewA := viewFromCache(a.shape, a.cache)
	viewB := viewFromCache(b.shape, b.cache)
	collideHulls(&viewA, &viewB, m)
}

func collideHullCapsule(a, b shapeRef, m *Manifold) {
	view := viewFromCache(a.shape, a.cache)
	collideHullSegment(&view, b.cache.PointA, b.cache.PointB, b.cache.Radius, m)
}

// collideHullSegment runs SAT between a hull and a capsule (segment p-q swept by
// radius). Normals point from the hull to the capsule.
func collideHullSegment(h *hullView, p, q rl.Vector3, radius float32, m *Manifold) bool {
	// face query: the segment end point deepest behind each face
	face := faceQuery{index: -1, separation: -math32.MaxFloat32}
	for i := range h.hull.Faces {
		n, d := h.plane(i)
		sep := min(dot(n, p), dot(n, q)) - d - radius
		if sep > face.separation {
			face = faceQuery{index: i, separation: sep}
		}
	}
	if face.separation > 0 {
		return false
	}

	// edge query: the segment's Gauss map is the great circle orthogonal to it
	segment := rl.Vector3Subtract(q, p)
	edge := edgeQuery{indexA: -1, separation: -math32.MaxFloat32}
	for i := 0; i < len(h.hull.Edges) && dot(segment, segment) > epsilon; i += 2 {
		e, twin := h.hull.Edges[i], h.hull.Edges[i+1]
		if e.Face < 0 || twin.Face < 0 {
			continue
		}
		u, v := h.normals[e.Face], h.normals[twin.Face]
		if dot(u, segment)*dot(v, segment) >= 0 {
			continue
		}
		from := h.vertices[e.From]
		dir := rl.Vector3Subtract(h.vertices[e.To], from)
		sep := projectEdges(from, dir, p, segment, h.center) - radius
		if sep > edge.separation {
			edge = edgeQuery{indexA: i, separation: sep}
		}
	}
	if edge.separation > 0 {
		return false
	}

	if edge.indexA >= 0 && preferEdge(edge.separation, face.separation) {
		e := h.hull.Edges[edge.indexA]
		from, to := h.vertices[e.From], h.vertices[e.To]
		onHull, onSegment := closestPointsSegmentSegment(from, to, p, q)

		normal, _ := normalizeOr(cross(rl.Vector3Subtract(to, from), segment), fallbackNormal)
		if dot(normal, rl.Vector3Subtract(from, h.center)) < 0 {
			normal = rl.Vector3Negate(normal)
		}
		m.Add(ContactPoint{
			PositionA: onHull,
			PositionB: rl.Vector3Subtract(onSegment, rl.Vector3Scale(normal, radius)),
			Depth:     -edge.separation,
			Normal:    normal,
		})
		return true
	}

	return segmentFaceContact(h, face.index, p, q, radius, m)
}

// segmentFaceContact clips the segment against the side planes of a face and
// emits the clipped end points within radius of the face. When the segment
// misses the face region, the closest points to the face boundary are used.
func segmentFaceContact(h *hullView, face int, p, q rl.Vector3, radius float32, m *Manifold) bool {
	n, d := h.plane(face)
	loop := h.hull.Faces[face].Indices

	a, b := p, q
	clipped := true
	for i := range loop {
		v0 := h.vertices[loop[i]]
		v1 := h.vertices[loop[(i+1)%len(loop)]]
		side, _ := normalizeOr(cross(rl.Vector3Subtract(v1, v0), n), rl.Vector3{})
		var ok bool
		a, b, ok = clipSegment(a, b, side, dot(side, v0))
		if !ok {
			clipped = false
			break
		}
	}

	if clipped {
		added := false
		for _, x := range [2]rl.Vector3{a, b} {
			dist := dot(n, x) - d
			if dist > radius {
				continue
			}
			m.Add(ContactPoint{
				PositionA: rl.Vector3Subtract(x, rl.Vector3Scale(n, dist)),
				PositionB: rl.Vector3Subtract(x, rl.Vector3Scale(n, radius)),
				Depth:     radius - dist,
				Normal:    n,
			})
			added = true
		}
		return added
	}

	var onHull, onSegment rl.Vector3
	best := float32(math32.MaxFloat32)
	for i := range loop {
		v0 := h.vertices[loop[i]]
		v1 := h.vertices[loop[(i+1)%len(loop)]]
		x, y := closestPointsSegmentSegment(v0, v1, p, q)
		if dist := rl.Vector3LengthSqr(rl.Vector3Subtract(y, x)); dist < best {
			onHull, onSegment, best = x, y, dist
		}
	}
	normal, dist := normalizeOr(rl.Vector3Subtract(onSegment, onHull), n)
	if dist >= radius {
		return false
	}
	m.Add(ContactPoint{
		PositionA: onHull,
		PositionB: rl.Vector3Subtract(onSegment, rl.Vector3Scale(normal, radius)),
		Depth:     radius - dist,
		Normal:    normal,
	})
	return true
}

// clipSegment keeps the part of a-b with dot(n, x) <= d.
func clipSegment(a, b, n rl.Vector3, d float32) (rl.Vector3, rl.Vector3, bool) {
	da := dot(n, a) - d
	db := dot(n, b) - d
	switch {
	case da > 0 && db > 0:
		return a, b, false
	case da > 0:
		return rl.Vector3Lerp(a, b, da/(da-db)), b, true
	case db > 0:
		return a, rl.Vector3Lerp(a, b, da/(da-db)), true
	}
	return a, b, true
}
