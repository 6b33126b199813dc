package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	// edge pairs whose cross product is shorter than this fraction of the
	// edge lengths are treated as parallel and produce no axis
	parallelEdgeTolerance = 0.005

	// an edge contact must beat the best face contact by this margin
	relativeEdgeTolerance = 0.98
	absoluteEdgeTolerance = 0.001

	// clipped points deeper than this below the reference face are discarded
	clipDepthRange = 1.0
)

// hullView pairs a hull's topology with world-space (or pair-local) geometry.
type hullView struct {
	hull     *Hull
	vertices []rl.Vector3
	normals  []rl.Vector3
	center   rl.Vector3
}

func viewFromCache(s *Shape, c *ShapeCache) hullView {
	return hullView{hull: s.hull, vertices: c.Vertices, normals: c.Normals, center: c.Center}
}

// triangleView wraps a triangle in the shared two-sided triangle topology.
func triangleView(tri *Triangle, vertices *[3]rl.Vector3, normals *[2]rl.Vector3) hullView {
	vertices[0], vertices[1], vertices[2] = tri.V0, tri.V1, tri.V2
	normals[0], normals[1] = tri.Normal, rl.Vector3Negate(tri.Normal)
	center := rl.Vector3Scale(rl.Vector3Add(rl.Vector3Add(tri.V0, tri.V1), tri.V2), 1.0/3.0)
	return hullView{hull: triangleTopology, vertices: vertices[:], normals: normals[:], center: center}
}

func (v *hullView) support(dir rl.Vector3) rl.Vector3 {
	best := v.vertices[0]
	bestDist := dot(best, dir)
	for _, p := range v.vertices[1:] {
		if d := dot(p, dir); d > bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// plane returns the normal and offset of face i.
func (v *hullView) plane(i int) (rl.Vector3, float32) {
	n := v.normals[i]
	return n, dot(n, v.vertices[v.hull.Faces[i].Indices[0]])
}

func (v *hullView) faceVertices(i int, dst []rl.Vector3) []rl.Vector3 {
	dst = dst[:0]
	for _, idx := range v.hull.Faces[i].Indices {
		dst = append(dst, v.vertices[idx])
	}
	return dst
}

type faceQuery struct {
	index      int
	separation float32
}

type edgeQuery struct {
	indexA, indexB int
	separation     float32
}

// queryFaceDirections returns the face of a along which b is least penetrating.
// A positive separation means the hulls are disjoint.
func queryFaceDirections(a, b *hullView) faceQuery {
	best := faceQuery{index: -1, separation: -math32.MaxFloat32}
	for i := range a.hull.Faces {
		n, d := a.plane(i)
		s := b.support(rl.Vector3Negate(n))
		if sep := dot(n, s) - d; sep > best.separation {
			best = faceQuery{index: i, separation: sep}
		}
	}
	return best
}

// queryEdgeDirections tests every edge pair that forms a face of the Minkowski
// difference and returns the one with the largest separation.
func queryEdgeDirections(a, b *hullView) edgeQuery {
	best := edgeQuery{indexA: -1, indexB: -1, separation: -math32.MaxFloat32}

	for i := 0; i < len(a.hull.Edges); i += 2 {
		edgeA, twinA := a.hull.Edges[i], a.hull.Edges[i+1]
		if edgeA.Face < 0 || twinA.Face < 0 {
			continue
		}
		pA := a.vertices[edgeA.From]
		eA := rl.Vector3Subtract(a.vertices[edgeA.To], pA)
		uA, vA := a.normals[edgeA.Face], a.normals[twinA.Face]

		for j := 0; j < len(b.hull.Edges); j += 2 {
			edgeB, twinB := b.hull.Edges[j], b.hull.Edges[j+1]
			if edgeB.Face < 0 || twinB.Face < 0 {
				continue
			}
			pB := b.vertices[edgeB.From]
			eB := rl.Vector3Subtract(b.vertices[edgeB.To], pB)
			uB, vB := b.normals[edgeB.Face], b.normals[twinB.Face]

			if !isMinkowskiFace(uA, vA, rl.Vector3Negate(eA), rl.Vector3Negate(uB), rl.Vector3Negate(vB), rl.Vector3Negate(eB)) {
				continue
			}
			if sep := projectEdges(pA, eA, pB, eB, a.center); sep > best.separation {
				best = edgeQuery{indexA: i, indexB: j, separation: sep}
			}
		}
	}
	return best
}

// isMinkowskiFace reports whether the Gauss-map arcs a-b and c-d intersect.
// bxa and dxc are the arc plane normals; passing the edge directions keeps
// the test valid for flat hulls whose adjacent normals are opposite.
func isMinkowskiFace(a, b, bxa, c, d, dxc rl.Vector3) bool {
	cba := dot(c, bxa)
	dba := dot(d, bxa)
	adc := dot(a, dxc)
	bdc := dot(b, dxc)
	return cba*dba < 0 && adc*bdc < 0 && cba*bdc > 0
}

// projectEdges returns the separation of edge p2+e2 from edge p1+e1 along their
// common normal, oriented away from c1. Near-parallel edges return -MaxFloat32.
func projectEdges(p1, e1, p2, e2, c1 rl.Vector3) float32 {
	n := cross(e1, e2)
	length := rl.Vector3Length(n)
	if length < parallelEdgeTolerance*math32.Sqrt(dot(e1, e1)*dot(e2, e2)) {
		return -math32.MaxFloat32
	}
	n = rl.Vector3Scale(n, 1/length)
	if dot(n, rl.Vector3Subtract(p1, c1)) < 0 {
		n = rl.Vector3Negate(n)
	}
	return dot(n, rl.Vector3Subtract(p2, p1))
}

// preferEdge applies the face-over-edge bias so that face contacts win ties.
func preferEdge(edge, face float32) bool {
	return edge > relativeEdgeTolerance*face+absoluteEdgeTolerance
}

// collideHulls runs the full SAT between two hulls and adds the clipped
// contact points to m, with normals pointing from a to b.
func collideHulls(a, b *hullView, m *Manifold) bool {
	faceA := queryFaceDirections(a, b)
	if faceA.separation > 0 {
		return false
	}
	faceB := queryFaceDirections(b, a)
	if faceB.separation > 0 {
		return false
	}
	edge := queryEdgeDirections(a, b)
	if edge.separation > 0 {
		return false
	}

	bestFace := max(faceA.separation, faceB.separation)
	if edge.indexA >= 0 && preferEdge(edge.separation, bestFace) {
		return createEdgeContact(a, b, edge, m)
	}
	if faceB.separation > faceA.separation {
		return createFaceContact(b, a, faceB.index, true, m)
	}
	return createFaceContact(a, b, faceA.index, false, m)
}

// createFaceContact clips the incident face of inc against the side planes of
// ref's reference face. flipped is set when ref is the pair's b hull.
func createFaceContact(ref, inc *hullView, refFace int, flipped bool, m *Manifold) bool {
	refNormal, refDist := ref.plane(refFace)

	incFace := 0
	minDot := float32(math32.MaxFloat32)
	for i, n := range inc.normals {
		if d := dot(n, refNormal); d < minDot {
			incFace, minDot = i, d
		}
	}

	var bufA, bufB [maxManifoldPoints * 2]rl.Vector3
	polygon := inc.faceVertices(incFace, bufA[:0])

	loop := ref.hull.Faces[refFace].Indices
	scratch := bufB[:0]
	for i := range loop {
		p := ref.vertices[loop[i]]
		q := ref.vertices[loop[(i+1)%len(loop)]]
		sideNormal, _ := normalizeOr(cross(rl.Vector3Subtract(q, p), refNormal), rl.Vector3{})
		scratch = clipPolygon(polygon, sideNormal, dot(sideNormal, p), scratch[:0])
		polygon, scratch = scratch, polygon
		if len(polygon) == 0 {
			return false
		}
	}

	normal := refNormal
	if flipped {
		normal = rl.Vector3Negate(refNormal)
	}

	added := false
	deepest := float32(0)
	for _, p := range polygon {
		d := dot(refNormal, p) - refDist
		deepest = min(deepest, d)
		if d > 0 || d < -clipDepthRange {
			continue
		}
		added = m.addFacePoint(p, refNormal, d, normal, flipped) || added
	}

	// everything is deeper than the clip range: keep the points behind the face
	if !added && deepest < 0 {
		for _, p := range polygon {
			if d := dot(refNormal, p) - refDist; d <= 0 {
				added = m.addFacePoint(p, refNormal, d, normal, flipped) || added
			}
		}
	}
	return added
}

// clipPolygon keeps the part of polygon with dot(n, p) <= d (Sutherland-Hodgman).
func clipPolygon(polygon []rl.Vector3, n rl.Vector3, d float32, dst []rl.Vector3) []rl.Vector3 {
	if len(polygon) == 0 {
		return dst
	}
	prev := polygon[len(polygon)-1]
	prevDist := dot(n, prev) - d
	for _, cur := range polygon {
		curDist := dot(n, cur) - d
		switch {
		case prevDist <= 0 && curDist <= 0:
			dst = appendClip(dst, cur)
		case prevDist <= 0 && curDist > 0:
			dst = appendClip(dst, rl.Vector3Lerp(prev, cur, prevDist/(prevDist-curDist)))
		case prevDist > 0 && curDist <= 0:
			dst = appendClip(dst, rl.Vector3Lerp(prev, cur, prevDist/(prevDist-curDist)))
			dst = appendClip(dst, cur)
		}
		prev, prevDist = cur, curDist
	}
	return dst
}

func appendClip(dst []rl.Vector3, p rl.Vector3) []rl.Vector3 {
	if len(dst) == cap(dst) {
		return dst
	}
	return append(dst, p)
}

// createEdgeContact emits the closest points of the two edges of an edge query.
func createEdgeContact(a, b *hullView, q edgeQuery, m *Manifold) bool {
	edgeA := a.hull.Edges[q.indexA]
	edgeB := b.hull.Edges[q.indexB]
	pA, qA := a.vertices[edgeA.From], a.vertices[edgeA.To]
	pB, qB := b.vertices[edgeB.From], b.vertices[edgeB.To]

	normal, _ := normalizeOr(cross(rl.Vector3Subtract(qA, pA), rl.Vector3Subtract(qB, pB)), rl.Vector3{Y: 1})
	if dot(normal, rl.Vector3Subtract(pA, a.center)) < 0 {
		normal = rl.Vector3Negate(normal)
	}

	onA, onB := closestPointsSegmentSegment(pA, qA, pB, qB)
	m.Add(ContactPoint{PositionA: onA, PositionB: onB, Depth: -q.separation, Normal: normal})
	return true
}
