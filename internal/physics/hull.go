package physics

import (
	"fmt"
	"log"
	"sort"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// HullFace is one polygon of a hull, wound counter-clockwise around its outward normal.
type HullFace struct {
	Indices []int
	Normal  rl.Vector3
}

// HalfEdge is a directed edge bordering Face, or -1 when no polygon borders it.
// Hull.Edges stores twins next to each other: Edges[i^1] is the twin of Edges[i].
type HalfEdge struct {
	From, To int
	Face     int
}

// Hull is a convex polyhedron with polygon faces and half-edge adjacency.
type Hull struct {
	Vertices []rl.Vector3
	Faces    []HullFace
	Edges    []HalfEdge
}

// NewHull builds a hull from explicit vertices and counter-clockwise face loops.
func NewHull(vertices []rl.Vector3, faces [][]int) (*Hull, error) {
	if len(vertices) < 3 || len(faces) == 0 {
		return nil, fmt.Errorf("hull needs at least 3 vertices and one face: %w", ErrDegenerateHull)
	}

	h := &Hull{Vertices: append([]rl.Vector3(nil), vertices...)}
	for _, loop := range faces {
		if len(loop) < 3 {
			return nil, fmt.Errorf("face with %d vertices: %w", len(loop), ErrDegenerateHull)
		}
		for _, idx := range loop {
			if idx < 0 || idx >= len(vertices) {
				return nil, fmt.Errorf("face index %d out of range: %w", idx, ErrDegenerateHull)
			}
		}
		h.Faces = append(h.Faces, HullFace{
			Indices: append([]int(nil), loop...),
			Normal:  newellNormal(vertices, loop),
		})
	}
	h.buildEdges()
	return h, nil
}

// newellNormal computes a polygon normal robust to slightly non-planar loops.
func newellNormal(vertices []rl.Vector3, loop []int) rl.Vector3 {
	var n rl.Vector3
	for i := range loop {
		a := vertices[loop[i]]
		b := vertices[loop[(i+1)%len(loop)]]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	n, _ = normalizeOr(n, rl.Vector3{Y: 1})
	return n
}

func (h *Hull) buildEdges() {
	type edgeKey struct{ a, b int }
	seen := make(map[edgeKey]int)

	h.Edges = h.Edges[:0]
	for f, face := range h.Faces {
		for i := range face.Indices {
			from := face.Indices[i]
			to := face.Indices[(i+1)%len(face.Indices)]
			key := edgeKey{min(from, to), max(from, to)}

			if k, ok := seen[key]; ok {
				twin := &h.Edges[2*k+1]
				if twin.Face == -1 && twin.From == from {
					twin.Face = f
					continue
				}
			}
			seen[key] = len(h.Edges) / 2
			h.Edges = append(h.Edges,
				HalfEdge{From: from, To: to, Face: f},
				HalfEdge{From: to, To: from, Face: -1})
		}
	}
}

// Empty reports whether the hull carries no geometry.
func (h *Hull) Empty() bool {
	return h == nil || len(h.Vertices) == 0 || len(h.Faces) == 0
}

// Support returns the index of the vertex furthest along dir.
func (h *Hull) Support(dir rl.Vector3) int {
	best := 0
	bestDist := float32(-math32.MaxFloat32)
	for i, v := range h.Vertices {
		if d := dot(v, dir); d > bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// Bounds returns the local AABB of the hull vertices.
func (h *Hull) Bounds() AABB {
	box := EmptyAABB()
	for _, v := range h.Vertices {
		box = box.Include(v)
	}
	return box
}

// Centroid is the average of the hull vertices.
func (h *Hull) Centroid() rl.Vector3 {
	var c rl.Vector3
	for _, v := range h.Vertices {
		c = rl.Vector3Add(c, v)
	}
	if len(h.Vertices) > 0 {
		c = rl.Vector3Scale(c, 1/float32(len(h.Vertices)))
	}
	return c
}

type hullTriangle struct {
	v      [3]int
	normal rl.Vector3
	dist   float32
	dead   bool
}

func newHullTriangle(points []rl.Vector3, a, b, c int) hullTriangle {
	n, _ := normalizeOr(cross(rl.Vector3Subtract(points[b], points[a]), rl.Vector3Subtract(points[c], points[a])), rl.Vector3{Y: 1})
	return hullTriangle{v: [3]int{a, b, c}, normal: n, dist: dot(n, points[a])}
}

// BuildHull computes the convex hull of a point cloud with an incremental algorithm
// and merges coplanar triangles into polygons.
func BuildHull(points []rl.Vector3) (*Hull, error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%d points: %w", len(points), ErrDegenerateHull)
	}

	bounds := EmptyAABB()
	for _, p := range points {
		bounds = bounds.Include(p)
	}
	tolerance := max(rl.Vector3Length(rl.Vector3Subtract(bounds.Max, bounds.Min))*1e-5, 1e-7)

	i0, i1, i2, i3, ok := initialTetrahedron(points, tolerance)
	if !ok {
		return nil, fmt.Errorf("points are coplanar: %w", ErrDegenerateHull)
	}

	tris := []hullTriangle{}
	interior := rl.Vector3Scale(rl.Vector3Add(rl.Vector3Add(points[i0], points[i1]), rl.Vector3Add(points[i2], points[i3])), 0.25)
	for _, f := range [][3]int{{i0, i1, i2}, {i0, i3, i1}, {i1, i3, i2}, {i2, i3, i0}} {
		t := newHullTriangle(points, f[0], f[1], f[2])
		if dot(t.normal, interior)-t.dist > 0 {
			t = newHullTriangle(points, f[0], f[2], f[1])
		}
		tris = append(tris, t)
	}

	type directed struct{ a, b int }
	for p := range points {
		if p == i0 || p == i1 || p == i2 || p == i3 {
			continue
		}

		edges := make(map[directed]bool)
		visible := false
		for i := range tris {
			t := &tris[i]
			if t.dead || dot(t.normal, points[p])-t.dist <= tolerance {
				continue
			}
			t.dead = true
			visible = true
			for k := 0; k < 3; k++ {
				edges[directed{t.v[k], t.v[(k+1)%3]}] = true
			}
		}
		if !visible {
			continue
		}

		horizon := make([]directed, 0, len(edges))
		for e := range edges {
			if !edges[directed{e.b, e.a}] {
				horizon = append(horizon, e)
			}
		}
		sort.Slice(horizon, func(i, j int) bool {
			if horizon[i].a != horizon[j].a {
				return horizon[i].a < horizon[j].a
			}
			return horizon[i].b < horizon[j].b
		})
		for _, e := range horizon {
			tris = append(tris, newHullTriangle(points, e.a, e.b, p))
		}

		live := tris[:0]
		for _, t := range tris {
			if !t.dead {
				live = append(live, t)
			}
		}
		tris = live
	}

	return polygonsFromTriangles(points, tris, tolerance)
}

func initialTetrahedron(points []rl.Vector3, tolerance float32) (int, int, int, int, bool) {
	i0 := 0
	for i, p := range points {
		if p.X < points[i0].X {
			i0 = i
		}
	}

	i1, best := -1, tolerance
	for i, p := range points {
		if d := rl.Vector3Distance(p, points[i0]); d > best {
			i1, best = i, d
		}
	}
	if i1 < 0 {
		return 0, 0, 0, 0, false
	}

	line := rl.Vector3Normalize(rl.Vector3Subtract(points[i1], points[i0]))
	i2, best := -1, tolerance
	for i, p := range points {
		if d := rl.Vector3Length(cross(rl.Vector3Subtract(p, points[i0]), line)); d > best {
			i2, best = i, d
		}
	}
	if i2 < 0 {
		return 0, 0, 0, 0, false
	}

	n := rl.Vector3Normalize(cross(rl.Vector3Subtract(points[i1], points[i0]), rl.Vector3Subtract(points[i2], points[i0])))
	i3, best := -1, tolerance
	for i, p := range points {
		if d := math32.Abs(dot(n, rl.Vector3Subtract(p, points[i0]))); d > best {
			i3, best = i, d
		}
	}
	if i3 < 0 {
		return 0, 0, 0, 0, false
	}
	return i0, i1, i2, i3, true
}

// polygonsFromTriangles merges coplanar hull triangles into polygons and
// re-indexes the used points compactly.
func polygonsFromTriangles(points []rl.Vector3, tris []hullTriangle, tolerance float32) (*Hull, error) {
	type plane struct {
		normal rl.Vector3
		dist   float32
		verts  map[int]struct{}
	}

	var planes []*plane
	for _, t := range tris {
		var target *plane
		for _, p := range planes {
			if dot(p.normal, t.normal) > 1-1e-3 && math32.Abs(p.dist-t.dist) < tolerance*10 {
				target = p
				break
			}
		}
		if target == nil {
			target = &plane{normal: t.normal, dist: t.dist, verts: make(map[int]struct{})}
			planes = append(planes, target)
		}
		for _, v := range t.v {
			target.verts[v] = struct{}{}
		}
	}

	remap := make(map[int]int)
	var vertices []rl.Vector3
	var faces [][]int
	for _, p := range planes {
		loop := planarLoop(points, p.verts, p.normal, tolerance)
		if len(loop) < 3 {
			continue
		}
		for i, idx := range loop {
			mapped, ok := remap[idx]
			if !ok {
				mapped = len(vertices)
				remap[idx] = mapped
				vertices = append(vertices, points[idx])
			}
			loop[i] = mapped
		}
		faces = append(faces, loop)
	}

	if len(faces) < 4 {
		return nil, fmt.Errorf("hull collapsed to %d faces: %w", len(faces), ErrDegenerateHull)
	}
	return NewHull(vertices, faces)
}

// planarLoop returns the convex boundary of a face's vertices, counter-clockwise
// around normal. Interior and collinear points are dropped (monotone chain).
func planarLoop(points []rl.Vector3, verts map[int]struct{}, normal rl.Vector3, tolerance float32) []int {
	u, w := perpendicularBasis(normal)
	type planar struct {
		idx  int
		x, y float32
	}

	pts := make([]planar, 0, len(verts))
	for v := range verts {
		pts = append(pts, planar{idx: v, x: dot(u, points[v]), y: dot(w, points[v])})
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		if pts[i].y != pts[j].y {
			return pts[i].y < pts[j].y
		}
		return pts[i].idx < pts[j].idx
	})
	if len(pts) < 3 {
		return nil
	}

	turn := func(o, a, b planar) float32 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}
	area := tolerance * tolerance

	chain := make([]planar, 0, 2*len(pts))
	for _, p := range pts {
		for len(chain) >= 2 && turn(chain[len(chain)-2], chain[len(chain)-1], p) <= area {
			chain = chain[:len(chain)-1]
		}
		chain = append(chain, p)
	}
	lower := len(chain) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(chain) >= lower && turn(chain[len(chain)-2], chain[len(chain)-1], p) <= area {
			chain = chain[:len(chain)-1]
		}
		chain = append(chain, p)
	}
	chain = chain[:len(chain)-1]

	loop := make([]int, len(chain))
	for i, p := range chain {
		loop[i] = p.idx
	}
	return loop
}

// ReduceHull collapses the shortest edge to its midpoint and re-hulls until the
// hull has at most budget vertices. A budget below 4 is raised to 4.
func ReduceHull(h *Hull, budget int) *Hull {
	budget = max(budget, 4)
	current := h
	for len(current.Vertices) > budget {
		shortest := -1
		shortestLen := float32(math32.MaxFloat32)
		for i := 0; i < len(current.Edges); i += 2 {
			e := current.Edges[i]
			if l := rl.Vector3Distance(current.Vertices[e.From], current.Vertices[e.To]); l < shortestLen {
				shortest, shortestLen = i, l
			}
		}
		if shortest < 0 {
			break
		}

		e := current.Edges[shortest]
		points := make([]rl.Vector3, 0, len(current.Vertices)-1)
		for i, v := range current.Vertices {
			if i != e.From && i != e.To {
				points = append(points, v)
			}
		}
		points = append(points, rl.Vector3Lerp(current.Vertices[e.From], current.Vertices[e.To], 0.5))

		next, err := BuildHull(points)
		if err != nil {
			log.Printf("Physics: hull reduction stopped at %d vertices: %v", len(current.Vertices), err)
			break
		}
		current = next
	}
	return current
}

// massProperties integrates signed tetrahedra against the vertex centroid.
// The inertia tensor is expressed about the returned centre of mass.
func (h *Hull) massProperties(density float32) (mass float32, center rl.Vector3, inertia mgl32.Mat3) {
	triangles := make([][3]rl.Vector3, 0, len(h.Faces)*2)
	for _, face := range h.Faces {
		for i := 1; i+1 < len(face.Indices); i++ {
			triangles = append(triangles, [3]rl.Vector3{
				h.Vertices[face.Indices[0]],
				h.Vertices[face.Indices[i]],
				h.Vertices[face.Indices[i+1]],
			})
		}
	}
	return solidMassProperties(triangles, h.Centroid(), density)
}

var canonicalCovariance = mgl64.Mat3{
	2, 1, 1,
	1, 2, 1,
	1, 1, 2,
}.Mul(1.0 / 120.0)

// solidMassProperties treats the triangles as the closed, outward-wound surface of a solid.
func solidMassProperties(triangles [][3]rl.Vector3, origin rl.Vector3, density float32) (float32, rl.Vector3, mgl32.Mat3) {
	ref := mgl64.Vec3{float64(origin.X), float64(origin.Y), float64(origin.Z)}
	toVec := func(v rl.Vector3) mgl64.Vec3 {
		return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}.Sub(ref)
	}

	var volume float64
	var com mgl64.Vec3
	var covariance mgl64.Mat3
	for _, tri := range triangles {
		a, b, c := toVec(tri[0]), toVec(tri[1]), toVec(tri[2])
		m := mgl64.Mat3FromCols(a, b, c)
		det := m.Det()

		volume += det / 6
		com = com.Add(a.Add(b).Add(c).Mul(det / 24))
		covariance = covariance.Add(m.Mul3(canonicalCovariance).Mul3(m.Transpose()).Mul(det))
	}
	if volume <= epsilon {
		return 0, origin, mgl32.Mat3{}
	}

	d := float64(density)
	mass := d * volume
	com = com.Mul(1 / volume)
	covariance = covariance.Mul(d)

	// shift the covariance to the centre of mass
	outer := mgl64.Mat3FromCols(com.Mul(com[0]), com.Mul(com[1]), com.Mul(com[2]))
	covariance = covariance.Sub(outer.Mul(mass))

	tensor := mgl64.Ident3().Mul(covariance.Trace()).Sub(covariance)
	var inertia mgl32.Mat3
	for i := range tensor {
		inertia[i] = float32(tensor[i])
	}

	center := rl.Vector3{X: float32(com[0] + ref[0]), Y: float32(com[1] + ref[1]), Z: float32(com[2] + ref[2])}
	return float32(mass), center, inertia
}

var (
	boxCorners = []rl.Vector3{
		{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1},
		{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1},
	}
	boxFaces = [][]int{
		{0, 3, 2, 1}, {4, 5, 6, 7},
		{0, 1, 5, 4}, {3, 7, 6, 2},
		{0, 4, 7, 3}, {1, 2, 6, 5},
	}
)

// newBoxHull builds the eight-corner hull of a box with the given half extents.
func newBoxHull(half rl.Vector3) *Hull {
	corners := make([]rl.Vector3, len(boxCorners))
	for i, c := range boxCorners {
		corners[i] = rl.Vector3Multiply(c, half)
	}
	h, err := NewHull(corners, boxFaces)
	if err != nil {
		panic(err)
	}
	return h
}

// triangleTopology is the two-sided hull shared by every mesh triangle.
// Only its faces and edges are used; vertices come from the triangle.
var triangleTopology = func() *Hull {
	h, err := NewHull([]rl.Vector3{{}, {X: 1}, {Z: -1}}, [][]int{{0, 1, 2}, {2, 1, 0}})
	if err != nil {
		panic(err)
	}
	return h
}()
