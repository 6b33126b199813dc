package physics

import (
	"sort"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Segment is a finite ray from Start to End.
type Segment struct {
	Start, End rl.Vector3
}

// NewRay returns the segment of length maxDistance from origin along direction.
func NewRay(origin, direction rl.Vector3, maxDistance float32) Segment {
	dir, _ := normalizeOr(direction, rl.Vector3{Y: -1})
	return Segment{Start: origin, End: rl.Vector3Add(origin, rl.Vector3Scale(dir, maxDistance))}
}

func (s Segment) Delta() rl.Vector3 {
	return rl.Vector3Subtract(s.End, s.Start)
}

func (s Segment) Length() float32 {
	return rl.Vector3Distance(s.Start, s.End)
}

// At returns the point at fraction t of the segment.
func (s Segment) At(t float32) rl.Vector3 {
	return rl.Vector3Add(s.Start, rl.Vector3Scale(s.Delta(), t))
}

func (s Segment) bounds() AABB {
	return EmptyAABB().Include(s.Start).Include(s.End)
}

type RaycastHit struct {
	Body     *PhysicsBody
	Shape    int
	Point    rl.Vector3
	Normal   rl.Vector3
	Distance float32
}

// rayHit is a surface crossing at fraction t of a segment.
type rayHit struct {
	t      float32
	normal rl.Vector3
}

// CastRay intersects seg with the shape's cached world geometry and returns
// up to two hits, entry then exit, ordered by distance. A segment starting
// inside a solid reports only the exit.
func (s *Shape) CastRay(seg Segment, cache *ShapeCache) []RaycastHit {
	var hits []rayHit
	switch s.kind {
	case ShapePlane:
		hits = rayPlane(seg, cache.Normal, cache.Distance)
	case ShapeSphere:
		hits = raySphere(seg, cache.Center, cache.Radius)
	case ShapeCapsule:
		hits = rayCapsule(seg, cache.PointA, cache.PointB, cache.Radius)
	case ShapeOBB:
		hits = rayOBB(seg, cache.obb())
	case ShapeConvex:
		hits = rayConvex(seg, s.hull, cache)
	case ShapeMesh:
		hits = rayMesh(seg, s.mesh, cache)
	}

	length := seg.Length()
	out := make([]RaycastHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, RaycastHit{
			Point:    seg.At(h.t),
			Normal:   h.normal,
			Distance: h.t * length,
		})
	}
	return out
}

// clipHits keeps the entry and exit fractions that fall on the segment.
func clipHits(enter, exit rayHit) []rayHit {
	var hits []rayHit
	if enter.t >= 0 && enter.t <= 1 {
		hits = append(hits, enter)
	}
	if exit.t >= 0 && exit.t <= 1 && exit.t > enter.t {
		hits = append(hits, exit)
	}
	return hits
}

func rayPlane(seg Segment, normal rl.Vector3, distance float32) []rayHit {
	d := seg.Delta()
	den := dot(normal, d)
	if math32.Abs(den) < epsilon {
		return nil
	}
	t := (distance - dot(normal, seg.Start)) / den
	if t < 0 || t > 1 {
		return nil
	}
	return []rayHit{{t: t, normal: normal}}
}

// sphereInterval returns the unclipped fractions where the line enters and leaves the sphere.
func sphereInterval(seg Segment, center rl.Vector3, radius float32) (float32, float32, bool) {
	d := seg.Delta()
	m := rl.Vector3Subtract(seg.Start, center)
	a := dot(d, d)
	if a < epsilon {
		return 0, 0, false
	}
	b := dot(m, d)
	c := dot(m, m) - radius*radius
	disc := b*b - a*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math32.Sqrt(disc)
	return (-b - sq) / a, (-b + sq) / a, true
}

func raySphere(seg Segment, center rl.Vector3, radius float32) []rayHit {
	t0, t1, ok := sphereInterval(seg, center, radius)
	if !ok {
		return nil
	}
	normalAt := func(t float32) rl.Vector3 {
		n, _ := normalizeOr(rl.Vector3Subtract(seg.At(t), center), rl.Vector3{Y: 1})
		return n
	}
	return clipHits(rayHit{t0, normalAt(t0)}, rayHit{t1, normalAt(t1)})
}

// cylinderInterval returns where the line is inside the finite cylinder
// around a-b.
func cylinderInterval(seg Segment, a, b rl.Vector3, radius float32) (float32, float32, bool) {
	axis, height := normalizeOr(rl.Vector3Subtract(b, a), rl.Vector3{})
	if height < epsilon {
		return 0, 0, false
	}
	d := seg.Delta()
	m := rl.Vector3Subtract(seg.Start, a)
	md, dd := dot(m, axis), dot(d, axis)

	lo, hi := float32(-math32.MaxFloat32), float32(math32.MaxFloat32)

	// slab between the end caps
	if math32.Abs(dd) < epsilon {
		if md < 0 || md > height {
			return 0, 0, false
		}
	} else {
		t0, t1 := -md/dd, (height-md)/dd
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		lo, hi = t0, t1
	}

	// infinite cylinder
	mp := rl.Vector3Subtract(m, rl.Vector3Scale(axis, md))
	dp := rl.Vector3Subtract(d, rl.Vector3Scale(axis, dd))
	qa := dot(dp, dp)
	qc := dot(mp, mp) - radius*radius
	if qa < epsilon {
		if qc > 0 {
			return 0, 0, false
		}
	} else {
		qb := dot(mp, dp)
		disc := qb*qb - qa*qc
		if disc < 0 {
			return 0, 0, false
		}
		sq := math32.Sqrt(disc)
		lo = max(lo, (-qb-sq)/qa)
		hi = min(hi, (-qb+sq)/qa)
	}
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// rayCapsule treats the capsule as the union of two spheres and a cylinder;
// the union is convex so its chord runs from the earliest entry to the latest exit.
func rayCapsule(seg Segment, a, b rl.Vector3, radius float32) []rayHit {
	enter, exit := float32(math32.MaxFloat32), float32(-math32.MaxFloat32)
	found := false
	grow := func(t0, t1 float32, ok bool) {
		if !ok {
			return
		}
		found = true
		enter = min(enter, t0)
		exit = max(exit, t1)
	}
	grow(sphereInterval(seg, a, radius))
	grow(sphereInterval(seg, b, radius))
	grow(cylinderInterval(seg, a, b, radius))
	if !found {
		return nil
	}
	normalAt := func(t float32) rl.Vector3 {
		p := seg.At(t)
		n, _ := normalizeOr(rl.Vector3Subtract(p, closestPointOnSegment(p, a, b)), rl.Vector3{Y: 1})
		return n
	}
	return clipHits(rayHit{enter, normalAt(enter)}, rayHit{exit, normalAt(exit)})
}

// rayOBB runs the slab test in the box frame.
func rayOBB(seg Segment, o OBB) []rayHit {
	start := o.local(seg.Start)
	end := o.local(seg.End)
	d := rl.Vector3Subtract(end, start)

	enter, exit := float32(-math32.MaxFloat32), float32(math32.MaxFloat32)
	enterAxis, exitAxis := -1, -1
	var enterSign, exitSign float32
	for i := 0; i < 3; i++ {
		s, dir, h := component(start, i), component(d, i), component(o.HalfSize, i)
		if math32.Abs(dir) < epsilon {
			if s < -h || s > h {
				return nil
			}
			continue
		}
		t0, t1 := (-h-s)/dir, (h-s)/dir
		sign := float32(-1)
		if t0 > t1 {
			t0, t1 = t1, t0
			sign = 1
		}
		if t0 > enter {
			enter, enterAxis, enterSign = t0, i, sign
		}
		if t1 < exit {
			exit, exitAxis, exitSign = t1, i, -sign
		}
		if enter > exit {
			return nil
		}
	}
	if enterAxis < 0 || exitAxis < 0 {
		return nil
	}
	return clipHits(
		rayHit{enter, rl.Vector3Scale(o.Axes[enterAxis], enterSign)},
		rayHit{exit, rl.Vector3Scale(o.Axes[exitAxis], exitSign)},
	)
}

// rayConvex clips the segment against every face plane of the hull.
func rayConvex(seg Segment, hull *Hull, cache *ShapeCache) []rayHit {
	d := seg.Delta()
	enter, exit := float32(-math32.MaxFloat32), float32(math32.MaxFloat32)
	enterFace, exitFace := -1, -1

	for i, face := range hull.Faces {
		n := cache.Normals[i]
		p0 := cache.Vertices[face.Indices[0]]
		num := dot(n, rl.Vector3Subtract(p0, seg.Start))
		den := dot(n, d)
		if math32.Abs(den) < epsilon {
			if num < 0 {
				return nil
			}
			continue
		}
		t := num / den
		if den < 0 {
			if t > enter {
				enter, enterFace = t, i
			}
		} else if t < exit {
			exit, exitFace = t, i
		}
		if enter > exit {
			return nil
		}
	}
	if enterFace < 0 || exitFace < 0 {
		return nil
	}
	return clipHits(rayHit{enter, cache.Normals[enterFace]}, rayHit{exit, cache.Normals[exitFace]})
}

// rayMesh tests the triangles under the segment in mesh space and reports
// the nearest and farthest crossings.
func rayMesh(seg Segment, mesh *TriangleMesh, cache *ShapeCache) []rayHit {
	local := Segment{Start: cache.Inverse.Apply(seg.Start), End: cache.Inverse.Apply(seg.End)}
	d := local.Delta()

	var hits []rayHit
	for _, idx := range mesh.Query(local.bounds(), nil) {
		tri := &mesh.Triangles[idx]
		if t, ok := rayTriangle(local.Start, d, tri.V0, tri.V1, tri.V2); ok {
			hits = append(hits, rayHit{t, cache.Transform.ApplyVector(tri.Normal)})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })
	if last := hits[len(hits)-1]; len(hits) > 1 && last.t > hits[0].t {
		return []rayHit{hits[0], last}
	}
	return hits[:1]
}

// rayTriangle is the Möller–Trumbore test, two-sided, limited to t in [0, 1].
func rayTriangle(origin, d, v0, v1, v2 rl.Vector3) (float32, bool) {
	e1 := rl.Vector3Subtract(v1, v0)
	e2 := rl.Vector3Subtract(v2, v0)
	p := cross(d, e2)
	det := dot(e1, p)
	if math32.Abs(det) < epsilon {
		return 0, false
	}
	inv := 1 / det
	s := rl.Vector3Subtract(origin, v0)
	u := dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := cross(s, e1)
	v := dot(d, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := dot(e2, q) * inv
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// RayCast returns the closest hit among enabled bodies whose channel matches mask.
// It builds its own world geometry and may run while the world is idle or stepping.
func (w *PhysicsWorld) RayCast(seg Segment, mask uint32) (RaycastHit, bool) {
	return w.rayCast(seg, mask, w.Bodies())
}

func (w *PhysicsWorld) rayCast(seg Segment, mask uint32, bodies []*PhysicsBody) (RaycastHit, bool) {
	segBounds := seg.bounds()
	var closest RaycastHit
	found := false
	var cache ShapeCache

	for _, body := range bodies {
		channel, _ := body.CollisionFilter()
		if channel&mask == 0 || !body.IsEnabled() {
			continue
		}
		t := body.Transform()
		for i, shape := range body.form.shapes {
			if !shape.AABB(t).Intersects(segBounds) {
				continue
			}
			cache.build(shape, t)
			hits := shape.CastRay(seg, &cache)
			if len(hits) == 0 {
				continue
			}
			if hit := hits[0]; !found || hit.Distance < closest.Distance {
				hit.Body, hit.Shape = body, i
				closest, found = hit, true
			}
		}
	}
	return closest, found
}

// RayCastResult is one entry of a RayCastBatch.
type RayCastResult struct {
	Hit RaycastHit
	OK  bool
}

// RayCastBatch casts every segment, splitting the work across the job queue.
func (w *PhysicsWorld) RayCastBatch(segs []Segment, mask uint32) []RayCastResult {
	bodies := w.Bodies()
	results := make([]RayCastResult, len(segs))
	w.parallelFor(len(segs), 2, func(start, end int) {
		for i := start; i < end; i++ {
			results[i].Hit, results[i].OK = w.rayCast(segs[i], mask, bodies)
		}
	})
	return results
}
