package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Mesh pairs run in the mesh's local space: the other shape is moved into it,
// each overlapping triangle is collided on its own and the best triangle's
// manifold is mapped back to world space.

func collideSphereMesh(a, b shapeRef, m *Manifold) {
	mesh := b.shape.mesh
	center := b.cache.Inverse.Apply(a.cache.Center)
	r := a.cache.Radius

	var candidates [64]int
	found := mesh.Query(NewAABBFromCenter(center, rl.Vector3{X: r, Y: r, Z: r}), candidates[:0])

	var best Manifold
	for _, idx := range found {
		tri := &mesh.Triangles[idx]
		var local Manifold
		addSphereSurfaceContact(center, r, closestPointOnTriangle(center, tri.V0, tri.V1, tri.V2), &local)
		if betterTriangle(&local, &best) {
			best = local
		}
	}

	best.Transform(b.cache.Transform)
	appendManifold(m, &best)
}

func collideHullMesh(a, b shapeRef, m *Manifold) {
	mesh := b.shape.mesh
	inv := b.cache.Inverse

	vertices := make([]rl.Vector3, len(a.cache.Vertices))
	for i, v := range a.cache.Vertices {
		vertices[i] = inv.Apply(v)
	}
	normals := make([]rl.Vector3, len(a.cache.Normals))
	for i, n := range a.cache.Normals {
		normals[i] = inv.ApplyVector(n)
	}
	hull := hullView{hull: a.shape.hull, vertices: vertices, normals: normals, center: inv.Apply(a.cache.Center)}

	bounds := EmptyAABB()
	for _, v := range vertices {
		bounds = bounds.Include(v)
	}

	var candidates [64]int
	var triVerts [3]rl.Vector3
	var triNormals [2]rl.Vector3
	var best Manifold
	for _, idx := range mesh.Query(bounds, candidates[:0]) {
		tri := triangleView(&mesh.Triangles[idx], &triVerts, &triNormals)
		var local Manifold
		collideHulls(&hull, &tri, &local)
		if betterTriangle(&local, &best) {
			best = local
		}
	}

	best.Transform(b.cache.Transform)
	appendManifold(m, &best)
}

func collideCapsuleMesh(a, b shapeRef, m *Manifold) {
	mesh := b.shape.mesh
	inv := b.cache.Inverse
	p := inv.Apply(a.cache.PointA)
	q := inv.Apply(a.cache.PointB)
	r := a.cache.Radius

	var candidates [64]int
	var triVerts [3]rl.Vector3
	var triNormals [2]rl.Vector3
	var best Manifold
	bounds := EmptyAABB().Include(p).Include(q).Expand(r)
	for _, idx := range mesh.Query(bounds, candidates[:0]) {
		tri := triangleView(&mesh.Triangles[idx], &triVerts, &triNormals)
		var local Manifold
		collideHullSegment(&tri, p, q, r, &local)
		if betterTriangle(&local, &best) {
			best = local
		}
	}

	// triangle-to-capsule normals become capsule-to-mesh normals
	best.Flip()
	best.Transform(b.cache.Transform)
	appendManifold(m, &best)
}

// betterTriangle prefers the triangle with more contact points, then the deeper one.
func betterTriangle(candidate, best *Manifold) bool {
	if candidate.Count == 0 {
		return false
	}
	if candidate.Count != best.Count {
		return candidate.Count > best.Count
	}
	return candidate.Deepest() > best.Deepest()
}

func appendManifold(dst, src *Manifold) {
	for i := 0; i < src.Count; i++ {
		dst.Add(src.Points[i])
	}
}
