package physics

import (
	"testing"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(x, y, z float32) Transform {
	return Transform{Position: rl.Vector3{X: x, Y: y, Z: z}, Rotation: rl.QuaternionIdentity()}
}

func refFor(s *Shape, t Transform) shapeRef {
	c := &ShapeCache{}
	c.build(s, t)
	return shapeRef{shape: s, cache: c}
}

func assertVec(t *testing.T, want, got rl.Vector3, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestFaceQuerySeparation(t *testing.T) {
	box := NewOBBShape(rl.Vector3{X: 1, Y: 1, Z: 1}, 1)

	tests := []struct {
		name     string
		distance float32
		want     float32
	}{
		{"apart", 3, 1},
		{"touching", 2, 0},
		{"overlapping", 1.5, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := refFor(box, at(0, 0, 0))
			b := refFor(box, at(tt.distance, 0, 0))
			va, vb := viewFromCache(box, a.cache), viewFromCache(box, b.cache)

			q := queryFaceDirections(&va, &vb)
			assert.InDelta(t, tt.want, q.separation, 1e-5)
			assertVec(t, rl.Vector3{X: 1}, va.normals[q.index], 1e-5)
		})
	}
}

func TestCollideHullsSeparated(t *testing.T) {
	box := NewOBBShape(rl.Vector3{X: 1, Y: 1, Z: 1}, 1)
	a := refFor(box, at(0, 0, 0))
	b := refFor(box, at(0, 2.5, 0))
	va, vb := viewFromCache(box, a.cache), viewFromCache(box, b.cache)

	var m Manifold
	assert.False(t, collideHulls(&va, &vb, &m))
	assert.Zero(t, m.Count)
}

func TestBoxStackFaceContact(t *testing.T) {
	d := NewCollisionDispatcher()
	box := NewOBBShape(rl.Vector3{X: 1, Y: 1, Z: 1}, 1)

	contact, ok := d.CollideShapes(refFor(box, at(0, 0, 0)), refFor(box, at(0, 1.8, 0)))
	require.True(t, ok)
	assert.InDelta(t, 0.2, contact.Depth, 1e-4)
	assertVec(t, rl.Vector3{Y: 1}, contact.Normal, 1e-5)
	assertVec(t, rl.Vector3{Y: 1}, contact.PositionA, 1e-4)
	assertVec(t, rl.Vector3{Y: 0.8}, contact.PositionB, 1e-4)
}

func TestBoxBoxDeterministic(t *testing.T) {
	d := NewCollisionDispatcher()
	box := NewOBBShape(rl.Vector3{X: 1, Y: 0.5, Z: 0.75}, 1)
	tb := Transform{
		Position: rl.Vector3{X: 0.3, Y: 0.9, Z: -0.2},
		Rotation: rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, math32.Pi/6),
	}

	first, ok := d.CollideShapes(refFor(box, at(0, 0, 0)), refFor(box, tb))
	require.True(t, ok)
	assert.Greater(t, first.Depth, float32(0))
	assert.Greater(t, first.Normal.Y, float32(0.9))

	for range 10 {
		again, ok := d.CollideShapes(refFor(box, at(0, 0, 0)), refFor(box, tb))
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestSphereSphere(t *testing.T) {
	d := NewCollisionDispatcher()
	contact, ok := d.CollideShapes(
		refFor(NewSphereShape(1, 1), at(0, 0, 0)),
		refFor(NewSphereShape(2, 1), at(2.5, 0, 0)),
	)
	require.True(t, ok)
	assert.InDelta(t, 0.5, contact.Depth, 1e-5)
	assertVec(t, rl.Vector3{X: 1}, contact.Normal, 1e-6)
	assertVec(t, rl.Vector3{X: 1}, contact.PositionA, 1e-5)
	assertVec(t, rl.Vector3{X: 0.5}, contact.PositionB, 1e-5)

	_, ok = d.CollideShapes(
		refFor(NewSphereShape(1, 1), at(0, 0, 0)),
		refFor(NewSphereShape(2, 1), at(3.5, 0, 0)),
	)
	assert.False(t, ok)
}

func TestPlaneSphereBothOrders(t *testing.T) {
	d := NewCollisionDispatcher()
	plane := refFor(NewPlaneShape(rl.Vector3{Y: 1}, 0), at(0, 0, 0))
	sphere := refFor(NewSphereShape(1, 1), at(0, 0.5, 0))

	contact, ok := d.CollideShapes(plane, sphere)
	require.True(t, ok)
	assert.InDelta(t, 0.5, contact.Depth, 1e-6)
	assertVec(t, rl.Vector3{Y: 1}, contact.Normal, 1e-6)
	assertVec(t, rl.Vector3{}, contact.PositionA, 1e-6)
	assertVec(t, rl.Vector3{Y: -0.5}, contact.PositionB, 1e-6)

	mirrored, ok := d.CollideShapes(sphere, plane)
	require.True(t, ok)
	assert.Equal(t, contact.Depth, mirrored.Depth)
	assertVec(t, rl.Vector3{Y: -1}, mirrored.Normal, 1e-6)
	assert.Equal(t, contact.PositionA, mirrored.PositionB)
}

func TestSphereOBB(t *testing.T) {
	d := NewCollisionDispatcher()
	box := refFor(NewOBBShape(rl.Vector3{X: 1, Y: 1, Z: 1}, 1), at(0, 0, 0))

	t.Run("outside", func(t *testing.T) {
		contact, ok := d.CollideShapes(refFor(NewSphereShape(0.5, 1), at(0, 1.3, 0)), box)
		require.True(t, ok)
		assert.InDelta(t, 0.2, contact.Depth, 1e-5)
		assertVec(t, rl.Vector3{Y: -1}, contact.Normal, 1e-5)
		assertVec(t, rl.Vector3{Y: 1}, contact.PositionB, 1e-5)
	})

	t.Run("centre inside", func(t *testing.T) {
		contact, ok := d.CollideShapes(refFor(NewSphereShape(0.5, 1), at(0.8, 0, 0)), box)
		require.True(t, ok)
		assert.InDelta(t, 0.7, contact.Depth, 1e-5)
		assertVec(t, rl.Vector3{X: -1}, contact.Normal, 1e-5)
	})
}

func TestPlaneBoxRestingCorners(t *testing.T) {
	d := NewCollisionDispatcher()
	plane := refFor(NewPlaneShape(rl.Vector3{Y: 1}, 0), at(0, 0, 0))
	box := refFor(NewOBBShape(rl.Vector3{X: 1, Y: 1, Z: 1}, 1), at(0, 0.9, 0))

	contact, ok := d.CollideShapes(plane, box)
	require.True(t, ok)
	assert.InDelta(t, 0.1, contact.Depth, 1e-5)
	assertVec(t, rl.Vector3{Y: -0.1}, contact.PositionB, 1e-5)
	assertVec(t, rl.Vector3{}, contact.PositionA, 1e-5)
}

func TestCapsuleCapsuleCrossing(t *testing.T) {
	d := NewCollisionDispatcher()
	a := refFor(NewCapsuleShape(rl.Vector3{X: -1}, rl.Vector3{X: 1}, 0.5, 1), at(0, 0, 0))
	b := refFor(NewCapsuleShape(rl.Vector3{Z: -1}, rl.Vector3{Z: 1}, 0.5, 1), at(0, 0.8, 0))

	contact, ok := d.CollideShapes(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.2, contact.Depth, 1e-5)
	assertVec(t, rl.Vector3{Y: 1}, contact.Normal, 1e-5)
}

func TestManifoldReduce(t *testing.T) {
	var m Manifold
	_, ok := m.Reduce()
	assert.False(t, ok)

	m.Add(ContactPoint{PositionA: rl.Vector3{X: 1}, PositionB: rl.Vector3{X: 1}, Depth: 0.1, Normal: rl.Vector3{Y: 1}})
	m.Add(ContactPoint{PositionA: rl.Vector3{X: -1}, PositionB: rl.Vector3{X: -1}, Depth: 0.3, Normal: rl.Vector3{Z: 1}})

	out, ok := m.Reduce()
	require.True(t, ok)
	assert.Equal(t, float32(0.3), out.Depth)
	assert.Equal(t, rl.Vector3{Z: 1}, out.Normal)
	assert.Equal(t, rl.Vector3{}, out.PositionA)
}

func TestManifoldKeepsDeepestWhenFull(t *testing.T) {
	var m Manifold
	for i := range maxManifoldPoints {
		m.Add(ContactPoint{Depth: float32(i + 1)})
	}
	m.Add(ContactPoint{Depth: 0.5})
	assert.Equal(t, float32(maxManifoldPoints), m.Deepest())

	m.Add(ContactPoint{Depth: 100})
	assert.Equal(t, maxManifoldPoints, m.Count)
	assert.Equal(t, float32(100), m.Deepest())
}

func turned(x, y, z float32, axis rl.Vector3, angle float32) Transform {
	return Transform{Position: rl.Vector3{X: x, Y: y, Z: z}, Rotation: rl.QuaternionFromAxisAngle(axis, angle)}
}

func unitCube(t *testing.T) *Shape {
	t.Helper()
	s, err := NewConvexShapeFromPoints(cubePoints(), 0, 1)
	require.NoError(t, err)
	return s
}

// floorMesh is an 8x8 quad in the XZ plane split along its x == z diagonal.
func floorMesh(t *testing.T) *Shape {
	t.Helper()
	s, err := NewMeshShape([]rl.Vector3{
		{X: -4, Z: -4}, {X: 4, Z: -4}, {X: 4, Z: 4}, {X: -4, Z: 4},
	}, []int{0, 3, 2, 0, 2, 1}, 0)
	require.NoError(t, err)
	return s
}

func TestNarrowPhasePairs(t *testing.T) {
	d := NewCollisionDispatcher()
	half := rl.Vector3{X: 1, Y: 1, Z: 1}
	top := math32.Sqrt2

	tests := []struct {
		name   string
		a, b   func(t *testing.T) shapeRef
		depth  float32
		normal rl.Vector3
		posA   rl.Vector3
		posB   rl.Vector3
	}{
		{
			name: "crossed box edges",
			a: func(*testing.T) shapeRef {
				return refFor(NewOBBShape(half, 1), turned(0, 0, 0, rl.Vector3{Z: 1}, math32.Pi/4))
			},
			b: func(*testing.T) shapeRef {
				return refFor(NewOBBShape(half, 1), turned(0, 2*top-0.1, 0, rl.Vector3{X: 1}, math32.Pi/4))
			},
			depth:  0.1,
			normal: rl.Vector3{Y: 1},
			posA:   rl.Vector3{Y: top},
			posB:   rl.Vector3{Y: top - 0.1},
		},
		{
			name: "capsule lying on box face",
			a:    func(*testing.T) shapeRef { return refFor(NewOBBShape(half, 1), at(0, 0, 0)) },
			b: func(*testing.T) shapeRef {
				return refFor(NewCapsuleShape(rl.Vector3{X: -0.5}, rl.Vector3{X: 0.5}, 0.5, 1), at(0, 1.3, 0))
			},
			depth:  0.2,
			normal: rl.Vector3{Y: 1},
			posA:   rl.Vector3{Y: 1},
			posB:   rl.Vector3{Y: 0.8},
		},
		{
			name: "box under capsule",
			a: func(*testing.T) shapeRef {
				return refFor(NewCapsuleShape(rl.Vector3{X: -0.5}, rl.Vector3{X: 0.5}, 0.5, 1), at(0, 1.3, 0))
			},
			b:      func(*testing.T) shapeRef { return refFor(NewOBBShape(half, 1), at(0, 0, 0)) },
			depth:  0.2,
			normal: rl.Vector3{Y: -1},
			posA:   rl.Vector3{Y: 0.8},
			posB:   rl.Vector3{Y: 1},
		},
		{
			name: "capsule across box edge",
			a: func(*testing.T) shapeRef {
				return refFor(NewOBBShape(half, 1), turned(0, 0, 0, rl.Vector3{Z: 1}, math32.Pi/4))
			},
			b: func(*testing.T) shapeRef {
				return refFor(NewCapsuleShape(rl.Vector3{X: -1}, rl.Vector3{X: 1}, 0.5, 1), at(0, top+0.3, 0))
			},
			depth:  0.2,
			normal: rl.Vector3{Y: 1},
			posA:   rl.Vector3{Y: top},
			posB:   rl.Vector3{Y: top - 0.2},
		},
		{
			name: "capsule on convex face",
			a:    func(t *testing.T) shapeRef { return refFor(unitCube(t), at(0, 0, 0)) },
			b: func(*testing.T) shapeRef {
				return refFor(NewCapsuleShape(rl.Vector3{Z: -0.5}, rl.Vector3{Z: 0.5}, 0.5, 1), at(1.4, 0, 0))
			},
			depth:  0.1,
			normal: rl.Vector3{X: 1},
			posA:   rl.Vector3{X: 1},
			posB:   rl.Vector3{X: 0.9},
		},
		{
			name: "sphere above convex",
			a: func(*testing.T) shapeRef {
				return refFor(NewSphereShape(0.5, 1), at(0, 1.3, 0))
			},
			b:      func(t *testing.T) shapeRef { return refFor(unitCube(t), at(0, 0, 0)) },
			depth:  0.2,
			normal: rl.Vector3{Y: -1},
			posA:   rl.Vector3{Y: 0.8},
			posB:   rl.Vector3{Y: 1},
		},
		{
			name: "sphere centre inside convex",
			a: func(*testing.T) shapeRef {
				return refFor(NewSphereShape(0.5, 1), at(0.8, 0, 0))
			},
			b:      func(t *testing.T) shapeRef { return refFor(unitCube(t), at(0, 0, 0)) },
			depth:  0.7,
			normal: rl.Vector3{X: -1},
			posA:   rl.Vector3{X: 0.3},
			posB:   rl.Vector3{X: 1},
		},
		{
			name: "sphere on convex edge",
			a: func(*testing.T) shapeRef {
				return refFor(NewSphereShape(0.5, 1), at(1.3, 1.3, 0))
			},
			b:      func(t *testing.T) shapeRef { return refFor(unitCube(t), at(0, 0, 0)) },
			depth:  0.5 - 0.3*top,
			normal: rl.Vector3{X: -1 / top, Y: -1 / top},
			posA:   rl.Vector3{X: 1.3 - 0.5/top, Y: 1.3 - 0.5/top},
			posB:   rl.Vector3{X: 1, Y: 1},
		},
		{
			name: "sphere on moved mesh",
			a: func(*testing.T) shapeRef {
				return refFor(NewSphereShape(0.5, 1), at(0.5, -0.7, 0.2))
			},
			b:      func(t *testing.T) shapeRef { return refFor(floorMesh(t), at(0, -1, 0)) },
			depth:  0.2,
			normal: rl.Vector3{Y: -1},
			posA:   rl.Vector3{X: 0.5, Y: -1.2, Z: 0.2},
			posB:   rl.Vector3{X: 0.5, Y: -1, Z: 0.2},
		},
		{
			name: "box resting in mesh",
			a: func(*testing.T) shapeRef {
				return refFor(NewOBBShape(rl.Vector3{X: 0.5, Y: 0.5, Z: 0.5}, 1), at(1, 0.4, -1))
			},
			b:      func(t *testing.T) shapeRef { return refFor(floorMesh(t), at(0, 0, 0)) },
			depth:  0.1,
			normal: rl.Vector3{Y: -1},
			posA:   rl.Vector3{X: 1, Y: -0.1, Z: -1},
			posB:   rl.Vector3{X: 1, Z: -1},
		},
		{
			name: "mesh under convex",
			a:    func(t *testing.T) shapeRef { return refFor(floorMesh(t), at(0, -0.9, 0)) },
			b: func(t *testing.T) shapeRef {
				return refFor(unitCube(t), at(2, 0, -2))
			},
			depth:  0.1,
			normal: rl.Vector3{Y: 1},
			posA:   rl.Vector3{X: 2, Y: -0.9, Z: -2},
			posB:   rl.Vector3{X: 2, Y: -1, Z: -2},
		},
		{
			name: "capsule lying in mesh",
			a: func(*testing.T) shapeRef {
				return refFor(NewCapsuleShape(rl.Vector3{X: -0.5}, rl.Vector3{X: 0.5}, 0.5, 1), at(1, 0.3, -1))
			},
			b:      func(t *testing.T) shapeRef { return refFor(floorMesh(t), at(0, 0, 0)) },
			depth:  0.2,
			normal: rl.Vector3{Y: -1},
			posA:   rl.Vector3{X: 1, Y: -0.2, Z: -1},
			posB:   rl.Vector3{X: 1, Z: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contact, ok := d.CollideShapes(tt.a(t), tt.b(t))
			require.True(t, ok)
			assert.InDelta(t, tt.depth, contact.Depth, 1e-3)
			assertVec(t, tt.normal, contact.Normal, 1e-3)
			assertVec(t, tt.posA, contact.PositionA, 1e-3)
			assertVec(t, tt.posB, contact.PositionB, 1e-3)
		})
	}
}

func TestNarrowPhaseSeparatedPairs(t *testing.T) {
	d := NewCollisionDispatcher()
	half := rl.Vector3{X: 1, Y: 1, Z: 1}
	capsule := NewCapsuleShape(rl.Vector3{X: -0.5}, rl.Vector3{X: 0.5}, 0.5, 1)

	tests := []struct {
		name string
		a, b shapeRef
	}{
		{
			"box edges apart",
			refFor(NewOBBShape(half, 1), turned(0, 0, 0, rl.Vector3{Z: 1}, math32.Pi/4)),
			refFor(NewOBBShape(half, 1), turned(0, 2*math32.Sqrt2+0.1, 0, rl.Vector3{X: 1}, math32.Pi/4)),
		},
		{"capsule above box", refFor(NewOBBShape(half, 1), at(0, 0, 0)), refFor(capsule, at(0, 1.6, 0))},
		{"sphere beside convex", refFor(NewSphereShape(0.5, 1), at(0, 2, 0)), refFor(unitCube(t), at(0, 0, 0))},
		{"sphere above mesh", refFor(NewSphereShape(0.5, 1), at(0, 0.6, 0)), refFor(floorMesh(t), at(0, 0, 0))},
		{"capsule off mesh edge", refFor(capsule, at(6, 0, 0)), refFor(floorMesh(t), at(0, 0, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := d.CollideShapes(tt.a, tt.b)
			assert.False(t, ok)
		})
	}
}

func TestUnsupportedPairsReportNoContact(t *testing.T) {
	d := NewCollisionDispatcher()
	mesh := refFor(floorMesh(t), at(0, 0, 0))
	plane := refFor(NewPlaneShape(rl.Vector3{Y: 1}, 0), at(0, 0, 0))

	tests := []struct {
		name string
		a, b shapeRef
	}{
		{"mesh mesh", mesh, refFor(floorMesh(t), at(0, 0, 0))},
		{"plane mesh", plane, mesh},
		{"mesh plane", mesh, plane},
		{"plane plane", plane, plane},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, d.Supports(tt.a.shape.Kind(), tt.b.shape.Kind()))
			// the second call takes the already-logged path
			for range 2 {
				contact, ok := d.CollideShapes(tt.a, tt.b)
				assert.False(t, ok)
				assert.Equal(t, ContactPoint{}, contact)
			}
		})
	}
}

func TestBetterTriangle(t *testing.T) {
	manifold := func(depths ...float32) *Manifold {
		m := &Manifold{}
		for _, d := range depths {
			m.Add(ContactPoint{Depth: d})
		}
		return m
	}

	tests := []struct {
		name            string
		candidate, best *Manifold
		want            bool
	}{
		{"empty candidate", manifold(), manifold(), false},
		{"first hit", manifold(0.1), manifold(), true},
		{"more points", manifold(0.1, 0.1), manifold(0.5), true},
		{"fewer points", manifold(0.5), manifold(0.1, 0.1), false},
		{"deeper", manifold(0.3), manifold(0.2), true},
		{"tie keeps best", manifold(0.2), manifold(0.2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, betterTriangle(tt.candidate, tt.best))
		})
	}
}

func TestClampf(t *testing.T) {
	assert.Equal(t, float32(0), clampf(-1, 0, 1))
	assert.Equal(t, float32(1), clampf(2, 0, 1))
	assert.Equal(t, float32(0.25), clampf(0.25, 0, 1))
	assert.Equal(t, float32(-2), clampf(-2, -2, -2))
}
