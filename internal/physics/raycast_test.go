package physics

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigid3d/internal/jobs"
)

func castAt(t *testing.T, s *Shape, tr Transform, seg Segment) []RaycastHit {
	t.Helper()
	ref := refFor(s, tr)
	return s.CastRay(seg, ref.cache)
}

func TestCastRayEntryAndExit(t *testing.T) {
	convex, err := NewConvexShape(boxCorners, boxFaces, 1)
	require.NoError(t, err)

	ground, err := NewMeshShape(
		[]rl.Vector3{{X: -5, Z: -5}, {X: 5, Z: -5}, {X: 5, Z: 5}, {X: -5, Z: 5}},
		[]int{0, 2, 1, 0, 3, 2}, 0)
	require.NoError(t, err)

	alongX := NewRay(rl.Vector3{}, rl.Vector3{X: 1}, 10)
	tests := []struct {
		name        string
		shape       *Shape
		at          Transform
		seg         Segment
		distances   []float32
		entryNormal rl.Vector3
	}{
		{"sphere", NewSphereShape(1, 1), at(5, 0, 0), alongX, []float32{4, 6}, rl.Vector3{X: -1}},
		{"box", NewOBBShape(rl.Vector3{X: 1, Y: 1, Z: 1}, 1), at(5, 0, 0), alongX, []float32{4, 6}, rl.Vector3{X: -1}},
		{"convex", convex, at(5, 0, 0), alongX, []float32{4, 6}, rl.Vector3{X: -1}},
		{"capsule side", NewCapsuleShape(rl.Vector3{Y: -1}, rl.Vector3{Y: 1}, 0.5, 1), at(5, 0, 0), alongX, []float32{4.5, 5.5}, rl.Vector3{X: -1}},
		{"capsule axis", NewCapsuleShape(rl.Vector3{Y: -1}, rl.Vector3{Y: 1}, 0.5, 1), at(0, 0, 0),
			NewRay(rl.Vector3{Y: -5}, rl.Vector3{Y: 1}, 10), []float32{3.5, 6.5}, rl.Vector3{Y: -1}},
		{"plane", NewPlaneShape(rl.Vector3{Y: 1}, 0), at(0, 0, 0),
			NewRay(rl.Vector3{Y: 5}, rl.Vector3{Y: -1}, 10), []float32{5}, rl.Vector3{Y: 1}},
		{"mesh", ground, at(0, 0, 0),
			NewRay(rl.Vector3{X: 0.2, Y: 5, Z: 0.3}, rl.Vector3{Y: -1}, 10), []float32{5}, rl.Vector3{Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := castAt(t, tt.shape, tt.at, tt.seg)
			require.Len(t, hits, len(tt.distances))
			for i, want := range tt.distances {
				assert.InDelta(t, want, hits[i].Distance, 1e-4)
			}
			assertVec(t, tt.entryNormal, hits[0].Normal, 1e-4)
			assertVec(t, tt.seg.At(hits[0].Distance/tt.seg.Length()), hits[0].Point, 1e-4)
		})
	}
}

func TestCastRayFromInsideReportsExit(t *testing.T) {
	hits := castAt(t, NewSphereShape(1, 1), at(0, 0, 5), NewRay(rl.Vector3{Z: 5}, rl.Vector3{Z: 1}, 10))
	require.Len(t, hits, 1)
	assert.InDelta(t, 1, hits[0].Distance, 1e-5)
	assertVec(t, rl.Vector3{Z: 1}, hits[0].Normal, 1e-5)
}

func TestCastRayMiss(t *testing.T) {
	sphere := NewSphereShape(1, 1)
	assert.Empty(t, castAt(t, sphere, at(5, 0, 0), NewRay(rl.Vector3{}, rl.Vector3{X: 1}, 3)))
	assert.Empty(t, castAt(t, sphere, at(5, 3, 0), NewRay(rl.Vector3{}, rl.Vector3{X: 1}, 10)))
	assert.Empty(t, castAt(t, NewOBBShape(rl.Vector3{X: 1, Y: 1, Z: 1}, 1), at(5, 0, 0), NewRay(rl.Vector3{}, rl.Vector3{X: -1}, 10)))
}

func TestCastRayRotatedBox(t *testing.T) {
	box := NewOBBShape(rl.Vector3{X: 2, Y: 1, Z: 1}, 1)
	tr := Transform{Position: rl.Vector3{X: 5}, Rotation: rl.QuaternionFromAxisAngle(rl.Vector3{Z: 1}, 3.14159265/2)}

	// rotated a quarter turn about Z the long axis points along Y
	hits := castAt(t, box, tr, NewRay(rl.Vector3{}, rl.Vector3{X: 1}, 10))
	require.Len(t, hits, 2)
	assert.InDelta(t, 4, hits[0].Distance, 1e-4)
	assert.InDelta(t, 6, hits[1].Distance, 1e-4)

	hits = castAt(t, box, tr, NewRay(rl.Vector3{X: 5, Y: -10}, rl.Vector3{Y: 1}, 20))
	require.Len(t, hits, 2)
	assert.InDelta(t, 8, hits[0].Distance, 1e-4)
}

func TestWorldRayCastClosestAndMask(t *testing.T) {
	w := newTestWorld(t, zeroGravity)
	form := sphereForm(t, w, 1)
	near, _ := spawn(t, w, form, rl.Vector3{X: 5}, MotionStatic)
	far, _ := spawn(t, w, form, rl.Vector3{X: 10}, MotionDynamic)

	ray := NewRay(rl.Vector3{}, rl.Vector3{X: 1}, 20)
	hit, ok := w.RayCast(ray, AllChannels)
	require.True(t, ok)
	assert.Same(t, near, hit.Body)
	assert.InDelta(t, 4, hit.Distance, 1e-4)

	near.SetCollisionFilter(2, AllChannels)
	hit, ok = w.RayCast(ray, 1)
	require.True(t, ok)
	assert.Same(t, far, hit.Body)

	far.SetEnabled(false)
	_, ok = w.RayCast(ray, 1)
	assert.False(t, ok)
}

func TestRayCastBatchMatchesSingle(t *testing.T) {
	queue := jobs.NewQueue(4)
	defer queue.Close()
	w, err := NewPhysicsWorld(DefaultConfig(), queue)
	require.NoError(t, err)

	form := sphereForm(t, w, 0.5)
	for i := range 8 {
		spawn(t, w, form, rl.Vector3{X: float32(i) * 2, Y: 3}, MotionStatic)
	}

	segs := make([]Segment, 32)
	for i := range segs {
		segs[i] = NewRay(rl.Vector3{X: float32(i) * 0.5, Y: 10}, rl.Vector3{Y: -1}, 20)
	}
	results := w.RayCastBatch(segs, AllChannels)
	require.Len(t, results, len(segs))
	for i, seg := range segs {
		hit, ok := w.RayCast(seg, AllChannels)
		assert.Equal(t, ok, results[i].OK, "segment %d", i)
		if ok {
			assert.Same(t, hit.Body, results[i].Hit.Body)
			assert.Equal(t, hit.Distance, results[i].Hit.Distance)
		}
	}
	assert.True(t, results[0].OK)
	assert.False(t, results[2].OK)
}
