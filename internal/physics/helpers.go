package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-6

// cross computes the cross product of two vectors
func cross(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func dot(a, b rl.Vector3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeOr returns v normalized and its length, or fallback when v is too short to normalize.
func normalizeOr(v, fallback rl.Vector3) (rl.Vector3, float32) {
	length := rl.Vector3Length(v)
	if length < epsilon {
		return fallback, length
	}
	return rl.Vector3Scale(v, 1/length), length
}

// perpendicularBasis builds two unit tangents orthogonal to the unit normal n.
func perpendicularBasis(n rl.Vector3) (rl.Vector3, rl.Vector3) {
	var t1 rl.Vector3
	if math32.Abs(n.X) >= 0.57735 {
		t1 = rl.Vector3{X: n.Y, Y: -n.X, Z: 0}
	} else {
		t1 = rl.Vector3{X: 0, Y: n.Z, Z: -n.Y}
	}
	t1 = rl.Vector3Normalize(t1)
	return t1, cross(n, t1)
}

func component(v rl.Vector3, axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Transform is a rigid transform: rotate, then translate.
type Transform struct {
	Position rl.Vector3
	Rotation rl.Quaternion
}

// IdentityTransform returns the transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{Rotation: rl.QuaternionIdentity()}
}

// Apply maps a local point into the transform's parent space.
func (t Transform) Apply(p rl.Vector3) rl.Vector3 {
	return rl.Vector3Add(rl.Vector3RotateByQuaternion(p, t.Rotation), t.Position)
}

// ApplyVector rotates a direction without translating it.
func (t Transform) ApplyVector(v rl.Vector3) rl.Vector3 {
	return rl.Vector3RotateByQuaternion(v, t.Rotation)
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := rl.QuaternionInvert(t.Rotation)
	return Transform{
		Position: rl.Vector3RotateByQuaternion(rl.Vector3Negate(t.Position), inv),
		Rotation: inv,
	}
}

// Mul composes t with o so that the result applies o first.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Position: t.Apply(o.Position),
		Rotation: rl.QuaternionNormalize(rl.QuaternionMultiply(t.Rotation, o.Rotation)),
	}
}

// Axes returns the rotated X, Y and Z unit axes.
func (t Transform) Axes() [3]rl.Vector3 {
	return [3]rl.Vector3{
		t.ApplyVector(rl.Vector3{X: 1}),
		t.ApplyVector(rl.Vector3{Y: 1}),
		t.ApplyVector(rl.Vector3{Z: 1}),
	}
}

func toMgl(v rl.Vector3) mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

func fromMgl(v mgl32.Vec3) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}

func rotationMatrix(q rl.Quaternion) mgl32.Mat3 {
	x := rl.Vector3RotateByQuaternion(rl.Vector3{X: 1}, q)
	y := rl.Vector3RotateByQuaternion(rl.Vector3{Y: 1}, q)
	z := rl.Vector3RotateByQuaternion(rl.Vector3{Z: 1}, q)
	return mgl32.Mat3FromCols(toMgl(x), toMgl(y), toMgl(z))
}

// worldInverseInertia rotates a local inverse inertia tensor into world space.
func worldInverseInertia(local mgl32.Mat3, q rl.Quaternion) mgl32.Mat3 {
	r := rotationMatrix(q)
	return r.Mul3(local).Mul3(r.Transpose())
}

func mulMat3(m mgl32.Mat3, v rl.Vector3) rl.Vector3 {
	return fromMgl(m.Mul3x1(toMgl(v)))
}
