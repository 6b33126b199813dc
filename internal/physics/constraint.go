package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// AxisLock freezes motion along or about individual world axes (X, Y, Z).
type AxisLock struct {
	Linear  [3]bool
	Angular [3]bool
}

// LockRotation returns a lock that keeps a body upright, as a character controller wants.
func LockRotation() AxisLock {
	return AxisLock{Angular: [3]bool{true, true, true}}
}

func (l AxisLock) apply(v, w *rl.Vector3) {
	if l.Linear[0] {
		v.X = 0
	}
	if l.Linear[1] {
		v.Y = 0
	}
	if l.Linear[2] {
		v.Z = 0
	}
	if l.Angular[0] {
		w.X = 0
	}
	if l.Angular[1] {
		w.Y = 0
	}
	if l.Angular[2] {
		w.Z = 0
	}
}
