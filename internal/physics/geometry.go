package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// closestPointOnSegment returns the point of segment a-b nearest to p.
func closestPointOnSegment(p, a, b rl.Vector3) rl.Vector3 {
	ab := rl.Vector3Subtract(b, a)
	lengthSq := dot(ab, ab)
	if lengthSq < epsilon*epsilon {
		return a
	}
	t := clampf(dot(rl.Vector3Subtract(p, a), ab)/lengthSq, 0, 1)
	return rl.Vector3Add(a, rl.Vector3Scale(ab, t))
}

// closestPointsSegmentSegment returns the nearest points c1 on p1-q1 and c2 on p2-q2.
// Degenerate segments collapse to points.
func closestPointsSegmentSegment(p1, q1, p2, q2 rl.Vector3) (rl.Vector3, rl.Vector3) {
	d1 := rl.Vector3Subtract(q1, p1)
	d2 := rl.Vector3Subtract(q2, p2)
	r := rl.Vector3Subtract(p1, p2)
	a := dot(d1, d1)
	e := dot(d2, d2)
	f := dot(d2, r)

	var s, t float32
	switch {
	case a <= epsilon && e <= epsilon:
		return p1, p2
	case a <= epsilon:
		t = clampf(f/e, 0, 1)
	default:
		c := dot(d1, r)
		if e <= epsilon {
			s = clampf(-c/a, 0, 1)
		} else {
			b := dot(d1, d2)
			denom := a*e - b*b
			if denom > epsilon {
				s = clampf((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clampf(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = clampf((b-c)/a, 0, 1)
			}
		}
	}

	return rl.Vector3Add(p1, rl.Vector3Scale(d1, s)), rl.Vector3Add(p2, rl.Vector3Scale(d2, t))
}

// closestPointOnTriangle finds the closest point on a triangle to point p
func closestPointOnTriangle(p, a, b, c rl.Vector3) rl.Vector3 {
	ab := rl.Vector3Subtract(b, a)
	ac := rl.Vector3Subtract(c, a)
	ap := rl.Vector3Subtract(p, a)

	d1 := dot(ab, ap)
	d2 := dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := rl.Vector3Subtract(p, b)
	d3 := dot(ab, bp)
	d4 := dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return rl.Vector3Add(a, rl.Vector3Scale(ab, v))
	}

	cp := rl.Vector3Subtract(p, c)
	d5 := dot(ab, cp)
	d6 := dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return rl.Vector3Add(a, rl.Vector3Scale(ac, w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return rl.Vector3Add(b, rl.Vector3Scale(rl.Vector3Subtract(c, b), w))
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return rl.Vector3Add(a, rl.Vector3Add(rl.Vector3Scale(ab, v), rl.Vector3Scale(ac, w)))
}

// closestPointOnPolygon returns the point of a convex planar polygon nearest to p.
func closestPointOnPolygon(p rl.Vector3, poly []rl.Vector3) rl.Vector3 {
	best := poly[0]
	bestDist := float32(math32.MaxFloat32)
	for i := 1; i+1 < len(poly); i++ {
		q := closestPointOnTriangle(p, poly[0], poly[i], poly[i+1])
		if d := rl.Vector3LengthSqr(rl.Vector3Subtract(q, p)); d < bestDist {
			best, bestDist = q, d
		}
	}
	return best
}
