package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ValidateRing turns a raw coordinate list into a well-formed polygon
// ring. The ring is closed if the first and last points differ.
// Candidates with fewer than 3 distinct points, zero area, or
// self-intersections are rejected. Returns the closed ring and whether
// it was accepted. Rejections are not errors: malformed ways are
// expected noise in the source data.
func ValidateRing(coords []orb.Point) (orb.Ring, bool) {
	if len(coords) < 3 {
		return nil, false
	}

	ring := make(orb.Ring, len(coords))
	copy(ring, coords)
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	if countDistinct(ring) < 3 {
		return nil, false
	}
	if math.Abs(planar.Area(ring)) == 0 {
		return nil, false
	}
	if ringSelfIntersects(ring) {
		return nil, false
	}
	return ring, true
}

// countDistinct counts unique vertices, ignoring the closing duplicate.
func countDistinct(ring orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring[:len(ring)-1] {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// ringSelfIntersects reports whether any two non-adjacent edges of the
// closed ring cross. O(n²), which is fine for tank footprints (rarely
// more than a few dozen vertices).
func ringSelfIntersects(ring orb.Ring) bool {
	m := len(ring) - 1 // edge count
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			// Skip edges sharing a vertex, including the wrap-around pair.
			if j == i+1 || (i == 0 && j == m-1) {
				continue
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(a, b, c, d orb.Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}

	// Collinear cases: endpoint lying on the other segment.
	if o1 == 0 && onSegment(a, c, b) {
		return true
	}
	if o2 == 0 && onSegment(a, d, b) {
		return true
	}
	if o3 == 0 && onSegment(c, a, d) {
		return true
	}
	if o4 == 0 && onSegment(c, b, d) {
		return true
	}
	return false
}

// orientation returns 0 for collinear points, 1 for clockwise turns,
// and -1 for counter-clockwise turns.
func orientation(p, q, r orb.Point) int {
	v := (q[1]-p[1])*(r[0]-q[0]) - (q[0]-p[0])*(r[1]-q[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether q lies on segment pr, given collinearity.
func onSegment(p, q, r orb.Point) bool {
	return q[0] <= math.Max(p[0], r[0]) && q[0] >= math.Min(p[0], r[0]) &&
		q[1] <= math.Max(p[1], r[1]) && q[1] >= math.Min(p[1], r[1])
}
