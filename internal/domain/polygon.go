package domain

import "github.com/paulmach/orb"

// TankPolygon is one validated storage tank footprint. The ring is
// closed (first point equals last), simple, and has positive area.
// Never mutated after creation; duplicates across sets are superseded
// by merge, not edited.
type TankPolygon struct {
	TankID    int64
	Ring      orb.Ring
	Region    string
	Content   string // OSM "content" tag, if present
	Substance string // OSM "substance" tag, if present
}

// Polygon wraps the ring as a single-ring orb polygon.
func (t TankPolygon) Polygon() orb.Polygon {
	return orb.Polygon{t.Ring}
}

// PolygonSet is an ordered sequence of tank polygons with unique ids.
type PolygonSet []TankPolygon

// Bound returns the union bounding box of all polygons in the set.
func (s PolygonSet) Bound() orb.Bound {
	var b orb.Bound
	for i, t := range s {
		if i == 0 {
			b = t.Ring.Bound()
			continue
		}
		b = b.Union(t.Ring.Bound())
	}
	return b
}

// MergeReport records the observable counts of a merge.
type MergeReport struct {
	Total      int // polygons across all inputs
	Unique     int // polygons kept
	Duplicates int // polygons dropped for a repeated tank id
}

// Merge concatenates the given sets in order and deduplicates by tank
// id, keeping the first occurrence of each id. No geometric comparison
// is made between duplicates; identity of the id is the rule, so a
// re-surveyed boundary under a known id is dropped. Merging a set with
// itself is a no-op on membership.
func Merge(sets ...PolygonSet) (PolygonSet, MergeReport) {
	var report MergeReport
	seen := make(map[int64]struct{})
	var out PolygonSet

	for _, set := range sets {
		for _, t := range set {
			report.Total++
			if _, dup := seen[t.TankID]; dup {
				report.Duplicates++
				continue
			}
			seen[t.TankID] = struct{}{}
			out = append(out, t)
		}
	}

	report.Unique = len(out)
	return out, report
}
