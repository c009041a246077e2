package domain

import "github.com/paulmach/orb"

// AssemblyReport partitions the ways of one Overpass response into
// accepted and rejected counts, so callers can assert on outcomes
// without scraping logs.
type AssemblyReport struct {
	WaysSeen         int
	Accepted         int
	RejectedShort    int // fewer than 3 resolved coordinates
	RejectedGeometry int // failed ring validation
	RelationsSkipped int // relations are queried but never assembled
}

// AssemblePolygons builds the region's polygon set from a raw element
// list. Node elements are indexed by id; each way's node references
// are resolved through that index, silently dropping dangling ids.
// Candidate rings go through [ValidateRing]; survivors become
// [TankPolygon] values carrying the way id, the owning region's name,
// and any content/substance tags.
func AssemblePolygons(region string, elements []Element) (PolygonSet, AssemblyReport) {
	var report AssemblyReport

	nodes := make(map[int64]orb.Point)
	for _, el := range elements {
		if el.Type == "node" {
			nodes[el.ID] = orb.Point{el.Lon, el.Lat}
		}
	}

	var set PolygonSet
	for _, el := range elements {
		switch el.Type {
		case "relation":
			report.RelationsSkipped++
			continue
		case "way":
			if len(el.Nodes) == 0 {
				continue
			}
		default:
			continue
		}

		report.WaysSeen++

		coords := make([]orb.Point, 0, len(el.Nodes))
		for _, id := range el.Nodes {
			if p, ok := nodes[id]; ok {
				coords = append(coords, p)
			}
		}
		if len(coords) < 3 {
			report.RejectedShort++
			continue
		}

		ring, ok := ValidateRing(coords)
		if !ok {
			report.RejectedGeometry++
			continue
		}

		set = append(set, TankPolygon{
			TankID:    el.ID,
			Ring:      ring,
			Region:    region,
			Content:   el.Tags["content"],
			Substance: el.Tags["substance"],
		})
		report.Accepted++
	}

	return set, report
}
