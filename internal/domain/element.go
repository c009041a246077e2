package domain

// Element is one entry of an Overpass response's flat element list.
// Nodes carry coordinates, ways carry an ordered node-id list, and
// relations carry members (which this pipeline does not assemble).
// Transient: elements exist only between fetch and assembly.
type Element struct {
	Type  string            `json:"type"` // "node", "way", or "relation"
	ID    int64             `json:"id"`
	Lon   float64           `json:"lon,omitempty"`
	Lat   float64           `json:"lat,omitempty"`
	Nodes []int64           `json:"nodes,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// FetchResult is the outcome of a mirror-rotating fetch. After all
// attempts fail the result is empty with Exhausted set: "no data for
// this region" is a valid, non-fatal outcome for callers.
type FetchResult struct {
	Elements  []Element
	Remark    string // diagnostic remark surfaced by the backend, if any
	Attempts  int
	Exhausted bool
}
