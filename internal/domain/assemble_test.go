package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id int64, lon, lat float64) Element {
	return Element{Type: "node", ID: id, Lon: lon, Lat: lat}
}

func TestAssemblePolygons(t *testing.T) {
	square := []Element{
		node(1, 0, 0), node(2, 1, 0), node(3, 1, 1), node(4, 0, 1),
		{Type: "way", ID: 100, Nodes: []int64{1, 2, 3, 4, 1}},
	}

	t.Run("closed way becomes a tank polygon", func(t *testing.T) {
		set, report := AssemblePolygons("Rotterdam, Netherlands", square)

		require.Len(t, set, 1)
		assert.Equal(t, int64(100), set[0].TankID)
		assert.Equal(t, "Rotterdam, Netherlands", set[0].Region)
		assert.Equal(t, AssemblyReport{WaysSeen: 1, Accepted: 1}, report)
	})

	t.Run("content and substance tags carry through", func(t *testing.T) {
		elements := append([]Element{}, square[:4]...)
		elements = append(elements, Element{
			Type: "way", ID: 100, Nodes: []int64{1, 2, 3, 4, 1},
			Tags: map[string]string{"content": "oil", "substance": "crude"},
		})

		set, _ := AssemblePolygons("r", elements)

		require.Len(t, set, 1)
		assert.Equal(t, "oil", set[0].Content)
		assert.Equal(t, "crude", set[0].Substance)
	})

	t.Run("dangling node references are dropped", func(t *testing.T) {
		elements := append([]Element{}, square[:4]...)
		elements = append(elements, Element{Type: "way", ID: 101, Nodes: []int64{1, 2, 3, 4, 999, 1}})

		set, report := AssemblePolygons("r", elements)

		require.Len(t, set, 1)
		assert.Equal(t, 1, report.Accepted)
	})

	t.Run("too few resolved coordinates", func(t *testing.T) {
		elements := []Element{
			node(1, 0, 0), node(2, 1, 0),
			{Type: "way", ID: 102, Nodes: []int64{1, 2, 999}},
		}

		set, report := AssemblePolygons("r", elements)

		assert.Empty(t, set)
		assert.Equal(t, AssemblyReport{WaysSeen: 1, RejectedShort: 1}, report)
	})

	t.Run("self-intersecting way is rejected", func(t *testing.T) {
		elements := []Element{
			node(1, 0, 0), node(2, 1, 1), node(3, 1, 0), node(4, 0, 1),
			{Type: "way", ID: 103, Nodes: []int64{1, 2, 3, 4, 1}},
		}

		set, report := AssemblePolygons("r", elements)

		assert.Empty(t, set)
		assert.Equal(t, AssemblyReport{WaysSeen: 1, RejectedGeometry: 1}, report)
	})

	t.Run("relations are counted but never assembled", func(t *testing.T) {
		elements := append([]Element{}, square...)
		elements = append(elements, Element{Type: "relation", ID: 500})

		set, report := AssemblePolygons("r", elements)

		require.Len(t, set, 1)
		assert.Equal(t, 1, report.RelationsSkipped)
	})

	t.Run("empty input", func(t *testing.T) {
		set, report := AssemblePolygons("r", nil)

		assert.Empty(t, set)
		assert.Equal(t, AssemblyReport{}, report)
	})
}
