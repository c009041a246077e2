package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidateAnchor(t *testing.T) {
	t.Run("wednesday passes", func(t *testing.T) {
		assert.NoError(t, ValidateAnchor(date(2024, 1, 3)))
	})

	t.Run("other weekdays fail", func(t *testing.T) {
		err := ValidateAnchor(date(2024, 1, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Wednesday")
		assert.Contains(t, err.Error(), "2024-01-01")
	})
}

func TestWindows(t *testing.T) {
	t.Run("weekly walk stops strictly before end", func(t *testing.T) {
		windows := Windows(date(2024, 1, 3), date(2024, 3, 1), 7)

		require.Len(t, windows, 9)
		assert.Equal(t, "2024-01-03", windows[0].Label())
		assert.Equal(t, "2024-02-28", windows[len(windows)-1].Label())
		for i := 1; i < len(windows); i++ {
			assert.Equal(t, windows[i-1].End(), windows[i].Start)
		}
	})

	t.Run("anchor on end yields nothing", func(t *testing.T) {
		assert.Empty(t, Windows(date(2024, 1, 3), date(2024, 1, 3), 7))
	})

	t.Run("window starting one day before end is kept", func(t *testing.T) {
		windows := Windows(date(2024, 1, 3), date(2024, 1, 11), 7)

		require.Len(t, windows, 2)
		assert.Equal(t, "2024-01-10", windows[1].Label())
	})
}

func TestTimeWindow(t *testing.T) {
	w := TimeWindow{Start: date(2024, 1, 3), Days: 7}

	assert.Equal(t, date(2024, 1, 10), w.End())
	assert.Equal(t, "2024-01-03", w.Label())
	assert.True(t, w.Contains(date(2024, 1, 3)))
	assert.True(t, w.Contains(date(2024, 1, 9)))
	assert.False(t, w.Contains(date(2024, 1, 10)))
	assert.False(t, w.Contains(date(2024, 1, 2)))
}
