package domain

import (
	"fmt"
	"time"
)

// AnchorWeekday is the required weekday for the compositing anchor
// date: Wednesday, the EIA weekly petroleum status release day.
const AnchorWeekday = time.Wednesday

// TimeWindow is one fixed-width compositing window.
type TimeWindow struct {
	Start time.Time
	Days  int
}

// End returns the exclusive end of the window.
func (w TimeWindow) End() time.Time {
	return w.Start.AddDate(0, 0, w.Days)
}

// Label returns the window's ISO start date, e.g. "2024-01-03".
func (w TimeWindow) Label() string {
	return w.Start.Format("2006-01-02")
}

// Contains reports whether t falls in [Start, End).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}

// ValidateAnchor rejects anchor dates that do not fall on the
// reference weekday. A bad anchor is a configuration error, caught
// before any network activity.
func ValidateAnchor(anchor time.Time) error {
	if anchor.Weekday() != AnchorWeekday {
		return fmt.Errorf("anchor date must be a %s (EIA release day), got %s %s",
			AnchorWeekday, anchor.Weekday(), anchor.Format("2006-01-02"))
	}
	return nil
}

// Windows walks from anchor toward end in fixed steps, emitting one
// window per step while the start is still strictly before end. The
// sequence is strictly increasing.
func Windows(anchor, end time.Time, intervalDays int) []TimeWindow {
	var windows []TimeWindow
	for current := anchor; current.Before(end); current = current.AddDate(0, 0, intervalDays) {
		windows = append(windows, TimeWindow{Start: current, Days: intervalDays})
	}
	return windows
}
