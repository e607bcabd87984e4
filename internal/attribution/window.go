package attribution

import "time"

// SupportedRanges are the reporting window presets, in recompute order.
var SupportedRanges = []int{7, 30, 90}

// IsSupportedRange reports whether days is one of SupportedRanges.
func IsSupportedRange(days int) bool {
	for _, r := range SupportedRanges {
		if r == days {
			return true
		}
	}
	return false
}

// Window is the half-open interval [Start, End) covering RangeDays whole
// calendar days that end with the day containing the reference time.
type Window struct {
	RangeDays int
	Start     time.Time
	End       time.Time
}

// NewWindow returns the window of rangeDays days ending at the end of the
// day containing now, with day boundaries taken in loc (UTC when nil).
func NewWindow(now time.Time, rangeDays int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	if rangeDays < 1 {
		rangeDays = 1
	}
	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return Window{
		RangeDays: rangeDays,
		Start:     today.AddDate(0, 0, -(rangeDays - 1)),
		End:       today.AddDate(0, 0, 1),
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
