package attribution

import (
	"testing"
	"time"
)

func TestNewWindow_UTC(t *testing.T) {
	w := NewWindow(now, 7, nil)

	wantStart := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) || w.RangeDays != 7 {
		t.Fatalf("got [%s, %s) range=%d; want [%s, %s) range=7", w.Start, w.End, w.RangeDays, wantStart, wantEnd)
	}

	if !w.Contains(wantStart) {
		t.Fatalf("start of first day must be inside")
	}
	if !w.Contains(wantEnd.Add(-time.Nanosecond)) {
		t.Fatalf("last instant of today must be inside")
	}
	if w.Contains(wantStart.Add(-time.Nanosecond)) {
		t.Fatalf("instant before first day must be outside")
	}
	if w.Contains(wantEnd) {
		t.Fatalf("start of tomorrow must be outside")
	}
}

func TestNewWindow_Ranges(t *testing.T) {
	for _, r := range SupportedRanges {
		w := NewWindow(now, r, nil)
		if days := int(w.End.Sub(w.Start).Hours() / 24); days != r {
			t.Fatalf("range %d spans %d days", r, days)
		}
	}
}

func TestNewWindow_Location(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on Feb 10 is still Feb 9 in UTC-5.
	w := NewWindow(time.Date(2026, 2, 10, 2, 0, 0, 0, time.UTC), 7, loc)

	wantEnd := time.Date(2026, 2, 10, 0, 0, 0, 0, loc)
	if !w.End.Equal(wantEnd) {
		t.Fatalf("end = %s; want %s", w.End, wantEnd)
	}
	if !w.Start.Equal(time.Date(2026, 2, 3, 0, 0, 0, 0, loc)) {
		t.Fatalf("start = %s", w.Start)
	}
}

func TestIsSupportedRange(t *testing.T) {
	for _, r := range []int{7, 30, 90} {
		if !IsSupportedRange(r) {
			t.Fatalf("%d should be supported", r)
		}
	}
	for _, r := range []int{0, 1, 14, 31, 365, -7} {
		if IsSupportedRange(r) {
			t.Fatalf("%d should not be supported", r)
		}
	}
}
