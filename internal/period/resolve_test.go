package period

import (
	"errors"
	"testing"
	"time"
)

func TestSupportedDurations_StrictlyAscending(t *testing.T) {
	if len(supported) != 33 {
		t.Fatalf("expected 33 supported periods, got %d", len(supported))
	}
	for i := 1; i < len(supportedDurations); i++ {
		if supportedDurations[i-1] >= supportedDurations[i] {
			t.Fatalf("durations not ascending at %d: %s >= %s", i, supportedDurations[i-1], supportedDurations[i])
		}
		if supportedDurations[i] != supported[i].Duration() {
			t.Fatalf("duration table out of sync at %d", i)
		}
	}
}

func TestResolve_ExactMatches(t *testing.T) {
	for i, d := range supportedDurations {
		p, err := Resolve(d)
		if err != nil {
			t.Fatalf("Resolve(%s) returned error: %v", d, err)
		}
		if p != supported[i] {
			t.Errorf("Resolve(%s) = %s, want %s", d, p, supported[i])
		}
	}
}

func TestResolve_Nearest(t *testing.T) {
	cases := []struct {
		name     string
		duration time.Duration
		want     Period
	}{
		{"zero", 0, New(Second, 1)},
		{"half second", 500 * time.Millisecond, New(Second, 1)},
		{"below tie", 1490 * time.Millisecond, New(Second, 1)},
		{"tie goes up", 1500 * time.Millisecond, New(Second, 2)},
		{"above tie", 1510 * time.Millisecond, New(Second, 2)},
		{"40 seconds", 40 * time.Second, New(Second, 30)},
		{"12 minutes", 12 * time.Minute, New(Minute, 10)},
		{"40 minutes", 40 * time.Minute, New(Minute, 30)},
		{"7.1 hours", 7*time.Hour + 6*time.Minute, New(Hour, 8)},
		{"9 hours tie", 10 * time.Hour, New(Hour, 12)},
		{"14 days", 14 * 24 * time.Hour, New(Day, 10)},
		{"one year", 365 * 24 * time.Hour, New(Day, 10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Resolve(tc.duration)
			var mismatch *MismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("expected *MismatchError, got %v", err)
			}
			if p != tc.want {
				t.Errorf("Resolve(%s) = %s, want %s", tc.duration, p, tc.want)
			}
			if mismatch.Closest != tc.want {
				t.Errorf("mismatch.Closest = %s, want %s", mismatch.Closest, tc.want)
			}
			if mismatch.Requested != tc.duration {
				t.Errorf("mismatch.Requested = %s, want %s", mismatch.Requested, tc.duration)
			}
			if got := Nearest(tc.duration); got != tc.want {
				t.Errorf("Nearest(%s) = %s, want %s", tc.duration, got, tc.want)
			}
		})
	}
}

func TestResolve_NegativeDuration(t *testing.T) {
	p, err := Resolve(-time.Second)
	if !errors.Is(err, ErrNegativeDuration) {
		t.Fatalf("expected ErrNegativeDuration, got %v", err)
	}
	if p != (Period{}) {
		t.Errorf("expected zero period, got %s", p)
	}

	if got := Nearest(-time.Hour); got != Smallest() {
		t.Errorf("Nearest(-1h) = %s, want %s", got, Smallest())
	}
}

func TestNearest_ExactMatch(t *testing.T) {
	if got := Nearest(6 * time.Hour); got != New(Hour, 6) {
		t.Errorf("Nearest(6h) = %s, want 6HRS", got)
	}
}

func TestSmallestLargest(t *testing.T) {
	if Smallest().String() != "1SEC" {
		t.Errorf("Smallest() = %s", Smallest())
	}
	if Largest().String() != "10DAY" {
		t.Errorf("Largest() = %s", Largest())
	}
}

func TestSupported_ReturnsCopy(t *testing.T) {
	list := Supported()
	list[0] = New(Day, 99)
	if supported[0] != New(Second, 1) {
		t.Fatalf("Supported() leaked the internal table")
	}
}
