package timeparse

import (
	"errors"
	"testing"
	"time"
)

var ref = time.Date(2025, 8, 20, 14, 30, 0, 0, time.UTC)

func TestResolveDayExactDate(t *testing.T) {
	got, err := ResolveDay("2025-08-25", ref)
	if err != nil {
		t.Fatalf("ResolveDay() error = %v", err)
	}
	want := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ResolveDay() = %v, want %v", got, want)
	}
}

func TestResolveDayDiscardsTime(t *testing.T) {
	got, err := ResolveDay("2025-08-25T18:00:00Z", ref)
	if err != nil {
		t.Fatalf("ResolveDay() error = %v", err)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Fatalf("ResolveDay() kept time-of-day: %v", got)
	}
}

func TestResolvePreservesTime(t *testing.T) {
	for _, in := range []string{
		"2025-08-25T18:00:00Z",
		"2025-08-25T18:00",
		"2025-08-25 18:00",
	} {
		got, err := Resolve(in, ref)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", in, err)
		}
		if got.Hour() != 18 || got.Minute() != 0 {
			t.Fatalf("Resolve(%q) = %v, want 18:00", in, got)
		}
		if got.Year() != 2025 || got.Month() != 8 || got.Day() != 25 {
			t.Fatalf("Resolve(%q) day = %v, want 2025-08-25", in, got)
		}
	}
}

func TestResolveRelativeKeywords(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"today", time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)},
		{"Tomorrow", time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)},
		{"tmr", time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)},
		{"明天", time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ResolveDay(c.in, ref)
		if err != nil {
			t.Fatalf("ResolveDay(%q) error = %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("ResolveDay(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestResolveLoosePatternsInheritYear(t *testing.T) {
	got, err := ResolveDay("Jan 2", ref)
	if err != nil {
		t.Fatalf("ResolveDay() error = %v", err)
	}
	want := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ResolveDay(Jan 2) = %v, want %v", got, want)
	}
}

func TestResolveEmbeddedDetector(t *testing.T) {
	got, err := Resolve("meet on 2025-8-25 at 18:30", ref)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := time.Date(2025, 8, 25, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveClockOnlyAnchorsToRefDay(t *testing.T) {
	got, err := Resolve("remind me at 21:00", ref)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := time.Date(2025, 8, 20, 21, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveUnparseable(t *testing.T) {
	if _, err := Resolve("whenever it rains", ref); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("Resolve() error = %v, want ErrUnparseable", err)
	}
	if _, err := Resolve("", ref); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("Resolve(empty) error = %v, want ErrUnparseable", err)
	}
}

func TestCombineDayClock(t *testing.T) {
	got, err := CombineDayClock("2025-08-25", "09:00", time.UTC)
	if err != nil {
		t.Fatalf("CombineDayClock() error = %v", err)
	}
	want := time.Date(2025, 8, 25, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("CombineDayClock() = %v, want %v", got, want)
	}
	if _, err := CombineDayClock("25/08/2025", "09:00", time.UTC); err == nil {
		t.Fatalf("CombineDayClock() with bad day, want error")
	}
}

func TestValidatorPredicates(t *testing.T) {
	if !IsDay("2025-08-25") || IsDay("tomorrow") {
		t.Fatalf("IsDay misclassified input")
	}
	if !IsDateTime("2025-08-25T18:00:00Z") || IsDateTime("2025-08-25") {
		t.Fatalf("IsDateTime misclassified input")
	}
	if !IsClock("09:30") || IsClock("9am") {
		t.Fatalf("IsClock misclassified input")
	}
}
