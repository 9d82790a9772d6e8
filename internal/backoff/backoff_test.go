package backoff

import (
	"testing"
	"time"
)

func TestNone(t *testing.T) {
	var s None
	for i := 1; i <= 5; i++ {
		if d := s.Delay(i); d != 0 {
			t.Fatalf("attempt %d: %v", i, d)
		}
	}
}

func TestConstant(t *testing.T) {
	s := NewConstant(100 * time.Millisecond)
	for i := 1; i <= 5; i++ {
		if d := s.Delay(i); d != 100*time.Millisecond {
			t.Fatalf("attempt %d: %v", i, d)
		}
	}
}

func TestExponential(t *testing.T) {
	s := NewExponential(10*time.Millisecond, 70*time.Millisecond)
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 70 * time.Millisecond},
		{10, 70 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := s.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialWithJitterBounds(t *testing.T) {
	s := NewExponentialWithJitter(10*time.Millisecond, 50*time.Millisecond)
	for attempt := 1; attempt <= 8; attempt++ {
		for i := 0; i < 50; i++ {
			d := s.Delay(attempt)
			if d < 0 || d > 50*time.Millisecond {
				t.Fatalf("attempt %d: %v out of range", attempt, d)
			}
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{NameNone, NameConstant, NameExponential, NameExponentialJitter, ""} {
		if _, err := New(name, time.Millisecond, time.Second); err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
	}
	if _, err := New("fibonacci", time.Millisecond, time.Second); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
