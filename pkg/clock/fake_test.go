package clock

import (
	"testing"
	"time"
)

func TestFake_AfterAdvancesAndRecords(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	got := <-c.After(time.Second)
	if want := start.Add(time.Second); !got.Equal(want) {
		t.Fatalf("After fired at %v, want %v", got, want)
	}
	<-c.After(2 * time.Second)

	if now := c.Now(); !now.Equal(start.Add(3 * time.Second)) {
		t.Errorf("Now() = %v, want %v", now, start.Add(3*time.Second))
	}
	waits := c.Waits()
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("Waits() = %v, want [1s 2s]", waits)
	}
}

func TestFake_AdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	c.Advance(90 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Errorf("after Advance Now() = %v", got)
	}

	later := start.AddDate(0, 1, 0)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Errorf("after Set Now() = %v, want %v", got, later)
	}
	if len(c.Waits()) != 0 {
		t.Errorf("Advance/Set must not record waits")
	}
}

func TestOrReal(t *testing.T) {
	if OrReal(nil) == nil {
		t.Fatal("OrReal(nil) returned nil")
	}
	f := Fake(time.Time{})
	if OrReal(f) != Clock(f) {
		t.Error("OrReal must return the provided clock")
	}
}
