package clock

import (
	"testing"
	"time"

	"remindd/pkg/model"
)

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Fatalf("System.Now() = %v, want within [%v, %v]", got, before, after)
	}
}

func TestFake_SetAndAdvance(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(base)
	if !f.Now().Equal(base) {
		t.Fatalf("Fake.Now() = %v, want %v", f.Now(), base)
	}

	f.Advance(90 * time.Second)
	want := base.Add(90 * time.Second)
	if !f.Now().Equal(want) {
		t.Fatalf("after Advance: got %v, want %v", f.Now(), want)
	}

	f.Set(base)
	if !f.Now().Equal(base) {
		t.Fatalf("after Set: got %v, want %v", f.Now(), base)
	}
}

func TestNowMillis(t *testing.T) {
	f := NewFakeMillis(model.UnixMillis(1_700_000_000_000))
	if got := NowMillis(f); got != 1_700_000_000_000 {
		t.Fatalf("NowMillis = %d, want 1700000000000", got)
	}
}
