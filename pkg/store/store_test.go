package store

import (
	"errors"
	"path/filepath"
	"testing"

	"remindd/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testKey(eventID int64, alertTime model.UnixMillis) model.AlertKey {
	return model.AlertKey{EventID: eventID, AlertTime: alertTime, InstanceStart: alertTime + 600_000}
}

// --- Ledger tests ---

func TestUpsertLedger_AndLookup(t *testing.T) {
	s := newTestStore(t)
	key := testKey(1, 1000)

	err := s.UpsertLedger(model.LedgerEntry{Key: key, CreatedByUs: true, AllDay: true})
	if err != nil {
		t.Fatalf("UpsertLedger: %v", err)
	}

	e, err := s.Ledger(key)
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if e.WasHandled {
		t.Fatal("fresh entry should not be handled")
	}
	if !e.CreatedByUs || !e.AllDay {
		t.Fatalf("entry flags lost: %+v", e)
	}
}

func TestLedger_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Ledger(testKey(99, 1))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestIsHandled_UnobservedIsFalse(t *testing.T) {
	s := newTestStore(t)
	handled, err := s.IsHandled(testKey(5, 500))
	if err != nil {
		t.Fatalf("IsHandled: %v", err)
	}
	if handled {
		t.Fatal("never-observed alert must not be handled")
	}
}

func TestMarkHandled(t *testing.T) {
	s := newTestStore(t)
	key := testKey(1, 1000)
	s.UpsertLedger(model.LedgerEntry{Key: key})

	if err := s.MarkHandled(key); err != nil {
		t.Fatalf("MarkHandled: %v", err)
	}
	handled, err := s.IsHandled(key)
	if err != nil {
		t.Fatal(err)
	}
	if !handled {
		t.Fatal("entry should be handled after MarkHandled")
	}
}

func TestUpsertLedger_DuplicateNeverLowersHandled(t *testing.T) {
	s := newTestStore(t)
	key := testKey(1, 1000)
	s.UpsertLedger(model.LedgerEntry{Key: key})
	s.MarkHandled(key)

	// A racing second observation re-inserts with WasHandled=false.
	if err := s.UpsertLedger(model.LedgerEntry{Key: key, WasHandled: false}); err != nil {
		t.Fatalf("duplicate UpsertLedger: %v", err)
	}

	handled, _ := s.IsHandled(key)
	if !handled {
		t.Fatal("duplicate insert must not clear WasHandled")
	}
}

func TestPruneLedgerBefore(t *testing.T) {
	s := newTestStore(t)
	for _, at := range []model.UnixMillis{100, 200, 300, 400} {
		s.UpsertLedger(model.LedgerEntry{Key: testKey(1, at)})
	}

	pruned, err := s.PruneLedgerBefore(300)
	if err != nil {
		t.Fatalf("PruneLedgerBefore: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("pruned %d entries, want 2", pruned)
	}
	if n := s.LedgerCount(); n != 2 {
		t.Fatalf("LedgerCount = %d after prune, want 2", n)
	}
	// Entry exactly at the cutoff survives.
	if _, err := s.Ledger(testKey(1, 300)); err != nil {
		t.Fatalf("entry at cutoff should survive: %v", err)
	}
}

// --- Cursor tests ---

func TestCursor_UnsetIsZero(t *testing.T) {
	s := newTestStore(t)
	if v := s.GetCursor(CursorNextFireScan); v != 0 {
		t.Fatalf("unset cursor = %d, want 0", v)
	}
}

func TestCursor_SetAndGet(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetCursor(CursorNextFireScan, 123456); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}
	if v := s.GetCursor(CursorNextFireScan); v != 123456 {
		t.Fatalf("cursor = %d, want 123456", v)
	}

	// Overwrite.
	s.SetCursor(CursorNextFireScan, 999)
	if v := s.GetCursor(CursorNextFireScan); v != 999 {
		t.Fatalf("cursor after overwrite = %d, want 999", v)
	}
}

func TestCursor_Independent(t *testing.T) {
	s := newTestStore(t)
	s.SetCursor(CursorNextFireScan, 10)
	s.SetCursor(CursorNextFireProvider, 20)

	if v := s.GetCursor(CursorNextFireScan); v != 10 {
		t.Fatalf("scan cursor = %d, want 10", v)
	}
	if v := s.GetCursor(CursorNextFireProvider); v != 20 {
		t.Fatalf("provider cursor = %d, want 20", v)
	}
}
