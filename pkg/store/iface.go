// iface.go defines the StoreInterface for dependency injection and testing.
//
// The concrete *Store type satisfies this interface. Code that depends on
// the store (the engine, the scheduler, the cmd layer) can accept
// StoreInterface instead of *Store, enabling mock injection in tests.
package store

import "remindd/pkg/model"

// StoreInterface defines the full set of store operations.
// The concrete *Store type implements this interface.
type StoreInterface interface {
	// Close closes the database connection.
	Close() error

	// --- Alert ledger ---

	// UpsertLedger records the observation of an alert. Duplicate inserts
	// update in place; WasHandled is never lowered.
	UpsertLedger(e model.LedgerEntry) error

	// Ledger retrieves a ledger entry, or ErrNotFound.
	Ledger(key model.AlertKey) (*model.LedgerEntry, error)

	// IsHandled reports whether the alert was already handled.
	IsHandled(key model.AlertKey) (bool, error)

	// MarkHandled flips WasHandled for an existing entry.
	MarkHandled(key model.AlertKey) error

	// PruneLedgerBefore garbage-collects entries older than the cutoff.
	PruneLedgerBefore(cutoff model.UnixMillis) (int64, error)

	// LedgerCount returns the total number of ledger entries.
	LedgerCount() int64

	// --- Active alerts ---

	// UpsertActive inserts or updates an active alert.
	UpsertActive(a model.ActiveAlert) error

	// Active retrieves one active alert, or ErrNotFound.
	Active(key model.AlertKey) (*model.ActiveAlert, error)

	// ListActive returns all active alerts in deterministic order.
	ListActive() ([]model.ActiveAlert, error)

	// ListVisible returns alerts currently due for display.
	ListVisible() ([]model.ActiveAlert, error)

	// SetDisplay updates one alert's display status.
	SetDisplay(key model.AlertKey, d model.DisplayStatus, visibleAt model.UnixMillis) error

	// SnoozeActive parks an alert until the given instant.
	SnoozeActive(key model.AlertKey, until model.UnixMillis) error

	// WakeExpiredSnoozes returns due snoozed alerts to display eligibility.
	WakeExpiredSnoozes(now model.UnixMillis) (int64, error)

	// SetMuted updates one alert's mute flag.
	SetMuted(key model.AlertKey, muted bool) error

	// UpdateActiveFromRecord applies the gateway's current event fields.
	UpdateActiveFromRecord(key model.AlertKey, r *model.AlertRecord) error

	// ShiftActive re-points an alert at a new occurrence.
	ShiftActive(old, shifted model.AlertKey, start, end model.UnixMillis) error

	// DeleteActive removes one alert, reporting whether a row existed.
	DeleteActive(key model.AlertKey) (bool, error)

	// DeleteAllActive removes every active alert.
	DeleteAllActive() (int64, error)

	// ActiveCount returns the number of active alerts.
	ActiveCount() int64

	// --- Cursors ---

	// GetCursor returns the stored cursor value (0 if unset).
	GetCursor(name string) model.UnixMillis

	// SetCursor updates a cursor value.
	SetCursor(name string, v model.UnixMillis) error
}

// Compile-time check that *Store implements StoreInterface.
var _ StoreInterface = (*Store)(nil)
