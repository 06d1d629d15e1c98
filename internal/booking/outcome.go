package booking

import "time"

// Status is the overall result of one orchestrator run.
type Status string

const (
	// StatusConfirmed: a reservation was made.
	StatusConfirmed Status = "confirmed"
	// StatusExhausted: every venue was tried, none had availability.
	StatusExhausted Status = "exhausted"
	// StatusAborted: the run stopped on an auth or fatal error.
	StatusAborted Status = "aborted"
	// StatusSkipped: the run was a no-op (outside the trigger window,
	// blackout date, lock held, or the slot is already booked).
	StatusSkipped Status = "skipped"
)

// Outcome folds the per-venue results of a run into one report. It is what
// the notification relay forwards and the trigger endpoint returns.
type Outcome struct {
	RunID         string    `json:"run_id"`
	Status        Status    `json:"status"`
	Slot          time.Time `json:"slot,omitempty"`
	VenueID       string    `json:"venue_id,omitempty"`
	VenueName     string    `json:"venue_name,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}
