package booking

import (
	"context"
	"time"
)

// Venue is one bookable poolside location. Lower Priority is preferred;
// the ordered sequence of venues is the fallback chain.
type Venue struct {
	ID       string
	Name     string
	Priority int
}

// Request describes a single booking attempt against one venue. Requests are
// built fresh per attempt and never outlive it.
type Request struct {
	VenueID   string
	Slot      time.Time // venue-local date and time of the reservation
	PartySize int

	PhoneCountry string
	PhoneNumber  string
	GuestNotes   string
}

// Confirmation is what a provider returns when a booking sticks.
type Confirmation struct {
	ReservationID string
	VenueID       string
	Slot          time.Time
	State         string
}

// Provider books a slot at a single venue using a caller-supplied session
// token. Implementations classify remote failures into the taxonomy in
// errors.go; a nil error means confirmed.
type Provider interface {
	Name() string
	Book(ctx context.Context, accessToken string, req Request) (Confirmation, error)
}
