// Package notify forwards run outcomes to their sinks: the structured log
// and a persisted last-outcome record the status endpoint serves. Delivery
// failure here never affects a booking outcome already achieved.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/poolside-scheduler/internal/booking"
)

// Relay receives the outcome of a finished run.
type Relay interface {
	Publish(ctx context.Context, o booking.Outcome) error
}

// Recorder persists outcomes and answers the idempotence guard: has this
// target slot already been confirmed?
type Recorder interface {
	Record(ctx context.Context, o booking.Outcome) error
	Last(ctx context.Context) (booking.Outcome, bool, error)
	LastConfirmed(ctx context.Context, slot time.Time) (booking.Outcome, bool, error)
}

// LogRelay writes outcomes to the structured log.
type LogRelay struct {
	Logger zerolog.Logger
}

func (l LogRelay) Publish(_ context.Context, o booking.Outcome) error {
	ev := l.Logger.Info()
	if o.Status == booking.StatusAborted {
		ev = l.Logger.Error()
	}
	ev.Str("run_id", o.RunID).
		Str("status", string(o.Status)).
		Str("venue_id", o.VenueID).
		Str("reservation_id", o.ReservationID).
		Str("reason", o.Reason).
		Time("slot", o.Slot).
		Msg("booking outcome")
	return nil
}

// RecorderRelay adapts a Recorder into the relay fan-out.
type RecorderRelay struct {
	Recorder Recorder
}

func (r RecorderRelay) Publish(ctx context.Context, o booking.Outcome) error {
	return r.Recorder.Record(ctx, o)
}

// Multi fans one outcome out to every sink; all sinks are attempted even
// when some fail.
type Multi []Relay

func (m Multi) Publish(ctx context.Context, o booking.Outcome) error {
	var errs []error
	for _, r := range m {
		if err := r.Publish(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
