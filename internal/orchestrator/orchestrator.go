// Package orchestrator drives one booking attempt end to end: window gate,
// run lock, token acquisition, ordered venue fallback, and outcome
// reporting.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/poolside-scheduler/internal/booking"
	"github.com/example/poolside-scheduler/internal/log"
	"github.com/example/poolside-scheduler/internal/metrics"
	"github.com/example/poolside-scheduler/internal/notify"
	"github.com/example/poolside-scheduler/internal/runlock"
	"github.com/example/poolside-scheduler/internal/token"
)

// TokenSource is the slice of the auth manager the orchestrator needs.
type TokenSource interface {
	ValidToken(ctx context.Context) (token.Session, error)
	ForceRefresh(ctx context.Context) (token.Session, error)
}

type Config struct {
	PartySize    int
	PhoneCountry string
	PhoneNumber  string
	GuestNotes   string

	// MaxVenueRetries bounds same-venue retries on transient errors.
	MaxVenueRetries int
	// RetryBackoff is the pause between those retries.
	RetryBackoff time.Duration
}

type Orchestrator struct {
	auth     TokenSource
	provider booking.Provider
	catalog  *booking.Catalog
	window   booking.Window
	lock     runlock.Locker
	relay    notify.Relay
	outcomes notify.Recorder
	cfg      Config

	now func() time.Time
}

func New(auth TokenSource, provider booking.Provider, catalog *booking.Catalog,
	window booking.Window, lock runlock.Locker, relay notify.Relay,
	outcomes notify.Recorder, cfg Config) *Orchestrator {
	if cfg.MaxVenueRetries < 0 {
		cfg.MaxVenueRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	return &Orchestrator{
		auth:     auth,
		provider: provider,
		catalog:  catalog,
		window:   window,
		lock:     lock,
		relay:    relay,
		outcomes: outcomes,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes one booking attempt. force bypasses the trigger-window gate
// (manual runs); everything else — blackout dates, the idempotence guard,
// the run lock — still applies. Run never returns an error: every condition
// folds into the outcome.
func (o *Orchestrator) Run(ctx context.Context, force bool) booking.Outcome {
	runID := uuid.NewString()
	logger := log.WithRun(runID)
	now := o.now()
	outcome := booking.Outcome{RunID: runID, At: now}

	slot, ok := o.window.TargetSlot(now)
	if !ok {
		return o.skip(logger, outcome, "target date is blacked out")
	}
	outcome.Slot = slot

	if !force && !o.window.ShouldTrigger(now) {
		return o.skip(logger, outcome, "outside trigger window")
	}

	// Idempotence guard: a confirmed booking for this slot means a prior
	// invocation inside the tolerance window already won.
	if prev, found, err := o.outcomes.LastConfirmed(ctx, slot); err != nil {
		logger.Warn().Err(err).Msg("idempotence guard lookup failed")
	} else if found {
		outcome.VenueID = prev.VenueID
		outcome.ReservationID = prev.ReservationID
		return o.skip(logger, outcome, "slot already booked")
	}

	release, got, err := o.lock.Acquire(ctx, slot)
	if err != nil {
		outcome.Status = booking.StatusAborted
		outcome.Reason = fmt.Sprintf("run lock: %v", err)
		return o.finish(ctx, logger, outcome)
	}
	if !got {
		return o.skip(logger, outcome, "another run holds the slot lock")
	}
	defer release()

	sess, err := o.auth.ValidToken(ctx)
	if err != nil {
		// No venue attempts on auth failure.
		outcome.Status = booking.StatusAborted
		outcome.Reason = err.Error()
		return o.finish(ctx, logger, outcome)
	}

	return o.finish(ctx, logger, o.attemptVenues(ctx, logger, sess, slot, outcome))
}

// attemptVenues walks the fallback chain in strict priority order.
func (o *Orchestrator) attemptVenues(ctx context.Context, logger zerolog.Logger,
	sess token.Session, slot time.Time, outcome booking.Outcome) booking.Outcome {

	reauthed := false

	for _, v := range o.catalog.Ordered() {
		retries := 0

	venue:
		for {
			vlog := logger.With().Str("venue", v.ID).Logger()
			conf, err := o.provider.Book(ctx, sess.AccessToken, booking.Request{
				VenueID:      v.ID,
				Slot:         slot,
				PartySize:    o.cfg.PartySize,
				PhoneCountry: o.cfg.PhoneCountry,
				PhoneNumber:  o.cfg.PhoneNumber,
				GuestNotes:   o.cfg.GuestNotes,
			})

			switch {
			case err == nil:
				metrics.VenueAttempts.WithLabelValues(v.ID, "confirmed").Inc()
				vlog.Info().Str("reservation_id", conf.ReservationID).Msg("booking confirmed")
				outcome.Status = booking.StatusConfirmed
				outcome.VenueID = v.ID
				outcome.VenueName = v.Name
				outcome.ReservationID = conf.ReservationID
				return outcome

			case errors.Is(err, booking.ErrNoAvailability):
				metrics.VenueAttempts.WithLabelValues(v.ID, "no_availability").Inc()
				vlog.Info().Msg("no availability, trying next venue")
				break venue

			case errors.Is(err, booking.ErrRateLimited):
				metrics.VenueAttempts.WithLabelValues(v.ID, "rate_limited").Inc()
				vlog.Warn().Msg("rate limited, trying next venue")
				break venue

			case errors.Is(err, booking.ErrAuthRejected):
				metrics.VenueAttempts.WithLabelValues(v.ID, "auth_rejected").Inc()
				if reauthed {
					outcome.Status = booking.StatusAborted
					outcome.Reason = "token rejected again after re-acquisition"
					return outcome
				}
				reauthed = true
				vlog.Warn().Msg("token rejected mid-run, re-acquiring")
				fresh, aerr := o.auth.ForceRefresh(ctx)
				if aerr != nil {
					outcome.Status = booking.StatusAborted
					outcome.Reason = aerr.Error()
					return outcome
				}
				sess = fresh
				continue // same venue, once

			case isTransient(err):
				metrics.VenueAttempts.WithLabelValues(v.ID, "transient").Inc()
				if retries < o.cfg.MaxVenueRetries {
					retries++
					vlog.Warn().Err(err).Int("retry", retries).Msg("transient failure, retrying venue")
					if serr := sleep(ctx, o.cfg.RetryBackoff); serr != nil {
						outcome.Status = booking.StatusAborted
						outcome.Reason = "run cancelled"
						return outcome
					}
					continue
				}
				// Retry budget spent: treat like unavailability.
				vlog.Warn().Err(err).Msg("transient retries exhausted, trying next venue")
				break venue

			default:
				// FatalError and anything unclassified: systemic, stop.
				metrics.VenueAttempts.WithLabelValues(v.ID, "fatal").Inc()
				vlog.Error().Err(err).Msg("fatal booking error")
				outcome.Status = booking.StatusAborted
				outcome.Reason = err.Error()
				return outcome
			}
		}
	}

	outcome.Status = booking.StatusExhausted
	outcome.Reason = "no availability at any venue"
	return outcome
}

func (o *Orchestrator) skip(logger zerolog.Logger, outcome booking.Outcome, reason string) booking.Outcome {
	outcome.Status = booking.StatusSkipped
	outcome.Reason = reason
	metrics.Runs.WithLabelValues(string(booking.StatusSkipped)).Inc()
	logger.Info().Str("reason", reason).Msg("run skipped")
	return outcome
}

// finish publishes a terminal outcome. Relay failures are logged and
// swallowed: the booking result stands regardless.
func (o *Orchestrator) finish(ctx context.Context, logger zerolog.Logger, outcome booking.Outcome) booking.Outcome {
	metrics.Runs.WithLabelValues(string(outcome.Status)).Inc()
	if err := o.relay.Publish(ctx, outcome); err != nil {
		logger.Warn().Err(err).Msg("outcome notification failed")
	}
	return outcome
}

func isTransient(err error) bool {
	var te *booking.TransientError
	return errors.As(err, &te)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
