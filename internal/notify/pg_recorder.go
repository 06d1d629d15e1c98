package notify

import (
	"context"
	"time"

	"github.com/example/poolside-scheduler/internal/booking"
	"github.com/example/poolside-scheduler/internal/db"
)

// PGRecorder appends every outcome to booking_outcomes, keeping run history
// queryable across deploys.
type PGRecorder struct {
	db *db.DB
}

func NewPGRecorder(d *db.DB) *PGRecorder { return &PGRecorder{db: d} }

func (p *PGRecorder) Record(ctx context.Context, o booking.Outcome) error {
	return p.db.Exec(ctx, `
INSERT INTO booking_outcomes(run_id, status, slot, venue_id, venue_name, reservation_id, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.RunID, string(o.Status), o.Slot, o.VenueID, o.VenueName, o.ReservationID, o.Reason, o.At)
}

func (p *PGRecorder) Last(ctx context.Context) (booking.Outcome, bool, error) {
	return p.scanOne(ctx, `
SELECT run_id, status, slot, venue_id, venue_name, reservation_id, reason, created_at
FROM booking_outcomes
ORDER BY id DESC LIMIT 1`)
}

func (p *PGRecorder) LastConfirmed(ctx context.Context, slot time.Time) (booking.Outcome, bool, error) {
	return p.scanOne(ctx, `
SELECT run_id, status, slot, venue_id, venue_name, reservation_id, reason, created_at
FROM booking_outcomes
WHERE status=$1 AND slot=$2
ORDER BY id DESC LIMIT 1`, string(booking.StatusConfirmed), slot)
}

func (p *PGRecorder) scanOne(ctx context.Context, sql string, args ...any) (booking.Outcome, bool, error) {
	var o booking.Outcome
	var status string
	err := p.db.QueryRow(ctx, sql, args...).
		Scan(&o.RunID, &status, &o.Slot, &o.VenueID, &o.VenueName, &o.ReservationID, &o.Reason, &o.At)
	if db.IsNotFound(err) {
		return booking.Outcome{}, false, nil
	}
	if err != nil {
		return booking.Outcome{}, false, db.WrapNotFound(err)
	}
	o.Status = booking.Status(status)
	return o, true, nil
}
