// Package scheduler fires booking runs on an in-process cron cadence. The
// booking window calculator still gates every invocation, so a generous
// cadence cannot double-book.
package scheduler

import (
	"context"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/example/poolside-scheduler/internal/log"
)

type Scheduler struct {
	c    *cron.Cron
	spec string
}

// New schedules job at the given cron spec (standard 5-field syntax) in loc.
func New(spec string, loc *time.Location, job func()) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, err
	}
	return &Scheduler{c: c, spec: spec}, nil
}

// Start runs the cron loop until ctx is cancelled, then waits for any
// in-flight job to finish.
func (s *Scheduler) Start(ctx context.Context) {
	logger := log.Logger()
	logger.Info().Str("cron", s.spec).Msg("trigger schedule started")
	s.c.Start()
	go func() {
		<-ctx.Done()
		<-s.c.Stop().Done()
	}()
}
