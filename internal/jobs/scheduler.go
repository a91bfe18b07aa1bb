// Package jobs runs periodic background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const completionTimeout = 2 * time.Minute

// Completer marks lessons whose end time has passed as completed.
type Completer interface {
	CompletePast(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the completion sweep on the given cron spec, evaluated in loc.
func NewScheduler(spec string, loc *time.Location, completer Completer) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
		defer cancel()
		RunCompletion(ctx, completer)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule completion job %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("[CRON] scheduler started")
}

// Stop prevents new runs and returns a context that is done once running jobs finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunCompletion performs one completion sweep and logs its outcome.
func RunCompletion(ctx context.Context, completer Completer) {
	start := time.Now()
	n, err := completer.CompletePast(ctx)
	entry := log.WithFields(log.Fields{
		"completed": n,
		"duration":  time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("[JOB] completion sweep failed")
		return
	}
	if n > 0 {
		entry.Info("[JOB] completion sweep finished")
	}
}
