package api

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

// Parser accepts standard 5-field cron expressions and descriptors such as
// "@every 5m".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a reload schedule.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := Parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// Reloader reloads the pool on a schedule.
type Reloader struct {
	cron *cron.Cron
}

// NewReloader schedules pool.Reload at expr. Overlapping runs are skipped.
func NewReloader(ctx context.Context, expr string, pool Pool, log logr.Logger) (*Reloader, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(schedule, cron.FuncJob(func() {
		if err := pool.Reload(ctx); err != nil {
			log.Error(err, "scheduled reload failed")
			return
		}
		log.V(1).Info("pool reloaded")
	}))
	return &Reloader{cron: c}, nil
}

// Start runs the schedule in the background.
func (r *Reloader) Start() {
	r.cron.Start()
}

// Stop stops the schedule and waits for a running reload to finish.
func (r *Reloader) Stop() {
	<-r.cron.Stop().Done()
}
