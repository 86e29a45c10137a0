package simulation

import (
	"sync/atomic"
)

// Progress observes a running simulation. Implementations must be safe for
// concurrent use; parallel runs report from several goroutines.
type Progress interface {
	TrialCompleted()
	RunCompleted(trials int, err error)
}

// Counter is an in-memory Progress whose counts can be polled while a run
// is in flight.
type Counter struct {
	trials atomic.Int64
	runs   atomic.Int64
	failed atomic.Int64
}

func (c *Counter) TrialCompleted() { c.trials.Add(1) }

func (c *Counter) RunCompleted(_ int, err error) {
	c.runs.Add(1)
	if err != nil {
		c.failed.Add(1)
	}
}

// Trials returns the number of completed trials across all runs.
func (c *Counter) Trials() int64 { return c.trials.Load() }

// Runs returns the number of finished runs, successful or not.
func (c *Counter) Runs() int64 { return c.runs.Load() }

// Failed returns the number of runs that ended in error.
func (c *Counter) Failed() int64 { return c.failed.Load() }

type multiProgress []Progress

func (m multiProgress) TrialCompleted() {
	for _, p := range m {
		p.TrialCompleted()
	}
}

func (m multiProgress) RunCompleted(trials int, err error) {
	for _, p := range m {
		p.RunCompleted(trials, err)
	}
}

type nopProgress struct{}

func (nopProgress) TrialCompleted()         {}
func (nopProgress) RunCompleted(int, error) {}
