package session

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor deletes sessions older than a TTL on a cron schedule. The
// store itself never expires sessions; TTL enforcement is an explicit,
// opt-in policy imposed from outside.
type Janitor struct {
	store Store
	ttl   time.Duration
	sched cron.Schedule
	stop  chan struct{}
}

// NewJanitor creates a janitor sweeping on cronExpr (standard five-field
// syntax). ttl must be positive.
func NewJanitor(store Store, ttl time.Duration, cronExpr string) (*Janitor, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	return &Janitor{
		store: store,
		ttl:   ttl,
		sched: sched,
		stop:  make(chan struct{}),
	}, nil
}

// Start runs the sweep loop until Stop is called
func (j *Janitor) Start() {
	go j.loop()
}

// Stop terminates the sweep loop
func (j *Janitor) Stop() {
	close(j.stop)
}

func (j *Janitor) loop() {
	for {
		next := j.sched.Next(time.Now())
		select {
		case <-time.After(time.Until(next)):
			removed, err := j.Sweep(time.Now())
			if err != nil {
				log.Printf("session sweep: %v", err)
			} else if removed > 0 {
				log.Printf("session sweep removed %d expired sessions", removed)
			}
		case <-j.stop:
			return
		}
	}
}

// Sweep deletes every session whose age exceeds the TTL as of now.
// Returns how many sessions were removed.
func (j *Janitor) Sweep(now time.Time) (int, error) {
	summaries, err := j.store.List()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-j.ttl)
	removed := 0
	for _, s := range summaries {
		if s.CreatedAt.Before(cutoff) {
			if err := j.store.Delete(s.ID); err != nil && err != ErrNotFound {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
