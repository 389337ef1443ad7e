package FieldSync

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// ErrDrainInProgress is returned when a drain is requested while another
// drain still runs.
var ErrDrainInProgress = errors.New("queue drain already in progress")

// DrainResult summarizes one pass over the submission queue.
type DrainResult struct {
	// Delivered submissions were accepted and removed from the queue.
	Delivered int
	// Retained submissions hit a transient failure and stay queued.
	Retained int
	// Failed submissions were refused permanently and moved to dead letters.
	Failed int
}

// SyncDriver drains the submission queue whenever connectivity returns and
// on a fixed schedule while the app is open.
type SyncDriver struct {
	Store     *Store
	Submitter *Submitter
	// Schedule is a cron spec for periodic drains. Empty means the
	// default of every five minutes.
	Schedule string

	draining atomic.Bool
	cron     *cron.Cron
	stop     chan struct{}
}

// DrainOnce walks the queue oldest first and attempts each submission. At
// most one drain runs at a time; concurrent calls get ErrDrainInProgress.
func (d *SyncDriver) DrainOnce(ctx context.Context) (DrainResult, error) {
	if !d.draining.CompareAndSwap(false, true) {
		return DrainResult{}, ErrDrainInProgress
	}
	defer d.draining.Store(false)

	var result DrainResult

	queue, err := d.Store.Queue()
	if err != nil {
		return result, err
	}

	for _, sub := range queue {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		attempt := d.Submitter.Post(ctx, sub.Payload)
		switch {
		case attempt.Classification == Delivered:
			if err := d.Store.Remove(sub.ID); err != nil {
				return result, err
			}
			if sub.DraftKey != "" {
				if err := d.Store.ClearDraft(sub.DraftKey); err != nil {
					return result, err
				}
			}
			result.Delivered++

		case attempt.Classification.retryable():
			// Transient failure. Keep the entry and move on so one
			// struggling submission cannot block the rest of the queue.
			result.Retained++

		default:
			if err := d.Store.MoveToDeadLetter(sub, attempt.StatusCode); err != nil {
				return result, err
			}
			log.Printf("Submission %s permanently refused (status %d), moved to dead letters",
				sub.LocalID, attempt.StatusCode)
			result.Failed++
		}
	}

	return result, nil
}

// Start begins the periodic drain schedule and listens for connectivity
// events on online. An initial drain runs immediately.
func (d *SyncDriver) Start(online <-chan struct{}) error {
	schedule := d.Schedule
	if schedule == "" {
		schedule = "@every 5m"
	}

	d.cron = cron.New()
	_, err := d.cron.AddFunc(schedule, func() {
		d.drain("scheduled")
	})
	if err != nil {
		return err
	}
	d.cron.Start()

	d.stop = make(chan struct{})
	if online != nil {
		go func() {
			for {
				select {
				case <-d.stop:
					return
				case _, ok := <-online:
					if !ok {
						return
					}
					d.drain("connectivity restored")
				}
			}
		}()
	}

	d.drain("startup")
	return nil
}

// Stop halts the schedule and the connectivity listener. A running drain
// finishes its current pass.
func (d *SyncDriver) Stop() {
	if d.cron != nil {
		d.cron.Stop()
	}
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

func (d *SyncDriver) drain(reason string) {
	result, err := d.DrainOnce(context.Background())
	if errors.Is(err, ErrDrainInProgress) {
		return
	}
	if err != nil {
		log.Printf("Queue drain (%s) failed: %v", reason, err)
		return
	}
	if result.Delivered > 0 || result.Retained > 0 || result.Failed > 0 {
		log.Printf("Queue drain (%s): delivered=%d retained=%d failed=%d",
			reason, result.Delivered, result.Retained, result.Failed)
	}
}
