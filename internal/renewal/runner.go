package renewal

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// defaultInterval is how often the runner triggers a renewal pass.
// Subscriptions not yet due are excluded, so early triggers are safe.
const defaultInterval = time.Hour

// Runner periodically drives the expire and renew passes.
type Runner struct {
	service  *Service
	interval time.Duration
}

// NewRunner constructs a Runner; interval <= 0 uses the default.
func NewRunner(service *Service, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Runner{service: service, interval: interval}
}

// Run executes one pass immediately, then on every tick until the
// context is done.
func (r *Runner) Run(ctx context.Context) {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// runOnce expires lapsed cancellations, then renews due subscriptions.
func (r *Runner) runOnce(ctx context.Context) {
	expired, errExpire := r.service.ExpireCanceled(ctx)
	if errExpire != nil {
		log.WithError(errExpire).Warn("expire pass failed")
	} else if expired > 0 {
		log.WithField("expired", expired).Info("retired lapsed cancellations")
	}

	batch, errRenew := r.service.RenewDue(ctx)
	if errRenew != nil {
		log.WithError(errRenew).Warn("renewal pass failed")
		return
	}
	if batch.Renewed > 0 || batch.Failed > 0 {
		log.WithFields(log.Fields{
			"renewed": batch.Renewed,
			"failed":  batch.Failed,
		}).Info("renewal pass completed")
	}
}
