package friends

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"xfriends/models"
)

// Reconciler applies a relationship change and brings the buckets and the
// visible search results back in line with the backend.
type Reconciler struct {
	remote      Remote
	partitioner *Partitioner
	settle      time.Duration
	rerun       func(ctx context.Context)
}

// NewReconciler builds a Reconciler. rerun repeats the last search and may
// be nil. settle is an extra wait between the reload and rerun, for
// backends that apply changes asynchronously.
func NewReconciler(remote Remote, p *Partitioner, settle time.Duration, rerun func(ctx context.Context)) *Reconciler {
	return &Reconciler{
		remote:      remote,
		partitioner: p,
		settle:      settle,
		rerun:       rerun,
	}
}

// UpdateFriendship sends action for e. On failure nothing local changes.
// On success it returns whatever Reconcile returns.
func (r *Reconciler) UpdateFriendship(ctx context.Context, e Entity, action models.FriendAction) error {
	if err := r.remote.UpdateFriend(ctx, e.ID, action); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Reconciler.UpdateFriendship",
			"user_id":  e.ID,
			"action":   action,
			"error":    err.Error(),
		}).Warn("Relationship update rejected")
		return fmt.Errorf("%s %s: %w", action, e.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Reconciler.UpdateFriendship",
		"user_id":  e.ID,
		"action":   action,
	}).Info("Relationship updated, reconciling")

	return r.Reconcile(ctx)
}

// Reconcile waits for a full bucket reload, then reruns the last search.
// The search is repeated even if some buckets failed to load.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	loadErr := r.partitioner.LoadAll(ctx)

	if r.settle > 0 {
		t := time.NewTimer(r.settle)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	if r.rerun != nil && ctx.Err() == nil {
		r.rerun(ctx)
	}
	return loadErr
}
