package confirmation

import (
	"context"
	"time"

	"agenda_backend/internal/meetings/repository"
	"agenda_backend/internal/watch"
	"agenda_backend/platform/config"
	"agenda_backend/platform/logger"
)

const (
	defaultReconcileInterval = 10 * time.Minute
	defaultLookback          = 7 * 24 * time.Hour
	defaultLookahead         = 30 * 24 * time.Hour
)

// WatchableLister lists meetings whose confirmation is still open.
type WatchableLister interface {
	ListWatchable(ctx context.Context, from, to time.Time) ([]repository.Meeting, error)
}

// WatchStore is the registry surface the reconciler needs.
type WatchStore interface {
	Add(phone string, meetingID int64)
	Get(meetingID int64) (watch.Watch, bool)
}

// Reconciler restores watches for open meetings, so a restart does not lose
// the correlation of replies to requests sent before it.
type Reconciler struct {
	meetings  WatchableLister
	watches   WatchStore
	formatter PhoneFormatter
	interval  time.Duration
	lookback  time.Duration
	lookahead time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewReconciler builds a reconciler; zero durations in cfg fall back to the defaults.
func NewReconciler(cfg config.ConfirmationConfig, meetings WatchableLister, watches WatchStore, formatter PhoneFormatter, log *logger.Logger) *Reconciler {
	r := &Reconciler{
		meetings:  meetings,
		watches:   watches,
		formatter: formatter,
		interval:  cfg.GetWatchReconcileInterval(),
		lookback:  cfg.GetWatchLookback(),
		lookahead: cfg.GetWatchLookahead(),
		log:       log,
		now:       time.Now,
	}
	if r.interval <= 0 {
		r.interval = defaultReconcileInterval
	}
	if r.lookback <= 0 {
		r.lookback = defaultLookback
	}
	if r.lookahead <= 0 {
		r.lookahead = defaultLookahead
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	return r
}

// Reconcile adds a watch for every open meeting in the window and returns how
// many were added. Meetings already watched under the same phone keep their
// registration order.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	now := r.now()
	items, err := r.meetings.ListWatchable(ctx, now.Add(-r.lookback), now.Add(r.lookahead))
	if err != nil {
		return 0, err
	}

	added := 0
	for _, m := range items {
		phone := r.formatter.Format(m.ClientPhone)
		if phone == "" {
			continue
		}
		if w, ok := r.watches.Get(m.ID); ok && w.Phone == phone {
			continue
		}
		r.watches.Add(phone, m.ID)
		added++
	}
	return added, nil
}

// Run reconciles immediately and then on every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
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

func (r *Reconciler) runOnce(ctx context.Context) {
	added, err := r.Reconcile(ctx)
	if err != nil {
		r.log.Warn("watch reconcile failed", "error", err)
		return
	}
	if added > 0 {
		r.log.Info("watches reconciled", "added", added)
	}
}
