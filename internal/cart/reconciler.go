package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopin/storefront-bff/internal/shopapi"
	"github.com/shopin/storefront-bff/pkg/logger"
	"github.com/shopin/storefront-bff/pkg/metrics"
	"github.com/shopin/storefront-bff/pkg/types"
)

// Syncer is the slice of the commerce API the reconciler needs.
type Syncer interface {
	SyncCart(ctx context.Context, token string, items []shopapi.SyncItem) ([]shopapi.SyncItem, error)
	GetCart(ctx context.Context, token string) ([]shopapi.CartItem, error)
}

const syncCallTimeout = 15 * time.Second

// Reconciler keeps one user's optimistic cart state eventually consistent
// with the upstream cart. Local edits apply instantly and re-arm a debounce
// timer; when the quiet period elapses, every dirty quantity goes upstream
// in a single bulk sync. A response that disagrees with local state is a
// correction: local optimism is discarded, the full cart is refetched, and
// the user gets a non-blocking notice.
type Reconciler struct {
	mu    sync.Mutex
	state *State
	token string

	interval time.Duration
	timer    *time.Timer

	// generation marks the most recently dispatched sync so stale
	// responses cannot clobber newer state.
	generation uint64
	// mutSeq counts local mutations; a response is only applied when no
	// further edits happened while it was in flight.
	mutSeq uint64

	syncer  Syncer
	logg    *logger.Logger
	metrics *metrics.CartSyncMetrics

	notices     []types.Notice
	lastTouched time.Time
	closed      bool
}

// ReconcilerParams wires a reconciler for one session.
type ReconcilerParams struct {
	State    *State
	Token    string
	Interval time.Duration
	Syncer   Syncer
	Logger   *logger.Logger
	Metrics  *metrics.CartSyncMetrics
}

// NewReconciler validates the wiring and returns a ready reconciler.
func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.State == nil {
		return nil, fmt.Errorf("cart state required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	if params.Interval <= 0 {
		params.Interval = 500 * time.Millisecond
	}
	return &Reconciler{
		state:       params.State,
		token:       params.Token,
		interval:    params.Interval,
		syncer:      params.Syncer,
		logg:        params.Logger,
		metrics:     params.Metrics,
		lastTouched: time.Now(),
	}, nil
}

// UpdateToken refreshes the bearer token used for debounce-time syncs, so a
// token rotation between requests does not strand the session.
func (r *Reconciler) UpdateToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token != "" {
		r.token = token
	}
	r.lastTouched = time.Now()
}

// LastTouched reports the last local activity, for idle eviction.
func (r *Reconciler) LastTouched() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTouched
}

// Lines returns a copy of the current optimistic lines.
func (r *Reconciler) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Lines()
}

// Pending reports whether unflushed local mutations exist.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Pending()
}

// Snapshot captures the current state for persistence.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{Lines: r.state.Lines(), Pending: r.state.Pending(), SavedAt: time.Now()}
}

// DrainNotices returns and clears the accumulated user notices.
func (r *Reconciler) DrainNotices() []types.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// SetQuantity applies one optimistic edit and re-arms the debounce timer.
func (r *Reconciler) SetQuantity(lineID string, quantity int) MutationResult {
	return r.mutate(func(s *State) MutationResult { return s.SetQuantity(lineID, quantity) })
}

// Increase bumps a line by one, surfacing an "only N left" notice at the
// stock ceiling instead of mutating.
func (r *Reconciler) Increase(lineID string) MutationResult {
	return r.mutate(func(s *State) MutationResult { return s.Increase(lineID) })
}

// Decrease lowers a line by one, never below one.
func (r *Reconciler) Decrease(lineID string) MutationResult {
	return r.mutate(func(s *State) MutationResult { return s.Decrease(lineID) })
}

// Remove drops a line; removing an absent line is a no-op.
func (r *Reconciler) Remove(lineID string) MutationResult {
	return r.mutate(func(s *State) MutationResult { return s.Remove(lineID) })
}

func (r *Reconciler) mutate(apply func(*State) MutationResult) MutationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return MutationResult{}
	}
	res := apply(r.state)
	r.lastTouched = time.Now()
	if res.AtCeiling {
		r.notices = append(r.notices, types.WarningNotice(fmt.Sprintf("only %d left in stock", res.Ceiling)))
	}
	if res.Changed {
		r.mutSeq++
		r.scheduleLocked()
	}
	return res
}

// scheduleLocked (re)arms the debounce timer, cancelling any previously
// scheduled sync. Caller holds the lock.
func (r *Reconciler) scheduleLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncCallTimeout)
		defer cancel()
		r.sync(ctx, "debounce")
	})
}

// Flush cancels the pending debounce and performs one final best-effort
// sync with the current local state. Used when the session is being torn
// down; errors are logged, not retried.
func (r *Reconciler) Flush(ctx context.Context) {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	pending := r.state.Pending()
	r.mu.Unlock()

	if pending {
		r.sync(ctx, "flush")
	}
}

// Close stops the debounce timer without syncing.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// sync performs one bulk sync round: push local quantities, detect server
// corrections, refetch on divergence. Transient failures leave local state
// untouched and the pending flag set so a later cycle retries.
func (r *Reconciler) sync(ctx context.Context, trigger string) {
	r.mu.Lock()
	if r.closed || !r.state.Pending() {
		r.mu.Unlock()
		return
	}
	payload, skipped := r.state.SyncPayload()
	token := r.token
	r.generation++
	gen := r.generation
	seq := r.mutSeq
	r.mu.Unlock()

	if skipped > 0 {
		r.metrics.IncUnsyncableLine()
		if r.logg != nil {
			lctx := r.logg.WithField(ctx, "skipped_lines", skipped)
			r.logg.Warn(lctx, "cart.sync.unsyncable_lines")
		}
	}

	start := time.Now()
	serverItems, err := r.syncer.SyncCart(ctx, token, payload)
	r.metrics.ObserveSyncDuration(trigger, time.Since(start))
	if err != nil {
		r.metrics.IncSync("error")
		if r.logg != nil {
			r.logg.Error(ctx, "cart.sync.failed", err)
		}
		r.mu.Lock()
		r.notices = append(r.notices, types.ErrorNotice("we couldn't save your cart changes, will retry shortly"))
		r.mu.Unlock()
		// Pending stays set; the next mutation or flush retries with the
		// latest local state.
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	stale := gen != r.generation || seq != r.mutSeq
	diverged := r.state.Diverges(serverItems)
	if !diverged {
		if !stale {
			r.state.ClearPending()
		}
		r.mu.Unlock()
		r.metrics.IncSync("ok")
		return
	}
	r.mu.Unlock()

	// Correction path: never trust a possibly-stale diff, always defer to a
	// fresh authoritative fetch.
	r.metrics.IncSync("corrected")
	r.metrics.IncCorrection()
	r.refetch(ctx, token, seq)
}

func (r *Reconciler) refetch(ctx context.Context, token string, seq uint64) {
	items, err := r.syncer.GetCart(ctx, token)
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "cart.refetch.failed", err)
		}
		r.mu.Lock()
		r.notices = append(r.notices, types.ErrorNotice("we couldn't refresh your cart, will retry shortly"))
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if seq != r.mutSeq {
		// New local edits arrived while the refetch was in flight; keep
		// them and let the next debounce cycle reconcile.
		return
	}
	r.state = NewState(items)
	r.notices = append(r.notices, types.WarningNotice("some items were adjusted due to stock"))
	if r.logg != nil {
		r.logg.Info(ctx, "cart.sync.corrected")
	}
}
