package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/shopin/storefront-bff/pkg/errors"
	"github.com/shopin/storefront-bff/pkg/logger"
	"github.com/shopin/storefront-bff/pkg/metrics"
	"github.com/shopin/storefront-bff/pkg/types"
)

// View is the cart payload returned to the storefront: the optimistic
// lines, derived totals, and any notices accumulated since the last call.
type View struct {
	Lines    []Line          `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Pending  bool            `json:"pending"`
	Notices  []types.Notice  `json:"notices,omitempty"`
}

// Service owns one reconciler per authenticated session.
type Service interface {
	View(ctx context.Context, userID, token string) (*View, error)
	SetQuantity(ctx context.Context, userID, token, lineID string, quantity int) (*View, error)
	Increase(ctx context.Context, userID, token, lineID string) (*View, error)
	Decrease(ctx context.Context, userID, token, lineID string) (*View, error)
	Remove(ctx context.Context, userID, token, lineID string) (*View, error)
	// Flush pushes any unsynced state upstream immediately, bypassing the
	// debounce. Called when the storefront signals navigation away.
	Flush(ctx context.Context, userID, token string) (*View, error)
	// Run drives idle-session eviction until the context ends.
	Run(ctx context.Context)
	// Shutdown flushes every live session, best effort.
	Shutdown(ctx context.Context)
}

type service struct {
	mu       sync.Mutex
	sessions map[string]*Reconciler

	api       Syncer
	snapshots SnapshotStore
	interval  time.Duration
	idleAfter time.Duration
	logg      *logger.Logger
	metrics   *metrics.CartSyncMetrics
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	API              Syncer
	Snapshots        SnapshotStore
	DebounceInterval time.Duration
	SessionIdle      time.Duration
	Logger           *logger.Logger
	Metrics          *metrics.CartSyncMetrics
}

// NewService validates the wiring and returns the session-cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("commerce api client required")
	}
	if params.DebounceInterval <= 0 {
		params.DebounceInterval = 500 * time.Millisecond
	}
	if params.SessionIdle <= 0 {
		params.SessionIdle = 30 * time.Minute
	}
	return &service{
		sessions:  map[string]*Reconciler{},
		api:       params.API,
		snapshots: params.Snapshots,
		interval:  params.DebounceInterval,
		idleAfter: params.SessionIdle,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

func (s *service) View(ctx context.Context, userID, token string) (*View, error) {
	rec, err := s.session(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	return s.view(rec), nil
}

func (s *service) SetQuantity(ctx context.Context, userID, token, lineID string, quantity int) (*View, error) {
	return s.apply(ctx, userID, token, lineID, func(rec *Reconciler) MutationResult {
		return rec.SetQuantity(lineID, quantity)
	}, true)
}

func (s *service) Increase(ctx context.Context, userID, token, lineID string) (*View, error) {
	return s.apply(ctx, userID, token, lineID, func(rec *Reconciler) MutationResult {
		return rec.Increase(lineID)
	}, true)
}

func (s *service) Decrease(ctx context.Context, userID, token, lineID string) (*View, error) {
	return s.apply(ctx, userID, token, lineID, func(rec *Reconciler) MutationResult {
		return rec.Decrease(lineID)
	}, true)
}

func (s *service) Remove(ctx context.Context, userID, token, lineID string) (*View, error) {
	// Removal is idempotent: a line that is already gone is not an error.
	return s.apply(ctx, userID, token, lineID, func(rec *Reconciler) MutationResult {
		return rec.Remove(lineID)
	}, false)
}

func (s *service) apply(ctx context.Context, userID, token, lineID string, op func(*Reconciler) MutationResult, requireFound bool) (*View, error) {
	rec, err := s.session(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	res := op(rec)
	if !res.Found && requireFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").WithDetails(map[string]any{"line_id": lineID})
	}
	s.persist(ctx, userID, rec)
	return s.view(rec), nil
}

func (s *service) Flush(ctx context.Context, userID, token string) (*View, error) {
	rec, err := s.session(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	rec.Flush(ctx)
	s.persist(ctx, userID, rec)
	return s.view(rec), nil
}

func (s *service) view(rec *Reconciler) *View {
	lines := rec.Lines()
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	return &View{
		Lines:    lines,
		Subtotal: subtotal,
		Pending:  rec.Pending(),
		Notices:  rec.DrainNotices(),
	}
}

// session returns the live reconciler for the user, hydrating from the
// snapshot store or the upstream cart when none exists yet.
func (s *service) session(ctx context.Context, userID, token string) (*Reconciler, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}

	s.mu.Lock()
	if rec, ok := s.sessions[userID]; ok {
		s.mu.Unlock()
		rec.UpdateToken(token)
		return rec, nil
	}
	s.mu.Unlock()

	state, err := s.hydrate(ctx, userID, token)
	if err != nil {
		return nil, err
	}

	rec, err := NewReconciler(ReconcilerParams{
		State:    state,
		Token:    token,
		Interval: s.interval,
		Syncer:   s.api,
		Logger:   s.logg,
		Metrics:  s.metrics,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart reconciler")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[userID]; ok {
		// Another request hydrated the session first; discard ours.
		rec.Close()
		existing.UpdateToken(token)
		return existing, nil
	}
	s.sessions[userID] = rec
	return rec, nil
}

func (s *service) hydrate(ctx context.Context, userID, token string) (*State, error) {
	if s.snapshots != nil {
		snap, err := s.snapshots.Load(ctx, userID)
		if err != nil && s.logg != nil {
			s.logg.Error(ctx, "cart.snapshot.load_failed", err)
		}
		if snap != nil {
			return NewStateFromLines(snap.Lines, snap.Pending), nil
		}
	}

	items, err := s.api.GetCart(ctx, token)
	if err != nil {
		return nil, err
	}
	return NewState(items), nil
}

func (s *service) persist(ctx context.Context, userID string, rec *Reconciler) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, userID, rec.Snapshot()); err != nil && s.logg != nil {
		s.logg.Error(ctx, "cart.snapshot.save_failed", err)
	}
}

func (s *service) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(ctx, time.Now())
		}
	}
}

func (s *service) evictIdle(ctx context.Context, now time.Time) {
	s.mu.Lock()
	idle := make(map[string]*Reconciler)
	for userID, rec := range s.sessions {
		if now.Sub(rec.LastTouched()) >= s.idleAfter {
			idle[userID] = rec
			delete(s.sessions, userID)
		}
	}
	s.mu.Unlock()

	for userID, rec := range idle {
		rec.Flush(ctx)
		s.persist(ctx, userID, rec)
		rec.Close()
		if s.logg != nil {
			lctx := s.logg.WithUserID(ctx, userID)
			s.logg.Debug(lctx, "cart.session.evicted")
		}
	}
}

func (s *service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	all := make(map[string]*Reconciler, len(s.sessions))
	for userID, rec := range s.sessions {
		all[userID] = rec
	}
	s.sessions = map[string]*Reconciler{}
	s.mu.Unlock()

	for userID, rec := range all {
		rec.Flush(ctx)
		s.persist(ctx, userID, rec)
		rec.Close()
	}
}
