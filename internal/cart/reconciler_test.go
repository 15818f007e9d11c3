package cart

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopin/storefront-bff/internal/shopapi"
	"github.com/shopin/storefront-bff/pkg/types"
)

type stubSyncer struct {
	mu        sync.Mutex
	syncCalls [][]shopapi.SyncItem
	syncFn    func(items []shopapi.SyncItem) ([]shopapi.SyncItem, error)
	cartCalls int
	cartItems []shopapi.CartItem
	cartErr   error
}

func (s *stubSyncer) SyncCart(_ context.Context, _ string, items []shopapi.SyncItem) ([]shopapi.SyncItem, error) {
	s.mu.Lock()
	copied := make([]shopapi.SyncItem, len(items))
	copy(copied, items)
	s.syncCalls = append(s.syncCalls, copied)
	fn := s.syncFn
	s.mu.Unlock()

	if fn != nil {
		return fn(copied)
	}
	// Default: echo the request back, i.e. the server accepted everything.
	return copied, nil
}

func (s *stubSyncer) GetCart(_ context.Context, _ string) ([]shopapi.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartCalls++
	if s.cartErr != nil {
		return nil, s.cartErr
	}
	return s.cartItems, nil
}

func (s *stubSyncer) syncCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.syncCalls)
}

func (s *stubSyncer) lastSyncCall() []shopapi.SyncItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.syncCalls) == 0 {
		return nil
	}
	return s.syncCalls[len(s.syncCalls)-1]
}

func (s *stubSyncer) cartCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartCalls
}

func newTestReconciler(t *testing.T, syncer *stubSyncer, interval time.Duration) *Reconciler {
	t.Helper()
	rec, err := NewReconciler(ReconcilerParams{
		State:    twoLineState(),
		Token:    "tok",
		Interval: interval,
		Syncer:   syncer,
	})
	require.NoError(t, err)
	t.Cleanup(rec.Close)
	return rec
}

func hasNotice(notices []types.Notice, fragment string) bool {
	for _, n := range notices {
		if strings.Contains(n.Message, fragment) {
			return true
		}
	}
	return false
}

func TestDebounceCoalescesRapidMutations(t *testing.T) {
	syncer := &stubSyncer{}
	rec := newTestReconciler(t, syncer, 40*time.Millisecond)

	// Five rapid edits to the same line inside the quiet interval.
	for qty := 3; qty <= 5; qty++ {
		rec.SetQuantity("line-1", qty)
	}
	rec.SetQuantity("line-1", 4)
	rec.SetQuantity("line-1", 3)

	require.Eventually(t, func() bool { return syncer.syncCallCount() == 1 }, time.Second, 5*time.Millisecond)

	// Only the final quantity travels.
	call := syncer.lastSyncCall()
	require.Len(t, call, 2)
	assert.Contains(t, call, shopapi.SyncItem{VariantID: "v1", Qty: 3})

	require.Eventually(t, func() bool { return !rec.Pending() }, time.Second, 5*time.Millisecond)

	// A matching response must not trigger a refetch.
	assert.Equal(t, 0, syncer.cartCallCount())

	// No further syncs fire once quiet.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, syncer.syncCallCount())
}

func TestCorrectionTriggersRefetchAndNotice(t *testing.T) {
	syncer := &stubSyncer{
		syncFn: func(items []shopapi.SyncItem) ([]shopapi.SyncItem, error) {
			// Stock race: the server only grants 3 of v1.
			out := make([]shopapi.SyncItem, len(items))
			copy(out, items)
			for i := range out {
				if out[i].VariantID == "v1" {
					out[i].Qty = 3
				}
			}
			return out, nil
		},
		cartItems: []shopapi.CartItem{
			{
				ID:        "line-1",
				Product:   shopapi.ProductSummary{ID: "p1", Name: "Hoodie"},
				Variant:   shopapi.VariantSummary{ID: "v1", Name: "XL", Stock: intPtr(3)},
				Qty:       3,
				UnitPrice: decimal.RequireFromString("19.99"),
			},
		},
	}
	rec := newTestReconciler(t, syncer, 20*time.Millisecond)

	rec.SetQuantity("line-1", 5)

	require.Eventually(t, func() bool { return syncer.cartCallCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !rec.Pending() }, time.Second, 5*time.Millisecond)

	lines := rec.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, LineSynced, lines[0].State)

	assert.True(t, hasNotice(rec.DrainNotices(), "adjusted due to stock"))
}

func TestSyncFailureKeepsLocalStateAndPendingFlag(t *testing.T) {
	syncer := &stubSyncer{
		syncFn: func([]shopapi.SyncItem) ([]shopapi.SyncItem, error) {
			return nil, context.DeadlineExceeded
		},
	}
	rec := newTestReconciler(t, syncer, 20*time.Millisecond)

	rec.SetQuantity("line-1", 4)

	require.Eventually(t, func() bool { return syncer.syncCallCount() == 1 }, time.Second, 5*time.Millisecond)

	// Optimistic edits survive the failure and stay flagged for retry.
	assert.True(t, rec.Pending())
	assert.Equal(t, 4, rec.Lines()[0].Quantity)
	assert.True(t, hasNotice(rec.DrainNotices(), "couldn't save"))
	assert.Equal(t, 0, syncer.cartCallCount())
}

func TestFlushBypassesDebounce(t *testing.T) {
	syncer := &stubSyncer{}
	rec := newTestReconciler(t, syncer, time.Hour)

	rec.SetQuantity("line-1", 4)
	require.Equal(t, 0, syncer.syncCallCount())

	rec.Flush(context.Background())

	assert.Equal(t, 1, syncer.syncCallCount())
	assert.Contains(t, syncer.lastSyncCall(), shopapi.SyncItem{VariantID: "v1", Qty: 4})
	assert.False(t, rec.Pending())
}

func TestFlushWithoutPendingChangesIsANoop(t *testing.T) {
	syncer := &stubSyncer{}
	rec := newTestReconciler(t, syncer, time.Hour)

	rec.Flush(context.Background())
	assert.Equal(t, 0, syncer.syncCallCount())
}

func TestIncreaseAtCeilingRaisesOnlyNLeftNotice(t *testing.T) {
	syncer := &stubSyncer{}
	rec := newTestReconciler(t, syncer, time.Hour)

	rec.SetQuantity("line-1", 5)
	res := rec.Increase("line-1")
	assert.False(t, res.Changed)

	assert.True(t, hasNotice(rec.DrainNotices(), "only 5 left"))
	assert.Equal(t, 5, rec.Lines()[0].Quantity)
}

func TestRemovalBeforeDebounceNeverReachesServerForThatLine(t *testing.T) {
	syncer := &stubSyncer{}
	rec := newTestReconciler(t, syncer, 40*time.Millisecond)

	rec.Increase("line-2")
	rec.Remove("line-2")

	require.Eventually(t, func() bool { return syncer.syncCallCount() == 1 }, time.Second, 5*time.Millisecond)

	for _, item := range syncer.lastSyncCall() {
		assert.NotEqual(t, "v2", item.VariantID)
	}
}

func TestCloseCancelsScheduledSync(t *testing.T) {
	syncer := &stubSyncer{}
	rec := newTestReconciler(t, syncer, 30*time.Millisecond)

	rec.SetQuantity("line-1", 4)
	rec.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, syncer.syncCallCount())
}
