package cart

import (
	"github.com/shopspring/decimal"

	"github.com/shopin/storefront-bff/internal/shopapi"
)

// LineState tracks where a line sits in the reconciliation cycle.
type LineState string

const (
	// LineSynced means the quantity matches the last confirmed server state.
	LineSynced LineState = "synced"
	// LinePending means a local edit has not been confirmed upstream yet.
	LinePending LineState = "pending"
)

// Line is one optimistic cart line. Quantity may run ahead of the server
// until the next sync; the server remains the final authority.
type Line struct {
	ID          string          `json:"id"`
	VariantID   string          `json:"variant_id"`
	ProductName string          `json:"product_name"`
	VariantName string          `json:"variant_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	MaxQuantity *int            `json:"max_quantity,omitempty"`
	State       LineState       `json:"state"`
}

// Subtotal derives the line total from the snapshot price. Prices are never
// recomputed locally.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is the in-memory cart for one user session. It is not safe for
// concurrent use; the owning reconciler serializes access.
type State struct {
	lines   []Line
	pending bool
}

// NewState builds local state from the authoritative upstream cart.
func NewState(items []shopapi.CartItem) *State {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			ID:          item.ID,
			VariantID:   item.Variant.ID,
			ProductName: item.Product.Name,
			VariantName: item.Variant.Name,
			Quantity:    item.Qty,
			UnitPrice:   item.UnitPrice,
			MaxQuantity: item.Variant.Stock,
			State:       LineSynced,
		})
	}
	return &State{lines: lines}
}

// NewStateFromLines restores local state from a persisted snapshot.
func NewStateFromLines(lines []Line, pending bool) *State {
	copied := make([]Line, len(lines))
	copy(copied, lines)
	return &State{lines: copied, pending: pending}
}

// Lines returns a copy of the current lines.
func (s *State) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Pending reports whether unflushed local mutations exist.
func (s *State) Pending() bool {
	return s.pending
}

// ClearPending marks the state as confirmed by the server.
func (s *State) ClearPending() {
	s.pending = false
	for i := range s.lines {
		s.lines[i].State = LineSynced
	}
}

// Subtotal sums the line subtotals.
func (s *State) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// MutationResult describes what a local edit did, so callers can surface
// the right notice without re-deriving it.
type MutationResult struct {
	Found     bool
	Changed   bool
	Removed   bool
	AtCeiling bool
	// Ceiling carries MaxQuantity when the edit was rejected at the ceiling.
	Ceiling int
}

// SetQuantity applies one optimistic edit: the quantity is clamped to
// [0, MaxQuantity] before any network round-trip, and a quantity of zero
// removes the line instead of keeping a zero row.
func (s *State) SetQuantity(lineID string, quantity int) MutationResult {
	idx := s.indexOf(lineID)
	if idx < 0 {
		return MutationResult{}
	}
	line := &s.lines[idx]

	if quantity < 0 {
		quantity = 0
	}
	clamped := false
	if line.MaxQuantity != nil && quantity > *line.MaxQuantity {
		quantity = *line.MaxQuantity
		clamped = true
		if line.Quantity == quantity {
			// Already at the stock ceiling; reject without touching state.
			return MutationResult{Found: true, AtCeiling: true, Ceiling: quantity}
		}
	}

	if quantity == 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
		s.pending = true
		return MutationResult{Found: true, Changed: true, Removed: true}
	}

	if line.Quantity == quantity {
		return MutationResult{Found: true}
	}
	line.Quantity = quantity
	line.State = LinePending
	s.pending = true
	res := MutationResult{Found: true, Changed: true}
	if clamped {
		res.AtCeiling = true
		res.Ceiling = quantity
	}
	return res
}

// Increase bumps the quantity by one, refusing at the stock ceiling.
func (s *State) Increase(lineID string) MutationResult {
	idx := s.indexOf(lineID)
	if idx < 0 {
		return MutationResult{}
	}
	return s.SetQuantity(lineID, s.lines[idx].Quantity+1)
}

// Decrease lowers the quantity by one but never below one; removal is an
// explicit action, not a side effect of decrementing.
func (s *State) Decrease(lineID string) MutationResult {
	idx := s.indexOf(lineID)
	if idx < 0 {
		return MutationResult{}
	}
	if s.lines[idx].Quantity <= 1 {
		return MutationResult{Found: true}
	}
	return s.SetQuantity(lineID, s.lines[idx].Quantity-1)
}

// Remove drops the line entirely. Removing an already-removed line is a
// no-op.
func (s *State) Remove(lineID string) MutationResult {
	return s.SetQuantity(lineID, 0)
}

// SyncPayload collects every line with a resolved variant id for the bulk
// sync call. Lines without one cannot be synced; they stay visible locally
// and are reported via the skipped count.
func (s *State) SyncPayload() (items []shopapi.SyncItem, skipped int) {
	for _, l := range s.lines {
		if l.VariantID == "" {
			skipped++
			continue
		}
		items = append(items, shopapi.SyncItem{VariantID: l.VariantID, Qty: l.Quantity})
	}
	return items, skipped
}

// Diverges reports whether the server settled on different quantities than
// the local state holds, which signals a correction (e.g. a stock race).
func (s *State) Diverges(serverItems []shopapi.SyncItem) bool {
	serverQty := make(map[string]int, len(serverItems))
	for _, item := range serverItems {
		serverQty[item.VariantID] = item.Qty
	}
	for _, l := range s.lines {
		if l.VariantID == "" {
			continue
		}
		if qty, ok := serverQty[l.VariantID]; !ok || qty != l.Quantity {
			return true
		}
	}
	return false
}

func (s *State) indexOf(lineID string) int {
	for i := range s.lines {
		if s.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}
