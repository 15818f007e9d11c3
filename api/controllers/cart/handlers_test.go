package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopin/storefront-bff/api/middleware"
	cartsvc "github.com/shopin/storefront-bff/internal/cart"
	pkgerrors "github.com/shopin/storefront-bff/pkg/errors"
)

type stubCartService struct {
	view *cartsvc.View
	err  error

	lastLineID string
	lastQty    int
	lastUser   string
	lastToken  string
	calls      map[string]int
}

func newStubCartService() *stubCartService {
	return &stubCartService{
		view:  &cartsvc.View{Lines: []cartsvc.Line{}, Subtotal: decimal.Zero},
		calls: map[string]int{},
	}
}

func (s *stubCartService) record(op, userID, token string) (*cartsvc.View, error) {
	s.calls[op]++
	s.lastUser = userID
	s.lastToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func (s *stubCartService) View(_ context.Context, userID, token string) (*cartsvc.View, error) {
	return s.record("view", userID, token)
}

func (s *stubCartService) SetQuantity(_ context.Context, userID, token, lineID string, qty int) (*cartsvc.View, error) {
	s.lastLineID = lineID
	s.lastQty = qty
	return s.record("set", userID, token)
}

func (s *stubCartService) Increase(_ context.Context, userID, token, lineID string) (*cartsvc.View, error) {
	s.lastLineID = lineID
	return s.record("increase", userID, token)
}

func (s *stubCartService) Decrease(_ context.Context, userID, token, lineID string) (*cartsvc.View, error) {
	s.lastLineID = lineID
	return s.record("decrease", userID, token)
}

func (s *stubCartService) Remove(_ context.Context, userID, token, lineID string) (*cartsvc.View, error) {
	s.lastLineID = lineID
	return s.record("remove", userID, token)
}

func (s *stubCartService) Flush(_ context.Context, userID, token string) (*cartsvc.View, error) {
	return s.record("flush", userID, token)
}

func (s *stubCartService) Run(context.Context)      {}
func (s *stubCartService) Shutdown(context.Context) {}

func newCartRouter(svc cartsvc.Service) chi.Router {
	deps := Deps{Service: svc}
	r := chi.NewRouter()
	r.Get("/cart", Fetch(deps))
	r.Post("/cart/items/{lineID}", SetQuantity(deps))
	r.Post("/cart/items/{lineID}/increase", Increase(deps))
	r.Post("/cart/items/{lineID}/decrease", Decrease(deps))
	r.Delete("/cart/items/{lineID}", Remove(deps))
	r.Post("/cart/flush", Flush(deps))
	return r
}

func doCartRequest(t *testing.T, router chi.Router, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := middleware.WithUserID(req.Context(), "user-1")
	ctx = middleware.WithToken(ctx, "token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func TestFetchReturnsView(t *testing.T) {
	svc := newStubCartService()
	svc.view.Pending = true
	rec := doCartRequest(t, newCartRouter(svc), http.MethodGet, "/cart", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.calls["view"])
	assert.Equal(t, "user-1", svc.lastUser)
	assert.Equal(t, "token-1", svc.lastToken)

	var envelope struct {
		Data cartsvc.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Pending)
}

func TestSetQuantityPassesLineAndQty(t *testing.T) {
	svc := newStubCartService()
	rec := doCartRequest(t, newCartRouter(svc), http.MethodPost, "/cart/items/line-9", map[string]any{"quantity": 4})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line-9", svc.lastLineID)
	assert.Equal(t, 4, svc.lastQty)
}

func TestSetQuantityAcceptsExplicitZero(t *testing.T) {
	svc := newStubCartService()
	rec := doCartRequest(t, newCartRouter(svc), http.MethodPost, "/cart/items/line-9", map[string]any{"quantity": 0})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.lastQty)
}

func TestSetQuantityRejectsMissingQuantity(t *testing.T) {
	svc := newStubCartService()
	rec := doCartRequest(t, newCartRouter(svc), http.MethodPost, "/cart/items/line-9", map[string]any{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls["set"])
}

func TestSetQuantityRejectsNegative(t *testing.T) {
	svc := newStubCartService()
	rec := doCartRequest(t, newCartRouter(svc), http.MethodPost, "/cart/items/line-9", map[string]any{"quantity": -2})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls["set"])
}

func TestIncreaseAndDecreaseRouteLineID(t *testing.T) {
	svc := newStubCartService()
	router := newCartRouter(svc)

	rec := doCartRequest(t, router, http.MethodPost, "/cart/items/line-2/increase", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line-2", svc.lastLineID)
	assert.Equal(t, 1, svc.calls["increase"])

	rec = doCartRequest(t, router, http.MethodPost, "/cart/items/line-3/decrease", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line-3", svc.lastLineID)
	assert.Equal(t, 1, svc.calls["decrease"])
}

func TestRemoveUsesDeleteVerb(t *testing.T) {
	svc := newStubCartService()
	rec := doCartRequest(t, newCartRouter(svc), http.MethodDelete, "/cart/items/line-5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "line-5", svc.lastLineID)
	assert.Equal(t, 1, svc.calls["remove"])
}

func TestFlushInvokesService(t *testing.T) {
	svc := newStubCartService()
	rec := doCartRequest(t, newCartRouter(svc), http.MethodPost, "/cart/flush", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.calls["flush"])
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	svc := newStubCartService()
	svc.err = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	rec := doCartRequest(t, newCartRouter(svc), http.MethodPost, "/cart/items/nope/increase", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeNotFound), envelope.Error.Code)
	assert.Equal(t, "cart item not found", envelope.Error.Message)
}
