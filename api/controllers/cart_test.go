package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityahutama/pasarsegar-backend/pkg/types"
)

func doJSON(t *testing.T, handler http.Handler, method, path, identity, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req.Header.Set("X-Identity-Key", identity)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok, "expected object payload, got %T", envelope.Data)
	return data
}

func TestCartAddLineAndFetch(t *testing.T) {
	router := newCartRouter(t, newTestLedger(t))

	w := doJSON(t, router, http.MethodPost, "/cart/lines", "user-7", `{
		"product_id": "p-1",
		"product_name": "Mangga Harum Manis",
		"unit_price_base": 45000,
		"quantity": 2,
		"seller_id": "s-1",
		"expiration_date": "2026-09-02T00:00:00Z"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	line := decodeData(t, w)
	assert.Equal(t, "p-1", line["product_id"])
	assert.Equal(t, float64(4), line["days_remaining"])
	quote := line["quote"].(map[string]any)
	assert.Equal(t, float64(36000), quote["unit_price_final"])
	assert.Equal(t, float64(72000), quote["line_total"])
	assert.Equal(t, float64(2000), quote["rate_bps"])

	w = doJSON(t, router, http.MethodGet, "/cart", "user-7", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeData(t, w)
	assert.Equal(t, "user-7", view["identity"])
	assert.Equal(t, float64(2), view["item_count"])
	assert.Equal(t, float64(90000), view["subtotal_base"])
	assert.Equal(t, float64(72000), view["total"])
	assert.Equal(t, float64(18000), view["savings"])
}

func TestCartIdentitiesStayIsolated(t *testing.T) {
	router := newCartRouter(t, newTestLedger(t))

	// A guest request interleaved between a user's requests must never see or
	// receive the user's lines.
	w := doJSON(t, router, http.MethodPost, "/cart/lines", "",
		`{"product_id":"p-guest","unit_price_base":5000,"quantity":2,"expiration_date":"2026-09-02T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodGet, "/cart", "user-7", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPost, "/cart/lines", "",
		`{"product_id":"p-guest","unit_price_base":5000,"quantity":1,"expiration_date":"2026-09-02T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/cart", "user-7", "")
	view := decodeData(t, w)
	assert.Equal(t, "user-7", view["identity"])
	assert.Empty(t, view["lines"], "a guest mutation must not land in the user's bucket")

	w = doJSON(t, router, http.MethodGet, "/cart", "", "")
	view = decodeData(t, w)
	assert.Equal(t, "guest", view["identity"])
	assert.Equal(t, float64(3), view["item_count"])
}

func TestCartAddLineMergesByProduct(t *testing.T) {
	router := newCartRouter(t, newTestLedger(t))

	body := `{"product_id":"p-1","unit_price_base":10000,"quantity":2,"expiration_date":"2026-09-02T00:00:00Z"}`
	w := doJSON(t, router, http.MethodPost, "/cart/lines", "user-7", body)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodPost, "/cart/lines", "user-7", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/cart", "user-7", "")
	view := decodeData(t, w)
	lines := view["lines"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(4), lines[0].(map[string]any)["quantity"])
}

func TestCartAddLineValidation(t *testing.T) {
	router := newCartRouter(t, newTestLedger(t))

	w := doJSON(t, router, http.MethodPost, "/cart/lines", "user-7",
		`{"quantity":1,"expiration_date":"2026-09-02T00:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestCartSetQuantityZeroRemovesLine(t *testing.T) {
	ledger := newTestLedger(t)
	router := newCartRouter(t, ledger)

	w := doJSON(t, router, http.MethodPost, "/cart/lines", "user-7",
		`{"product_id":"p-1","unit_price_base":10000,"quantity":3,"expiration_date":"2026-09-02T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	lineID := decodeData(t, w)["line_id"].(string)

	w = doJSON(t, router, http.MethodPatch, "/cart/lines/"+lineID, "user-7", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeData(t, w)
	assert.Empty(t, view["lines"])
	assert.Equal(t, float64(0), view["item_count"])
}

func TestCartRemoveUnknownLineIsIdempotent(t *testing.T) {
	router := newCartRouter(t, newTestLedger(t))

	w := doJSON(t, router, http.MethodDelete, "/cart/lines/no-such-line", "user-7", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCartMergeGuestIntoUser(t *testing.T) {
	ledger := newTestLedger(t)
	router := newCartRouter(t, ledger)

	// Guest shops without an identity header.
	w := doJSON(t, router, http.MethodPost, "/cart/lines", "",
		`{"product_id":"p-1","unit_price_base":10000,"quantity":2,"expiration_date":"2026-09-02T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// The logged-in user already had one of the same product.
	w = doJSON(t, router, http.MethodPost, "/cart/lines", "user-42",
		`{"product_id":"p-1","unit_price_base":10000,"quantity":1,"expiration_date":"2026-09-02T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/cart/merge", "user-42", `{"from_identity":"guest"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := decodeData(t, w)
	assert.Equal(t, "user-42", view["identity"])
	lines := view["lines"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(3), lines[0].(map[string]any)["quantity"])

	// The guest bucket is gone.
	w = doJSON(t, router, http.MethodGet, "/cart", "", "")
	guestView := decodeData(t, w)
	assert.Empty(t, guestView["lines"])
}

func TestCartClear(t *testing.T) {
	router := newCartRouter(t, newTestLedger(t))

	w := doJSON(t, router, http.MethodPost, "/cart/lines", "user-7",
		`{"product_id":"p-1","unit_price_base":10000,"quantity":1,"expiration_date":"2026-09-02T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/cart", "user-7", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/cart", "user-7", "")
	view := decodeData(t, w)
	assert.Empty(t, view["lines"])
}
