package controllers_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/adityahutama/pasarsegar-backend/api/controllers"
	"github.com/adityahutama/pasarsegar-backend/api/middleware"
	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	checkoutsvc "github.com/adityahutama/pasarsegar-backend/internal/checkout"
	"github.com/adityahutama/pasarsegar-backend/internal/pricing"
	"github.com/adityahutama/pasarsegar-backend/pkg/clock"
	"github.com/adityahutama/pasarsegar-backend/pkg/config"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
	"github.com/adityahutama/pasarsegar-backend/pkg/marketplace"
)

var testNow = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestEngine(t *testing.T) *pricing.Engine {
	t.Helper()
	engine, err := pricing.NewEngine(config.PricingConfig{
		ShelfLifeTierSpec: "4:2000,3:4000,2:6000,1:8000",
		BulkThreshold:     5,
		BulkBonusBps:      500,
		RateCeilingBps:    9500,
	})
	require.NoError(t, err)
	return engine
}

func newTestLedger(t *testing.T) *cart.Ledger {
	t.Helper()
	ledger, err := cart.NewLedger(cart.NewMemoryStore(), testLogger(), nil)
	require.NoError(t, err)
	return ledger
}

// stubBackend satisfies the sequencer's marketplace collaborators.
type stubBackend struct {
	addresses []marketplace.Address
	balance   int64
	placed    []marketplace.OrderRequest
	placeErr  error
}

func (s *stubBackend) ListAddresses(context.Context) ([]marketplace.Address, error) {
	return s.addresses, nil
}

func (s *stubBackend) CreateAddress(_ context.Context, input marketplace.CreateAddressInput) (*marketplace.Address, error) {
	return &marketplace.Address{ID: "addr-new", Label: input.Label}, nil
}

func (s *stubBackend) GetBalance(context.Context) (int64, error) {
	return s.balance, nil
}

func (s *stubBackend) PlaceOrder(_ context.Context, req marketplace.OrderRequest) (*marketplace.Order, error) {
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	s.placed = append(s.placed, req)
	return &marketplace.Order{ID: "ord-1", ProductID: req.ProductID, Quantity: req.Quantity}, nil
}

func newCartRouter(t *testing.T, ledger *cart.Ledger) http.Handler {
	t.Helper()
	logg := testLogger()
	engine := newTestEngine(t)
	clk := clock.NewMockClock(testNow)

	r := chi.NewRouter()
	r.Use(middleware.Identity(logg))
	r.Get("/cart", controllers.CartFetch(ledger, engine, clk, logg))
	r.Delete("/cart", controllers.CartClear(ledger, logg))
	r.Post("/cart/lines", controllers.CartAddLine(ledger, engine, clk, logg))
	r.Patch("/cart/lines/{lineId}", controllers.CartSetQuantity(ledger, engine, clk, logg))
	r.Delete("/cart/lines/{lineId}", controllers.CartRemoveLine(ledger, engine, clk, logg))
	r.Post("/cart/merge", controllers.CartMerge(ledger, engine, clk, logg))
	return r
}

func newCheckoutRouter(t *testing.T, ledger *cart.Ledger, backend *stubBackend) http.Handler {
	t.Helper()
	logg := testLogger()
	seq, err := checkoutsvc.NewSequencer(
		ledger,
		newTestEngine(t),
		backend,
		backend,
		backend,
		config.CheckoutConfig{ShippingFeePerLine: 10000, SubmissionTimeout: time.Second},
		clock.NewMockClock(testNow),
		logg,
		nil,
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.Identity(logg))
	r.Post("/checkout", controllers.CheckoutRun(seq, ledger, logg))
	r.Get("/checkout/status", controllers.CheckoutStatus(seq))
	return r
}
