package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	"github.com/adityahutama/pasarsegar-backend/internal/pricing"
	"github.com/adityahutama/pasarsegar-backend/pkg/clock"
	"github.com/adityahutama/pasarsegar-backend/pkg/config"
	pkgerrors "github.com/adityahutama/pasarsegar-backend/pkg/errors"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
	"github.com/adityahutama/pasarsegar-backend/pkg/marketplace"
	"github.com/adityahutama/pasarsegar-backend/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// State is the lifecycle phase of a checkout run.
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StatePlacing         State = "placing"
	StateSucceeded       State = "succeeded"
	StatePartiallyFailed State = "partially_failed"
)

// AddressDirectory resolves and creates shipping addresses on the backend.
type AddressDirectory interface {
	ListAddresses(ctx context.Context) ([]marketplace.Address, error)
	CreateAddress(ctx context.Context, input marketplace.CreateAddressInput) (*marketplace.Address, error)
}

// OrderPlacer submits a single order to the backend.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req marketplace.OrderRequest) (*marketplace.Order, error)
}

// BalanceFetcher reads the buyer's current wallet balance.
type BalanceFetcher interface {
	GetBalance(ctx context.Context) (int64, error)
}

// Input selects the shipping address for a run. Exactly one of AddressID or
// NewAddress must be provided.
type Input struct {
	AddressID  string                          `json:"address_id"`
	NewAddress *marketplace.CreateAddressInput `json:"new_address"`
}

// PlacedOrder records one successfully submitted cart line.
type PlacedOrder struct {
	OrderID        string `json:"order_id"`
	LineID         string `json:"line_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceFinal int64  `json:"unit_price_final"`
	LineCost       int64  `json:"line_cost"`
}

// Failure describes the line that stopped a run.
type Failure struct {
	LineID    string         `json:"line_id"`
	ProductID string         `json:"product_id"`
	Code      pkgerrors.Code `json:"code"`
	Message   string         `json:"message"`
}

// Result is the outcome of a run that reached the placing phase. On partial
// failure PlacedOrders holds everything submitted before the failing line and
// the cart is left untouched.
type Result struct {
	RunID            string        `json:"run_id"`
	State            State         `json:"state"`
	ConfirmationID   string        `json:"confirmation_id,omitempty"`
	AddressID        string        `json:"address_id"`
	PlacedOrders     []PlacedOrder `json:"placed_orders"`
	Failure          *Failure      `json:"failure,omitempty"`
	StartingBalance  int64         `json:"starting_balance"`
	RemainingBalance int64         `json:"remaining_balance"`
	TotalCharged     int64         `json:"total_charged"`
}

type plannedLine struct {
	line  cart.Line
	quote pricing.Quote
	cost  int64
}

// Sequencer drives a cart through validation and sequential order placement.
// A single instance serializes runs; a second Run while one is in flight is a
// state conflict.
type Sequencer struct {
	ledger    *cart.Ledger
	engine    *pricing.Engine
	directory AddressDirectory
	placer    OrderPlacer
	balances  BalanceFetcher
	cfg       config.CheckoutConfig
	clk       clock.Clock
	logg      *logger.Logger
	metrics   *metrics.CheckoutMetrics
	validate  *validator.Validate

	mu    sync.Mutex
	state State
}

func NewSequencer(
	ledger *cart.Ledger,
	engine *pricing.Engine,
	directory AddressDirectory,
	placer OrderPlacer,
	balances BalanceFetcher,
	cfg config.CheckoutConfig,
	clk clock.Clock,
	logg *logger.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
) (*Sequencer, error) {
	if ledger == nil {
		return nil, fmt.Errorf("cart ledger required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if directory == nil || placer == nil || balances == nil {
		return nil, fmt.Errorf("marketplace collaborators required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Sequencer{
		ledger:    ledger,
		engine:    engine,
		directory: directory,
		placer:    placer,
		balances:  balances,
		cfg:       cfg,
		clk:       clk,
		logg:      logg,
		metrics:   checkoutMetrics,
		validate:  validator.New(),
		state:     StateIdle,
	}, nil
}

// State returns the phase of the most recent run.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateValidating || s.state == StatePlacing {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout run is already in progress")
	}
	s.state = StateValidating
	return nil
}

func (s *Sequencer) transition(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Run validates the identity's cart, resolves the shipping address, then
// submits each line as its own order in insertion order. The first failing
// line stops the run; nothing already placed is rolled back. Pre-placement
// failures return an error and leave the run idle.
func (s *Sequencer) Run(ctx context.Context, identityKey string, input Input) (*Result, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = s.logg.WithCheckoutRun(ctx, runID)
	started := s.clk.Now()

	plan, addressID, startingBalance, err := s.prepare(ctx, identityKey, input)
	if err != nil {
		s.transition(StateIdle)
		s.logg.Error(ctx, "checkout validation failed", err)
		return nil, err
	}

	s.transition(StatePlacing)
	result := s.place(ctx, runID, identityKey, addressID, startingBalance, plan)

	s.transition(result.State)
	if s.metrics != nil {
		s.metrics.ObserveRun(string(result.State), s.clk.Now().Sub(started))
	}
	return result, nil
}

func (s *Sequencer) prepare(ctx context.Context, identityKey string, input Input) ([]plannedLine, string, int64, error) {
	lines := s.ledger.Lines(identityKey)
	if len(lines) == 0 {
		return nil, "", 0, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	addressID, err := s.resolveAddress(ctx, input)
	if err != nil {
		return nil, "", 0, err
	}

	balance, err := s.balances.GetBalance(ctx)
	if err != nil {
		return nil, "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching balance")
	}

	now := s.clk.Now()
	plan := make([]plannedLine, 0, len(lines))
	var total int64
	for _, line := range lines {
		quote := s.engine.Price(line.UnitPriceBase, line.Quantity, pricing.DaysRemaining(line.ExpirationDate, now))
		cost := quote.LineTotal + s.cfg.ShippingFeePerLine
		plan = append(plan, plannedLine{line: line, quote: quote, cost: cost})
		total += cost
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"lines":      len(plan),
		"total_cost": total,
		"balance":    balance,
		"address_id": addressID,
	}), "checkout run validated")

	return plan, addressID, balance, nil
}

func (s *Sequencer) resolveAddress(ctx context.Context, input Input) (string, error) {
	switch {
	case input.AddressID != "" && input.NewAddress != nil:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provide either an address id or a new address, not both")
	case input.AddressID != "":
		addresses, err := s.directory.ListAddresses(ctx)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing addresses")
		}
		for _, address := range addresses {
			if address.ID == input.AddressID {
				return address.ID, nil
			}
		}
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "shipping address not found")
	case input.NewAddress != nil:
		if err := s.validate.Struct(input.NewAddress); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid new address")
		}
		created, err := s.directory.CreateAddress(ctx, *input.NewAddress)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating address")
		}
		return created.ID, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "a shipping address is required")
	}
}

func (s *Sequencer) place(ctx context.Context, runID, identityKey, addressID string, startingBalance int64, plan []plannedLine) *Result {
	result := &Result{
		RunID:            runID,
		AddressID:        addressID,
		PlacedOrders:     []PlacedOrder{},
		StartingBalance:  startingBalance,
		RemainingBalance: startingBalance,
	}

	for _, planned := range plan {
		if result.RemainingBalance < planned.cost {
			result.State = StatePartiallyFailed
			result.Failure = &Failure{
				LineID:    planned.line.LineID,
				ProductID: planned.line.ProductID,
				Code:      pkgerrors.CodeBalance,
				Message: fmt.Sprintf("balance %d cannot cover line cost %d",
					result.RemainingBalance, planned.cost),
			}
			s.logg.Warn(ctx, "checkout aborted on insufficient balance")
			return result
		}

		order, err := s.submitLine(ctx, addressID, planned)
		if err != nil {
			result.State = StatePartiallyFailed
			failure := &Failure{
				LineID:    planned.line.LineID,
				ProductID: planned.line.ProductID,
				Code:      pkgerrors.CodeDependency,
				Message:   err.Error(),
			}
			if coded := pkgerrors.As(err); coded != nil {
				failure.Code = coded.Code()
				failure.Message = coded.Message()
			}
			result.Failure = failure
			s.logg.Error(ctx, "checkout aborted on order placement", err)
			return result
		}

		result.PlacedOrders = append(result.PlacedOrders, PlacedOrder{
			OrderID:        order.ID,
			LineID:         planned.line.LineID,
			ProductID:      planned.line.ProductID,
			ProductName:    planned.line.ProductName,
			Quantity:       planned.line.Quantity,
			UnitPriceFinal: planned.quote.UnitPriceFinal,
			LineCost:       planned.cost,
		})
		result.RemainingBalance -= planned.cost
		result.TotalCharged += planned.cost
		if s.metrics != nil {
			s.metrics.IncOrdersPlaced()
		}
	}

	result.State = StateSucceeded
	result.ConfirmationID = uuid.NewString()
	if err := s.ledger.ClearBucket(ctx, identityKey); err != nil {
		// The orders are already placed; the confirmation stands even if the
		// cart snapshot could not be persisted.
		s.logg.Error(ctx, "clearing cart after successful checkout", err)
	}
	s.logg.Info(ctx, "checkout run succeeded")
	return result
}

func (s *Sequencer) submitLine(ctx context.Context, addressID string, planned plannedLine) (*marketplace.Order, error) {
	submitCtx := ctx
	if s.cfg.SubmissionTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, s.cfg.SubmissionTimeout)
		defer cancel()
	}
	return s.placer.PlaceOrder(submitCtx, marketplace.OrderRequest{
		AddressID: addressID,
		ProductID: planned.line.ProductID,
		Quantity:  planned.line.Quantity,
	})
}
