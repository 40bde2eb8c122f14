package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adityahutama/pasarsegar-backend/api/middleware"
	"github.com/adityahutama/pasarsegar-backend/api/responses"
	"github.com/adityahutama/pasarsegar-backend/api/validators"
	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	"github.com/adityahutama/pasarsegar-backend/internal/pricing"
	"github.com/adityahutama/pasarsegar-backend/pkg/clock"
	pkgerrors "github.com/adityahutama/pasarsegar-backend/pkg/errors"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
)

type addLineRequest struct {
	ProductID      string    `json:"product_id" validate:"required"`
	ProductName    string    `json:"product_name"`
	UnitPriceBase  int64     `json:"unit_price_base" validate:"gte=0"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	SellerID       string    `json:"seller_id"`
	SellerName     string    `json:"seller_name"`
	ExpirationDate time.Time `json:"expiration_date" validate:"required"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type mergeRequest struct {
	FromIdentity string `json:"from_identity" validate:"required"`
}

type cartLineView struct {
	cart.Line
	DaysRemaining int           `json:"days_remaining"`
	Quote         pricing.Quote `json:"quote"`
}

type cartView struct {
	Identity     string         `json:"identity"`
	Lines        []cartLineView `json:"lines"`
	ItemCount    int            `json:"item_count"`
	SubtotalBase int64          `json:"subtotal_base"`
	Total        int64          `json:"total"`
	Savings      int64          `json:"savings"`
}

func newCartView(ledger *cart.Ledger, engine *pricing.Engine, identity string, now time.Time) cartView {
	lines := ledger.Lines(identity)
	view := cartView{
		Identity:  identity,
		Lines:     make([]cartLineView, 0, len(lines)),
		ItemCount: ledger.TotalItemCount(identity),
	}
	for _, line := range lines {
		days := pricing.DaysRemaining(line.ExpirationDate, now)
		quote := engine.Price(line.UnitPriceBase, line.Quantity, days)
		view.Lines = append(view.Lines, cartLineView{Line: line, DaysRemaining: days, Quote: quote})
		view.SubtotalBase += line.UnitPriceBase * int64(line.Quantity)
		view.Total += quote.LineTotal
		view.Savings += quote.Savings
	}
	return view
}

// hydrateForRequest loads the persisted buckets and returns the requester's
// identity, which every subsequent ledger call must name explicitly.
func hydrateForRequest(r *http.Request, ledger *cart.Ledger) (string, error) {
	identity := middleware.IdentityFromContext(r.Context())
	if err := ledger.Hydrate(r.Context(), identity); err != nil {
		return "", err
	}
	return identity, nil
}

// CartFetch returns the requester's bucket with per-line quotes computed at
// request time.
func CartFetch(ledger *cart.Ledger, engine *pricing.Engine, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := hydrateForRequest(r, ledger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(ledger, engine, identity, clk.Now()))
	}
}

func CartAddLine(ledger *cart.Ledger, engine *pricing.Engine, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := hydrateForRequest(r, ledger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := ledger.AddLine(r.Context(), identity, cart.Line{
			ProductID:      payload.ProductID,
			ProductName:    payload.ProductName,
			UnitPriceBase:  payload.UnitPriceBase,
			Quantity:       payload.Quantity,
			SellerID:       payload.SellerID,
			SellerName:     payload.SellerName,
			ExpirationDate: payload.ExpirationDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		days := pricing.DaysRemaining(line.ExpirationDate, clk.Now())
		responses.WriteSuccessStatus(w, http.StatusCreated, cartLineView{
			Line:          line,
			DaysRemaining: days,
			Quote:         engine.Price(line.UnitPriceBase, line.Quantity, days),
		})
	}
}

// CartSetQuantity updates a line's quantity. A quantity of zero removes the
// line.
func CartSetQuantity(ledger *cart.Ledger, engine *pricing.Engine, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID := chi.URLParam(r, "lineId")
		if lineID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "line id is required"))
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := hydrateForRequest(r, ledger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Quantity < 1 {
			err = ledger.RemoveLine(r.Context(), identity, lineID)
		} else {
			err = ledger.SetQuantity(r.Context(), identity, lineID, payload.Quantity)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(ledger, engine, identity, clk.Now()))
	}
}

func CartRemoveLine(ledger *cart.Ledger, engine *pricing.Engine, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID := chi.URLParam(r, "lineId")
		if lineID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "line id is required"))
			return
		}

		identity, err := hydrateForRequest(r, ledger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ledger.RemoveLine(r.Context(), identity, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(ledger, engine, identity, clk.Now()))
	}
}

func CartClear(ledger *cart.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := hydrateForRequest(r, ledger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ledger.ClearBucket(r.Context(), identity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// CartMerge folds the named bucket into the requester's bucket. It backs the
// guest-to-user migration after login.
func CartMerge(ledger *cart.Ledger, engine *pricing.Engine, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload mergeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := hydrateForRequest(r, ledger)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ledger.MergeIdentity(r.Context(), payload.FromIdentity, identity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(ledger, engine, identity, clk.Now()))
	}
}
