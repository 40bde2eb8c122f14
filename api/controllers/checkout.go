package controllers

import (
	"context"
	"net/http"

	"github.com/adityahutama/pasarsegar-backend/api/middleware"
	"github.com/adityahutama/pasarsegar-backend/api/responses"
	"github.com/adityahutama/pasarsegar-backend/api/validators"
	checkoutsvc "github.com/adityahutama/pasarsegar-backend/internal/checkout"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
	"github.com/adityahutama/pasarsegar-backend/pkg/marketplace"
)

type checkoutRequest struct {
	AddressID  string                          `json:"address_id"`
	NewAddress *marketplace.CreateAddressInput `json:"new_address"`
}

// CheckoutRun submits the requester's cart through the sequencer. A run that
// reaches placement always answers with its result, including partial
// failures; only pre-placement problems surface as errors.
func CheckoutRun(seq *checkoutsvc.Sequencer, ledger cartHydrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity := middleware.IdentityFromContext(r.Context())
		if err := ledger.Hydrate(r.Context(), identity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := seq.Run(r.Context(), identity, checkoutsvc.Input{
			AddressID:  payload.AddressID,
			NewAddress: payload.NewAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.State == checkoutsvc.StateSucceeded {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// CheckoutStatus reports the phase of the most recent run.
func CheckoutStatus(seq *checkoutsvc.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"state": string(seq.State())})
	}
}

type cartHydrator interface {
	Hydrate(ctx context.Context, identityKey string) error
}
