package controllers

import (
	"net/http"

	"github.com/adityahutama/pasarsegar-backend/api/responses"
	"github.com/adityahutama/pasarsegar-backend/api/validators"
	checkoutsvc "github.com/adityahutama/pasarsegar-backend/internal/checkout"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
	"github.com/adityahutama/pasarsegar-backend/pkg/marketplace"
)

// AddressList proxies the buyer's saved addresses from the marketplace
// backend.
func AddressList(directory checkoutsvc.AddressDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addresses, err := directory.ListAddresses(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addresses)
	}
}

func AddressCreate(directory checkoutsvc.AddressDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload marketplace.CreateAddressInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := directory.CreateAddress(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}
