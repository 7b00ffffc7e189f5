package controllers

import (
	"net/http"

	"github.com/Bvvvp009/farcasterpaywall/api/responses"
	"github.com/Bvvvp009/farcasterpaywall/api/validators"
	"github.com/Bvvvp009/farcasterpaywall/internal/subscriptions"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
)

// CreatorOfferPut upserts the creator's subscription offer. The creator comes
// from the path; any creatorAddress in the body is ignored.
func CreatorOfferPut(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		creator, err := validators.RequiredPathParam(r, "creator")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input subscriptions.SetOfferInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Creator = creator

		offer, err := svc.SetOffer(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, offer)
	}
}

func CreatorOfferGet(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		creator, err := validators.RequiredPathParam(r, "creator")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.GetOffer(r.Context(), creator)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, offer)
	}
}
