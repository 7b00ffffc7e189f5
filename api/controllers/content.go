package controllers

import (
	"net/http"

	"github.com/Bvvvp009/farcasterpaywall/api/responses"
	"github.com/Bvvvp009/farcasterpaywall/api/validators"
	"github.com/Bvvvp009/farcasterpaywall/internal/access"
	"github.com/Bvvvp009/farcasterpaywall/internal/metadata"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
)

// ContentAccess resolves whether ?identity= may decrypt the content item.
func ContentAccess(svc access.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access service unavailable"))
			return
		}

		contentID, err := validators.RequiredPathParam(r, "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identity, err := validators.RequiredQuery(r, "identity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := svc.Resolve(r.Context(), contentID, identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, decision)
	}
}

func ContentDescriptor(svc metadata.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "metadata service unavailable"))
			return
		}

		contentID, err := validators.RequiredPathParam(r, "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		desc, err := svc.ResolveForContent(r.Context(), contentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, desc)
	}
}
