package controllers

import (
	"net/http"

	"github.com/Bvvvp009/farcasterpaywall/api/responses"
	"github.com/Bvvvp009/farcasterpaywall/api/validators"
	"github.com/Bvvvp009/farcasterpaywall/internal/payments"
	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
)

type paymentConfirmation struct {
	Payment      *models.PaymentRecord        `json:"payment"`
	Verification *payments.VerificationResult `json:"verification"`
}

// PaymentVerify checks a claimed transfer without recording it.
func PaymentVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var input payments.VerifyInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// PaymentConfirm verifies a transfer against the content's on-chain terms and
// records it on success.
func PaymentConfirm(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var input payments.VerifyAndRecordInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, result, err := svc.VerifyAndRecord(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, paymentConfirmation{Payment: record, Verification: result})
	}
}

func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		contentID, err := validators.RequiredPathParam(r, "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payer, err := validators.RequiredPathParam(r, "payer")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetPayment(r.Context(), contentID, payer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// PayerPayments lists every recorded payment made by one payer.
func PayerPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		payer, err := validators.RequiredPathParam(r, "payer")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListPaymentsByPayer(r.Context(), payer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if records == nil {
			records = []models.PaymentRecord{}
		}

		responses.WriteSuccess(w, records)
	}
}
