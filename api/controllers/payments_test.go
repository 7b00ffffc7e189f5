package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Bvvvp009/farcasterpaywall/internal/payments"
	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
)

const (
	txHash    = "0x9f1c7e4b2a3d5f6e8c0b1a2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f"
	payerAddr = "0x1111111111111111111111111111111111111111"
	creatorAddr = "0x2222222222222222222222222222222222222222"
)

type stubPaymentService struct {
	result  *payments.VerificationResult
	record  *models.PaymentRecord
	records []models.PaymentRecord
	err     error

	gotVerify  payments.VerifyInput
	gotRecord  payments.RecordPaymentInput
	gotConfirm payments.VerifyAndRecordInput
	gotKey     [2]string
}

func (s *stubPaymentService) Verify(_ context.Context, input payments.VerifyInput) (*payments.VerificationResult, error) {
	s.gotVerify = input
	return s.result, s.err
}

func (s *stubPaymentService) RecordPayment(_ context.Context, input payments.RecordPaymentInput) (*models.PaymentRecord, error) {
	s.gotRecord = input
	return s.record, s.err
}

func (s *stubPaymentService) GetPayment(_ context.Context, contentID, payer string) (*models.PaymentRecord, error) {
	s.gotKey = [2]string{contentID, payer}
	return s.record, s.err
}

func (s *stubPaymentService) ListPaymentsByPayer(_ context.Context, payer string) ([]models.PaymentRecord, error) {
	s.gotKey = [2]string{"", payer}
	return s.records, s.err
}

func (s *stubPaymentService) VerifyAndRecord(_ context.Context, input payments.VerifyAndRecordInput) (*models.PaymentRecord, *payments.VerificationResult, error) {
	s.gotConfirm = input
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.record, s.result, nil
}

func verifyBody() string {
	return `{"txHash":"` + txHash + `","expectedRecipient":"` + creatorAddr + `","expectedSender":"` + payerAddr + `","expectedAmount":"0.1"}`
}

func TestPaymentVerifySuccess(t *testing.T) {
	svc := &stubPaymentService{result: &payments.VerificationResult{
		Verified:    true,
		TxHash:      txHash,
		Value:       decimal.NewFromInt(100000),
		BlockNumber: 42,
	}}

	rec := httptest.NewRecorder()
	PaymentVerify(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(verifyBody()), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.gotVerify.ExpectedAmount.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("expected amount 0.1 got %s", svc.gotVerify.ExpectedAmount)
	}
	var envelope struct {
		Data payments.VerificationResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Verified || envelope.Data.BlockNumber != 42 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestPaymentVerifyChainFailures(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeTransactionNotFound, http.StatusNotFound},
		{pkgerrors.CodeTransactionFailed, http.StatusUnprocessableEntity},
		{pkgerrors.CodeWrongAsset, http.StatusUnprocessableEntity},
		{pkgerrors.CodeNoMatchingTransfer, http.StatusUnprocessableEntity},
		{pkgerrors.CodeAmountMismatch, http.StatusUnprocessableEntity},
		{pkgerrors.CodeNetworkTimeout, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		svc := &stubPaymentService{err: pkgerrors.New(tc.code, "chain says no")}
		rec := httptest.NewRecorder()
		PaymentVerify(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(verifyBody()), nil))

		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.code, tc.status, rec.Code)
		}
		if code := decodeErrorCode(t, rec); code != string(tc.code) {
			t.Fatalf("expected code %s got %s", tc.code, code)
		}
	}
}

func TestPaymentVerifyRejectsMissingFields(t *testing.T) {
	svc := &stubPaymentService{}
	rec := httptest.NewRecorder()
	PaymentVerify(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(`{"txHash":"`+txHash+`"}`), nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.gotVerify.TxHash != "" {
		t.Fatalf("service should not be called on invalid body")
	}
}

func TestPaymentConfirmReturnsBoth(t *testing.T) {
	svc := &stubPaymentService{
		record: &models.PaymentRecord{ContentID: "0xabc", Payer: payerAddr},
		result: &payments.VerificationResult{Verified: true, TxHash: txHash},
	}
	body := `{"contentId":"article-1","payer":"` + payerAddr + `","txHash":"` + txHash + `"}`

	rec := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/payments/confirm", strings.NewReader(body), nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotConfirm.ContentID != "article-1" || svc.gotConfirm.TxHash != txHash || svc.gotConfirm.Payer != payerAddr {
		t.Fatalf("unexpected input %+v", svc.gotConfirm)
	}
	var envelope struct {
		Data struct {
			Payment      models.PaymentRecord        `json:"payment"`
			Verification payments.VerificationResult `json:"verification"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Payment.Payer != payerAddr || !envelope.Data.Verification.Verified {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestPaymentConfirmRejectsClientTerms(t *testing.T) {
	svc := &stubPaymentService{}
	body := `{"contentId":"article-1","payer":"` + payerAddr + `","txHash":"` + txHash + `","expectedRecipient":"` + creatorAddr + `","expectedAmount":"0.000001"}`

	rec := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/payments/confirm", strings.NewReader(body), nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for caller-chosen recipient and amount, got %d", rec.Code)
	}
	if svc.gotConfirm.ContentID != "" {
		t.Fatalf("service should not be called")
	}
}

func TestPaymentGet(t *testing.T) {
	svc := &stubPaymentService{record: &models.PaymentRecord{ContentID: "0xabc", Payer: payerAddr}}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/payments/article-1/"+payerAddr, nil, map[string]string{"contentId": "article-1", "payer": payerAddr})
	PaymentGet(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotKey != [2]string{"article-1", payerAddr} {
		t.Fatalf("unexpected lookup key %v", svc.gotKey)
	}
}

func TestPaymentGetNotFound(t *testing.T) {
	svc := &stubPaymentService{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment record not found")}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/payments/article-1/"+payerAddr, nil, map[string]string{"contentId": "article-1", "payer": payerAddr})
	PaymentGet(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestPayerPaymentsEmptyList(t *testing.T) {
	svc := &stubPaymentService{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/payers/"+payerAddr+"/payments", nil, map[string]string{"payer": payerAddr})
	PayerPayments(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"data":[]}` {
		t.Fatalf("expected empty list got %s", body)
	}
}
