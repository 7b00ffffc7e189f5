package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Bvvvp009/farcasterpaywall/internal/subscriptions"
	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	"github.com/Bvvvp009/farcasterpaywall/pkg/enums"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
)

type stubSubscriptionService struct {
	sub   *models.Subscription
	check *subscriptions.CheckResult
	views []subscriptions.View
	offer *models.CreatorOffer
	err   error

	called    string
	gotCreate subscriptions.CreateInput
	gotRenew  subscriptions.RenewInput
	gotOffer  subscriptions.SetOfferInput
	gotPair   [2]string
}

func (s *stubSubscriptionService) Create(_ context.Context, input subscriptions.CreateInput) (*models.Subscription, error) {
	s.called, s.gotCreate = "Create", input
	return s.sub, s.err
}

func (s *stubSubscriptionService) Check(_ context.Context, creator, subscriber string) (*subscriptions.CheckResult, error) {
	s.called, s.gotPair = "Check", [2]string{creator, subscriber}
	return s.check, s.err
}

func (s *stubSubscriptionService) Renew(_ context.Context, input subscriptions.RenewInput) (*models.Subscription, error) {
	s.called, s.gotRenew = "Renew", input
	return s.sub, s.err
}

func (s *stubSubscriptionService) Cancel(_ context.Context, creator, subscriber string) (*models.Subscription, error) {
	s.called, s.gotPair = "Cancel", [2]string{creator, subscriber}
	return s.sub, s.err
}

func (s *stubSubscriptionService) ListByCreator(_ context.Context, creator string) ([]subscriptions.View, error) {
	s.called, s.gotPair = "ListByCreator", [2]string{creator, ""}
	return s.views, s.err
}

func (s *stubSubscriptionService) ListBySubscriber(_ context.Context, subscriber string) ([]subscriptions.View, error) {
	s.called, s.gotPair = "ListBySubscriber", [2]string{"", subscriber}
	return s.views, s.err
}

func (s *stubSubscriptionService) SetOffer(_ context.Context, input subscriptions.SetOfferInput) (*models.CreatorOffer, error) {
	s.called, s.gotOffer = "SetOffer", input
	return s.offer, s.err
}

func (s *stubSubscriptionService) GetOffer(_ context.Context, creator string) (*models.CreatorOffer, error) {
	s.called, s.gotPair = "GetOffer", [2]string{creator, ""}
	return s.offer, s.err
}

func (s *stubSubscriptionService) Subscribe(_ context.Context, input subscriptions.CreateInput) (*models.Subscription, error) {
	s.called, s.gotCreate = "Subscribe", input
	return s.sub, s.err
}

func (s *stubSubscriptionService) RenewPaid(_ context.Context, input subscriptions.RenewInput) (*models.Subscription, error) {
	s.called, s.gotRenew = "RenewPaid", input
	return s.sub, s.err
}

func sampleSubscription() *models.Subscription {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &models.Subscription{
		CreatorAddress:    creatorAddr,
		SubscriberAddress: payerAddr,
		MonthlyFee:        decimal.RequireFromString("5"),
		StartDate:         now,
		EndDate:           now.Add(subscriptions.DefaultPeriod),
		Status:            enums.SubscriptionStatusActive,
		TxHash:            txHash,
	}
}

func TestSubscriptionCreateVerifiesPayment(t *testing.T) {
	svc := &stubSubscriptionService{sub: sampleSubscription()}
	body := `{"creatorAddress":"` + creatorAddr + `","subscriberAddress":"` + payerAddr + `","monthlyFee":"5","txHash":"` + txHash + `"}`

	rec := httptest.NewRecorder()
	SubscriptionCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body), nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.called != "Subscribe" {
		t.Fatalf("expected Subscribe, got %s", svc.called)
	}
	if !svc.gotCreate.MonthlyFee.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected fee %s", svc.gotCreate.MonthlyFee)
	}
}

func TestSubscriptionCreatePaymentRejected(t *testing.T) {
	svc := &stubSubscriptionService{err: pkgerrors.New(pkgerrors.CodeAmountMismatch, "transfer amount does not match")}
	body := `{"creatorAddress":"` + creatorAddr + `","subscriberAddress":"` + payerAddr + `","monthlyFee":"5","txHash":"` + txHash + `"}`

	rec := httptest.NewRecorder()
	SubscriptionCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body), nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestSubscriptionRenewUsesPaidPath(t *testing.T) {
	svc := &stubSubscriptionService{sub: sampleSubscription()}
	body := `{"creatorAddress":"` + creatorAddr + `","subscriberAddress":"` + payerAddr + `","txHash":"` + txHash + `"}`

	rec := httptest.NewRecorder()
	SubscriptionRenew(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/subscriptions/renew", strings.NewReader(body), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.called != "RenewPaid" || svc.gotRenew.TxHash != txHash {
		t.Fatalf("unexpected call %s %+v", svc.called, svc.gotRenew)
	}
}

func TestSubscriptionCancelNotFound(t *testing.T) {
	svc := &stubSubscriptionService{err: pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")}
	body := `{"creatorAddress":"` + creatorAddr + `","subscriberAddress":"` + payerAddr + `"}`

	rec := httptest.NewRecorder()
	SubscriptionCancel(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/subscriptions/cancel", strings.NewReader(body), nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if svc.gotPair != [2]string{creatorAddr, payerAddr} {
		t.Fatalf("unexpected pair %v", svc.gotPair)
	}
}

func TestSubscriptionCheck(t *testing.T) {
	sub := sampleSubscription()
	svc := &stubSubscriptionService{check: &subscriptions.CheckResult{
		HasActiveSubscription: true,
		Subscription:          sub,
		ExpiresAt:             &sub.EndDate,
		DaysRemaining:         30,
	}}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/subscriptions/"+creatorAddr+"/"+payerAddr, nil,
		map[string]string{"creator": creatorAddr, "subscriber": payerAddr})
	SubscriptionCheck(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data subscriptions.CheckResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.HasActiveSubscription || envelope.Data.DaysRemaining != 30 {
		t.Fatalf("unexpected check %+v", envelope.Data)
	}
}

func TestSubscriberSubscriptionsList(t *testing.T) {
	svc := &stubSubscriptionService{views: []subscriptions.View{{Subscription: *sampleSubscription(), Active: true, DaysRemaining: 30}}}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/subscribers/"+payerAddr+"/subscriptions", nil, map[string]string{"subscriber": payerAddr})
	SubscriberSubscriptions(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data []subscriptions.View `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || !envelope.Data[0].Active {
		t.Fatalf("unexpected views %+v", envelope.Data)
	}
}

func TestCreatorSubscribersEmpty(t *testing.T) {
	svc := &stubSubscriptionService{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/creators/"+creatorAddr+"/subscriptions", nil, map[string]string{"creator": creatorAddr})
	CreatorSubscribers(svc, nil).ServeHTTP(rec, req)

	if body := strings.TrimSpace(rec.Body.String()); body != `{"data":[]}` {
		t.Fatalf("expected empty list got %s", body)
	}
}

func TestCreatorOfferPutUsesPathCreator(t *testing.T) {
	svc := &stubSubscriptionService{offer: &models.CreatorOffer{CreatorAddress: creatorAddr, IsActive: true}}
	body := `{"creatorAddress":"0x3333333333333333333333333333333333333333","monthlyFee":"5","description":"all posts","benefits":["early access"],"isActive":true}`

	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPut, "/api/v1/creators/"+creatorAddr+"/offer", strings.NewReader(body), map[string]string{"creator": creatorAddr})
	CreatorOfferPut(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotOffer.Creator != creatorAddr {
		t.Fatalf("expected path creator, got %s", svc.gotOffer.Creator)
	}
	if len(svc.gotOffer.Benefits) != 1 || !svc.gotOffer.IsActive {
		t.Fatalf("unexpected offer input %+v", svc.gotOffer)
	}
}

func TestCreatorOfferGetNotFound(t *testing.T) {
	svc := &stubSubscriptionService{err: pkgerrors.New(pkgerrors.CodeNotFound, "creator offer not found")}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/creators/"+creatorAddr+"/offer", nil, map[string]string{"creator": creatorAddr})
	CreatorOfferGet(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
