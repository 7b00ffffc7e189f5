package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Bvvvp009/farcasterpaywall/internal/payments"
	"github.com/Bvvvp009/farcasterpaywall/pkg/chain"
	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	"github.com/Bvvvp009/farcasterpaywall/pkg/enums"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/kv"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
)

// DefaultPeriod is the length of one paid subscription period.
const DefaultPeriod = 30 * 24 * time.Hour

const msPerDay = int64(86_400_000)

// Service defines the subscription ledger surface.
//
// Renew and Cancel are read-modify-write without a cross-process lock;
// concurrent writers for the same pair race and the last write wins.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Subscription, error)
	Check(ctx context.Context, creator, subscriber string) (*CheckResult, error)
	Renew(ctx context.Context, input RenewInput) (*models.Subscription, error)
	Cancel(ctx context.Context, creator, subscriber string) (*models.Subscription, error)
	ListByCreator(ctx context.Context, creator string) ([]View, error)
	ListBySubscriber(ctx context.Context, subscriber string) ([]View, error)

	SetOffer(ctx context.Context, input SetOfferInput) (*models.CreatorOffer, error)
	GetOffer(ctx context.Context, creator string) (*models.CreatorOffer, error)

	// Subscribe and RenewPaid verify the creator's current offer fee was paid
	// by a transaction not already spent, before touching the ledger.
	Subscribe(ctx context.Context, input CreateInput) (*models.Subscription, error)
	RenewPaid(ctx context.Context, input RenewInput) (*models.Subscription, error)
}

// FeeVerifier checks a subscription fee was paid on chain.
type FeeVerifier interface {
	Verify(ctx context.Context, input payments.VerifyInput) (*payments.VerificationResult, error)
}

// CreateInput starts (or restarts) a subscription. MonthlyFee is a display amount.
type CreateInput struct {
	Creator    string          `json:"creatorAddress" validate:"required,ethaddr"`
	Subscriber string          `json:"subscriberAddress" validate:"required,ethaddr"`
	MonthlyFee decimal.Decimal `json:"monthlyFee" validate:"nonneg"`
	TxHash     string          `json:"txHash" validate:"required"`
}

// RenewInput extends an existing subscription by one period.
type RenewInput struct {
	Creator    string `json:"creatorAddress" validate:"required,ethaddr"`
	Subscriber string `json:"subscriberAddress" validate:"required,ethaddr"`
	TxHash     string `json:"txHash" validate:"required"`
}

// SetOfferInput upserts a creator's offer.
type SetOfferInput struct {
	Creator     string          `json:"creatorAddress" validate:"omitempty,ethaddr"`
	MonthlyFee  decimal.Decimal `json:"monthlyFee" validate:"nonneg"`
	Description string          `json:"description" validate:"max=2000"`
	Benefits    []string        `json:"benefits" validate:"max=50,dive,max=200"`
	IsActive    bool            `json:"isActive"`
}

// CheckResult reports liveness derived at read time.
type CheckResult struct {
	HasActiveSubscription bool                 `json:"hasActiveSubscription"`
	Subscription          *models.Subscription `json:"subscription,omitempty"`
	ExpiresAt             *time.Time           `json:"expiresAt,omitempty"`
	DaysRemaining         int64                `json:"daysRemaining"`
}

// View is a stored subscription with its derived liveness.
type View struct {
	models.Subscription
	Active        bool  `json:"active"`
	DaysRemaining int64 `json:"daysRemaining"`
}

// ServiceParams groups dependencies for the subscription ledger.
type ServiceParams struct {
	Repo     Repository
	Verifier FeeVerifier
	Claims   payments.ClaimStore
	Period   time.Duration
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	verifier FeeVerifier
	claims   payments.ClaimStore
	period   time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the subscription ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	period := params.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		verifier: params.Verifier,
		claims:   params.Claims,
		period:   period,
		logg:     params.Logger,
		now:      func() time.Time { return now().UTC() },
	}, nil
}

func parsePair(creator, subscriber string) (string, string, error) {
	c, err := chain.ParseAddress("creatorAddress", creator)
	if err != nil {
		return "", "", err
	}
	s, err := chain.ParseAddress("subscriberAddress", subscriber)
	if err != nil {
		return "", "", err
	}
	return chain.Lower(c), chain.Lower(s), nil
}

func normalizeTxHash(raw string) (string, error) {
	hash, err := chain.ParseTxHash(raw)
	if err != nil {
		return "", err
	}
	return strings.ToLower(hash.Hex()), nil
}

// Create overwrites the pair's record. Remaining prepaid time on an existing
// subscription is discarded; Renew is the extending operation.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Subscription, error) {
	creator, subscriber, err := parsePair(input.Creator, input.Subscriber)
	if err != nil {
		return nil, err
	}
	txHash, err := normalizeTxHash(input.TxHash)
	if err != nil {
		return nil, err
	}
	if input.MonthlyFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthlyFee must be non-negative")
	}
	return s.create(ctx, creator, subscriber, txHash, input.MonthlyFee)
}

func (s *service) create(ctx context.Context, creator, subscriber, txHash string, fee decimal.Decimal) (*models.Subscription, error) {
	now := s.now()
	end := now.Add(s.period)
	sub := &models.Subscription{
		ID:                uuid.New(),
		CreatorAddress:    creator,
		SubscriberAddress: subscriber,
		MonthlyFee:        fee,
		StartDate:         now,
		EndDate:           end,
		Status:            enums.SubscriptionStatusActive,
		TxHash:            txHash,
		LastPaymentDate:   now,
		NextPaymentDate:   end,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.PutSubscription(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "persist subscription")
	}
	s.log(ctx, sub, "subscription created")
	return sub, nil
}

func (s *service) Check(ctx context.Context, creator, subscriber string) (*CheckResult, error) {
	c, sb, err := parsePair(creator, subscriber)
	if err != nil {
		return nil, err
	}
	sub, err := s.load(ctx, c, sb)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return &CheckResult{}, nil
		}
		return nil, err
	}

	now := s.now()
	expires := sub.EndDate
	result := &CheckResult{
		HasActiveSubscription: sub.ActiveAt(now),
		Subscription:          sub,
		ExpiresAt:             &expires,
	}
	if result.HasActiveSubscription {
		result.DaysRemaining = daysRemaining(sub.EndDate, now)
	}
	return result, nil
}

// Renew extends from the later of the current end date and now, so early
// renewals keep unused time and lapsed ones restart from now.
func (s *service) Renew(ctx context.Context, input RenewInput) (*models.Subscription, error) {
	creator, subscriber, err := parsePair(input.Creator, input.Subscriber)
	if err != nil {
		return nil, err
	}
	txHash, err := normalizeTxHash(input.TxHash)
	if err != nil {
		return nil, err
	}
	sub, err := s.load(ctx, creator, subscriber)
	if err != nil {
		return nil, err
	}
	return s.extend(ctx, sub, txHash)
}

func (s *service) extend(ctx context.Context, sub *models.Subscription, txHash string) (*models.Subscription, error) {
	now := s.now()
	base := sub.EndDate
	if now.After(base) {
		base = now
	}
	sub.EndDate = base.Add(s.period)
	sub.Status = enums.SubscriptionStatusActive
	sub.TxHash = txHash
	sub.LastPaymentDate = now
	sub.NextPaymentDate = sub.EndDate
	sub.UpdatedAt = now

	if err := s.repo.PutSubscription(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "persist subscription")
	}
	s.log(ctx, sub, "subscription renewed")
	return sub, nil
}

// Cancel revokes access immediately; the end date is left untouched.
func (s *service) Cancel(ctx context.Context, creator, subscriber string) (*models.Subscription, error) {
	c, sb, err := parsePair(creator, subscriber)
	if err != nil {
		return nil, err
	}
	sub, err := s.load(ctx, c, sb)
	if err != nil {
		return nil, err
	}
	sub.Status = enums.SubscriptionStatusCancelled
	sub.UpdatedAt = s.now()
	if err := s.repo.PutSubscription(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "persist subscription")
	}
	s.log(ctx, sub, "subscription cancelled")
	return sub, nil
}

func (s *service) ListByCreator(ctx context.Context, creator string) ([]View, error) {
	addr, err := chain.ParseAddress("creatorAddress", creator)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListByCreator(ctx, chain.Lower(addr))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "list subscriptions")
	}
	return s.views(subs), nil
}

func (s *service) ListBySubscriber(ctx context.Context, subscriber string) ([]View, error) {
	addr, err := chain.ParseAddress("subscriberAddress", subscriber)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListBySubscriber(ctx, chain.Lower(addr))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "list subscriptions")
	}
	return s.views(subs), nil
}

func (s *service) SetOffer(ctx context.Context, input SetOfferInput) (*models.CreatorOffer, error) {
	addr, err := chain.ParseAddress("creatorAddress", input.Creator)
	if err != nil {
		return nil, err
	}
	if input.MonthlyFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthlyFee must be non-negative")
	}
	creator := chain.Lower(addr)
	now := s.now()

	createdAt := now
	existing, err := s.repo.GetOffer(ctx, creator)
	switch {
	case err == nil:
		createdAt = existing.CreatedAt
	case !errors.Is(err, kv.ErrNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "load creator offer")
	}

	benefits := input.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	offer := &models.CreatorOffer{
		CreatorAddress: creator,
		MonthlyFee:     input.MonthlyFee,
		Description:    strings.TrimSpace(input.Description),
		Benefits:       benefits,
		IsActive:       input.IsActive,
		CreatedAt:      createdAt,
		UpdatedAt:      now,
	}
	if err := s.repo.PutOffer(ctx, offer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "persist creator offer")
	}
	return offer, nil
}

func (s *service) GetOffer(ctx context.Context, creator string) (*models.CreatorOffer, error) {
	addr, err := chain.ParseAddress("creatorAddress", creator)
	if err != nil {
		return nil, err
	}
	offer, err := s.repo.GetOffer(ctx, chain.Lower(addr))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "load creator offer")
	}
	return offer, nil
}

// Subscribe charges the creator's active offer fee. A monthlyFee supplied by
// the caller must match the offer.
func (s *service) Subscribe(ctx context.Context, input CreateInput) (*models.Subscription, error) {
	creator, subscriber, err := parsePair(input.Creator, input.Subscriber)
	if err != nil {
		return nil, err
	}
	txHash, err := normalizeTxHash(input.TxHash)
	if err != nil {
		return nil, err
	}
	offer, err := s.activeOffer(ctx, creator)
	if err != nil {
		return nil, err
	}
	if !input.MonthlyFee.IsZero() && !input.MonthlyFee.Equal(offer.MonthlyFee) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthlyFee does not match the creator's offer").
			WithDetails(map[string]any{"offer_fee": offer.MonthlyFee.String()})
	}
	if current, err := s.load(ctx, creator, subscriber); err == nil && current.TxHash == txHash {
		return nil, pkgerrors.New(pkgerrors.CodeTransactionUsed, "transaction already paid for this subscription")
	} else if err != nil && !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	return s.settle(ctx, creator, subscriber, txHash, offer.MonthlyFee, func() (*models.Subscription, error) {
		return s.create(ctx, creator, subscriber, txHash, offer.MonthlyFee)
	})
}

// RenewPaid charges the creator's current offer fee and extends by one period.
func (s *service) RenewPaid(ctx context.Context, input RenewInput) (*models.Subscription, error) {
	creator, subscriber, err := parsePair(input.Creator, input.Subscriber)
	if err != nil {
		return nil, err
	}
	txHash, err := normalizeTxHash(input.TxHash)
	if err != nil {
		return nil, err
	}
	sub, err := s.load(ctx, creator, subscriber)
	if err != nil {
		return nil, err
	}
	if sub.TxHash == txHash {
		return nil, pkgerrors.New(pkgerrors.CodeTransactionUsed, "transaction already paid for this subscription")
	}
	offer, err := s.activeOffer(ctx, creator)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, creator, subscriber, txHash, offer.MonthlyFee, func() (*models.Subscription, error) {
		sub.MonthlyFee = offer.MonthlyFee
		return s.extend(ctx, sub, txHash)
	})
}

func (s *service) activeOffer(ctx context.Context, creator string) (*models.CreatorOffer, error) {
	offer, err := s.GetOffer(ctx, creator)
	if err != nil {
		return nil, err
	}
	if !offer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator offer is not active")
	}
	return offer, nil
}

// settle rejects spent transactions, verifies the fee transfer, claims the
// hash and then applies the ledger write. The claim is released if the write
// fails so the subscriber can retry with the same transaction.
func (s *service) settle(ctx context.Context, creator, subscriber, txHash string, fee decimal.Decimal, apply func() (*models.Subscription, error)) (*models.Subscription, error) {
	if s.verifier == nil || s.claims == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fee verification not configured")
	}
	claim, err := s.claims.Check(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		return nil, payments.ErrTransactionUsed(claim)
	}

	if _, err := s.verifier.Verify(ctx, payments.VerifyInput{
		TxHash:            txHash,
		ExpectedRecipient: creator,
		ExpectedSender:    subscriber,
		ExpectedAmount:    fee,
	}); err != nil {
		return nil, err
	}

	if err := s.claims.Claim(ctx, txHash, kv.Key("subscription", creator, subscriber)); err != nil {
		return nil, err
	}
	sub, err := apply()
	if err != nil {
		if relErr := s.claims.Release(ctx, txHash); relErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithTxHash(ctx, txHash), "release transaction claim", relErr)
		}
		return nil, err
	}
	return sub, nil
}

func (s *service) load(ctx context.Context, creator, subscriber string) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, creator, subscriber)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "load subscription")
	}
	return sub, nil
}

func (s *service) views(subs []models.Subscription) []View {
	now := s.now()
	out := make([]View, 0, len(subs))
	for _, sub := range subs {
		v := View{Subscription: sub, Active: sub.ActiveAt(now)}
		if v.Active {
			v.DaysRemaining = daysRemaining(sub.EndDate, now)
		}
		out = append(out, v)
	}
	return out
}

func (s *service) log(ctx context.Context, sub *models.Subscription, msg string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"creator":    sub.CreatorAddress,
		"subscriber": sub.SubscriberAddress,
		"end_date":   sub.EndDate,
		"status":     sub.Status,
	})
	s.logg.Info(s.logg.WithTxHash(ctx, sub.TxHash), msg)
}

// daysRemaining rounds the remaining time up to whole days at millisecond
// resolution.
func daysRemaining(end, now time.Time) int64 {
	ms := end.Sub(now).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return (ms + msPerDay - 1) / msPerDay
}
