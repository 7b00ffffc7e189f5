// Package access decides whether an identity may read a content item.
package access

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Bvvvp009/farcasterpaywall/internal/subscriptions"
	"github.com/Bvvvp009/farcasterpaywall/pkg/chain"
	"github.com/Bvvvp009/farcasterpaywall/pkg/contentid"
	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	"github.com/Bvvvp009/farcasterpaywall/pkg/enums"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
	"github.com/Bvvvp009/farcasterpaywall/pkg/metrics"
)

// ContentReader reads the settlement contract.
type ContentReader interface {
	GetContent(ctx context.Context, id contentid.ID) (*chain.ContentRecord, error)
	CheckAccess(ctx context.Context, identity common.Address, id contentid.ID) (bool, error)
}

// PaymentLookup finds a recorded payment for (content, payer).
type PaymentLookup interface {
	GetPayment(ctx context.Context, contentID, payer string) (*models.PaymentRecord, error)
}

// SubscriptionLookup exposes the ledger reads the resolver needs.
type SubscriptionLookup interface {
	GetOffer(ctx context.Context, creator string) (*models.CreatorOffer, error)
	Check(ctx context.Context, creator, subscriber string) (*subscriptions.CheckResult, error)
}

// Decision is the outcome of one resolution. Price fields are set when the
// identity must pay.
type Decision struct {
	ContentID      string             `json:"contentId"`
	Identity       string             `json:"identity"`
	Granted        bool               `json:"granted"`
	Reason         enums.AccessReason `json:"reason"`
	Creator        string             `json:"creator"`
	StoragePointer string             `json:"storagePointer,omitempty"`
	Price          *decimal.Decimal   `json:"price,omitempty"`
	PriceDisplay   string             `json:"priceDisplay,omitempty"`
}

// Service resolves access decisions.
type Service interface {
	Resolve(ctx context.Context, contentID, identity string) (*Decision, error)
}

// ServiceParams groups resolver dependencies.
type ServiceParams struct {
	Content       ContentReader
	Payments      PaymentLookup
	Subscriptions SubscriptionLookup
	TokenDecimals int
	Metrics       *metrics.PaywallMetrics
	Logger        *logger.Logger
}

type service struct {
	content  ContentReader
	payments PaymentLookup
	subs     SubscriptionLookup
	decimals int32
	metrics  *metrics.PaywallMetrics
	logg     *logger.Logger
}

// NewService wires the access resolver.
func NewService(params ServiceParams) (Service, error) {
	if params.Content == nil {
		return nil, fmt.Errorf("content reader required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment lookup required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription lookup required")
	}
	return &service{
		content:  params.Content,
		payments: params.Payments,
		subs:     params.Subscriptions,
		decimals: int32(params.TokenDecimals),
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Resolve evaluates, in order: creator bypass, on-chain purchase, recorded
// payment, live subscription to an active offer. The first match grants.
// Inactive content only changes the reason of the final denial, so existing
// purchases keep working after a creator delists an item.
// Infrastructure failures are returned as errors, never as a denial.
func (s *service) Resolve(ctx context.Context, contentID, identity string) (*Decision, error) {
	id, err := contentid.Parse(contentID)
	if err != nil {
		return nil, err
	}
	who, err := chain.ParseAddress("identity", identity)
	if err != nil {
		return nil, err
	}

	record, err := s.content.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.Exists() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found").
			WithDetails(map[string]any{"content_id": id.Hex()})
	}

	decision := &Decision{
		ContentID: id.Hex(),
		Identity:  chain.Lower(who),
		Creator:   chain.Lower(record.Creator),
	}

	reason, err := s.evaluate(ctx, id, who, record)
	if err != nil {
		return nil, err
	}
	decision.Reason = reason
	decision.Granted = reason.Granted()
	if decision.Granted {
		decision.StoragePointer = record.StoragePointer
	} else {
		price := decimal.NewFromBigInt(record.Price, 0)
		decision.Price = &price
		decision.PriceDisplay = price.Shift(-s.decimals).String()
	}

	s.metrics.IncAccessDecision(string(reason))
	if s.logg != nil {
		logCtx := s.logg.WithIdentity(s.logg.WithContentID(ctx, decision.ContentID), decision.Identity)
		s.logg.Debug(s.logg.WithField(logCtx, "reason", reason), "access resolved")
	}
	return decision, nil
}

func (s *service) evaluate(ctx context.Context, id contentid.ID, who common.Address, record *chain.ContentRecord) (enums.AccessReason, error) {
	if who == record.Creator {
		return enums.AccessReasonCreator, nil
	}

	purchased, err := s.content.CheckAccess(ctx, who, id)
	if err != nil {
		return "", err
	}
	if purchased {
		return enums.AccessReasonOnchainPurchase, nil
	}

	if _, err := s.payments.GetPayment(ctx, id.Hex(), chain.Lower(who)); err == nil {
		return enums.AccessReasonPaymentRecord, nil
	} else if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		return "", err
	}

	creator := chain.Lower(record.Creator)
	offer, err := s.subs.GetOffer(ctx, creator)
	switch {
	case err == nil && offer.IsActive:
		check, err := s.subs.Check(ctx, creator, chain.Lower(who))
		if err != nil {
			return "", err
		}
		if check.HasActiveSubscription {
			return enums.AccessReasonSubscription, nil
		}
	case err != nil && !pkgerrors.Is(err, pkgerrors.CodeNotFound):
		return "", err
	}

	if !record.IsActive {
		return enums.AccessReasonContentInactive, nil
	}
	return enums.AccessReasonPaymentRequired, nil
}
