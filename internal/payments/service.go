package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Bvvvp009/farcasterpaywall/pkg/chain"
	"github.com/Bvvvp009/farcasterpaywall/pkg/contentid"
	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/kv"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
)

// Service exposes payment verification and the payment record store.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*VerificationResult, error)
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.PaymentRecord, error)
	GetPayment(ctx context.Context, contentID, payer string) (*models.PaymentRecord, error)
	ListPaymentsByPayer(ctx context.Context, payer string) ([]models.PaymentRecord, error)
	VerifyAndRecord(ctx context.Context, input VerifyAndRecordInput) (*models.PaymentRecord, *VerificationResult, error)
}

// RecordPaymentInput captures a verified payment. Amount is in base units.
type RecordPaymentInput struct {
	ContentID string          `json:"contentId" validate:"required"`
	Payer     string          `json:"payer" validate:"required,ethaddr"`
	TxHash    string          `json:"txHash" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"nonneg"`
	Timestamp time.Time       `json:"timestamp"`
}

// VerifyAndRecordInput identifies the item paid for and the transfer that
// paid it. Recipient and amount come from the content's on-chain record.
type VerifyAndRecordInput struct {
	ContentID string `json:"contentId" validate:"required"`
	Payer     string `json:"payer" validate:"required,ethaddr"`
	TxHash    string `json:"txHash" validate:"required"`
}

// ContentReader loads the on-chain record a payment is settled against.
type ContentReader interface {
	GetContent(ctx context.Context, id contentid.ID) (*chain.ContentRecord, error)
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo     Repository
	Verifier *Verifier
	Content  ContentReader
	Claims   ClaimStore
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	verifier *Verifier
	content  ContentReader
	claims   ClaimStore
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("verifier required")
	}
	if params.Content == nil {
		return nil, fmt.Errorf("content reader required")
	}
	if params.Claims == nil {
		return nil, fmt.Errorf("claim store required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		verifier: params.Verifier,
		content:  params.Content,
		claims:   params.Claims,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*VerificationResult, error) {
	return s.verifier.Verify(ctx, input)
}

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.PaymentRecord, error) {
	id, err := contentid.Parse(input.ContentID)
	if err != nil {
		return nil, err
	}
	payer, err := chain.ParseAddress("payer", input.Payer)
	if err != nil {
		return nil, err
	}
	hash, err := chain.ParseTxHash(input.TxHash)
	if err != nil {
		return nil, err
	}
	if input.Amount.IsNegative() || !input.Amount.IsInteger() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a non-negative integer of base units")
	}
	ts := input.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	record := &models.PaymentRecord{
		ContentID: id.Hex(),
		Payer:     chain.Lower(payer),
		TxHash:    strings.ToLower(hash.Hex()),
		Amount:    input.Amount,
		Timestamp: ts.UTC(),
	}
	if err := s.repo.Put(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "persist payment record")
	}
	if s.logg != nil {
		logCtx := s.logg.WithIdentity(s.logg.WithContentID(ctx, record.ContentID), record.Payer)
		s.logg.Info(s.logg.WithTxHash(logCtx, record.TxHash), "payment recorded")
	}
	return record, nil
}

func (s *service) GetPayment(ctx context.Context, contentID, payer string) (*models.PaymentRecord, error) {
	id, err := contentid.Parse(contentID)
	if err != nil {
		return nil, err
	}
	addr, err := chain.ParseAddress("payer", payer)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.Get(ctx, id.Hex(), chain.Lower(addr))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "load payment record")
	}
	return record, nil
}

func (s *service) ListPaymentsByPayer(ctx context.Context, payer string) ([]models.PaymentRecord, error) {
	addr, err := chain.ParseAddress("payer", payer)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListByPayer(ctx, chain.Lower(addr))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "list payment records")
	}
	if records == nil {
		records = []models.PaymentRecord{}
	}
	return records, nil
}

// VerifyAndRecord checks txHash paid the content's creator exactly the
// content's price and records the payment. Nothing is written unless the
// transfer verifies. A hash already spent on something else is rejected;
// resubmitting it for the same content and payer re-records it.
func (s *service) VerifyAndRecord(ctx context.Context, input VerifyAndRecordInput) (*models.PaymentRecord, *VerificationResult, error) {
	id, err := contentid.Parse(input.ContentID)
	if err != nil {
		return nil, nil, err
	}
	payer, err := chain.ParseAddress("payer", input.Payer)
	if err != nil {
		return nil, nil, err
	}
	hash, err := chain.ParseTxHash(input.TxHash)
	if err != nil {
		return nil, nil, err
	}
	txHash := strings.ToLower(hash.Hex())

	content, err := s.content.GetContent(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !content.Exists() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found").
			WithDetails(map[string]any{"content_id": id.Hex()})
	}

	purpose := kv.Key("content", id.Hex(), chain.Lower(payer))
	existing, err := s.claims.Check(ctx, txHash)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil && existing.Purpose != purpose {
		return nil, nil, ErrTransactionUsed(existing)
	}

	price := decimal.Zero
	if content.Price != nil {
		price = decimal.NewFromBigInt(content.Price, 0)
	}
	result, err := s.verifier.Verify(ctx, VerifyInput{
		TxHash:            txHash,
		ExpectedRecipient: content.Creator.Hex(),
		ExpectedSender:    payer.Hex(),
		ExpectedAmount:    s.verifier.Display(price),
	})
	if err != nil {
		return nil, nil, err
	}

	if existing == nil {
		if err := s.claims.Claim(ctx, txHash, purpose); err != nil {
			return nil, result, err
		}
	}
	record, err := s.RecordPayment(ctx, RecordPaymentInput{
		ContentID: id.Hex(),
		Payer:     result.From,
		TxHash:    result.TxHash,
		Amount:    result.Value,
		Timestamp: s.now(),
	})
	if err != nil {
		if existing == nil {
			if relErr := s.claims.Release(ctx, txHash); relErr != nil && s.logg != nil {
				s.logg.Error(s.logg.WithTxHash(ctx, txHash), "release transaction claim", relErr)
			}
		}
		return nil, result, err
	}
	return record, result, nil
}
