package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Bvvvp009/farcasterpaywall/pkg/chain"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
	"github.com/Bvvvp009/farcasterpaywall/pkg/metrics"
)

// ChainReader is the slice of the chain client the verifier reads from.
type ChainReader interface {
	Transaction(ctx context.Context, hash common.Hash) (*chain.Transaction, error)
	Receipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error)
}

// VerifyInput describes the payment a caller claims was made.
type VerifyInput struct {
	TxHash            string          `json:"txHash" validate:"required"`
	ExpectedRecipient string          `json:"expectedRecipient" validate:"required,ethaddr"`
	ExpectedSender    string          `json:"expectedSender" validate:"required,ethaddr"`
	ExpectedAmount    decimal.Decimal `json:"expectedAmount" validate:"nonneg"`
}

// VerificationResult is returned only for a fully matched payment.
type VerificationResult struct {
	Verified    bool            `json:"verified"`
	TxHash      string          `json:"txHash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Value       decimal.Decimal `json:"value"`
	BlockNumber uint64          `json:"blockNumber"`
	GasUsed     uint64          `json:"gasUsed"`
}

// Verifier checks a transaction settled an exact token transfer. It has no
// side effects and never retries.
type Verifier struct {
	reader   ChainReader
	token    common.Address
	decimals int32
	metrics  *metrics.PaywallMetrics
	logg     *logger.Logger
}

// VerifierParams groups verifier dependencies.
type VerifierParams struct {
	Reader        ChainReader
	TokenContract common.Address
	TokenDecimals int
	Metrics       *metrics.PaywallMetrics
	Logger        *logger.Logger
}

// NewVerifier builds a verifier for the configured token contract.
func NewVerifier(params VerifierParams) (*Verifier, error) {
	if params.Reader == nil {
		return nil, fmt.Errorf("chain reader required")
	}
	if params.TokenContract == (common.Address{}) {
		return nil, fmt.Errorf("token contract required")
	}
	if params.TokenDecimals < 0 {
		return nil, fmt.Errorf("token decimals must be >= 0")
	}
	return &Verifier{
		reader:   params.Reader,
		token:    params.TokenContract,
		decimals: int32(params.TokenDecimals),
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// BaseUnits converts a display amount into token base units. Amounts with
// more fractional digits than the token supports are rejected.
func (v *Verifier) BaseUnits(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative")
	}
	scaled := amount.Shift(v.decimals)
	if !scaled.IsInteger() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("amount supports at most %d fractional digits", v.decimals))
	}
	return scaled.Truncate(0), nil
}

// Display converts base units back into a display amount.
func (v *Verifier) Display(units decimal.Decimal) decimal.Decimal {
	return units.Shift(-v.decimals)
}

// Verify checks txHash transferred exactly ExpectedAmount of the token from
// ExpectedSender to ExpectedRecipient in a successful transaction.
func (v *Verifier) Verify(ctx context.Context, input VerifyInput) (*VerificationResult, error) {
	started := time.Now()
	result, err := v.verify(ctx, input)
	outcome := metrics.OutcomeVerified
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
	}
	v.metrics.ObserveVerification(outcome, time.Since(started))
	if err != nil && v.logg != nil && pkgerrors.IsChainError(err) {
		v.logg.Warn(v.logg.WithFields(v.logg.WithTxHash(ctx, input.TxHash), map[string]any{
			"outcome": outcome,
			"error":   err.Error(),
		}), "payment verification rejected")
	}
	return result, err
}

func (v *Verifier) verify(ctx context.Context, input VerifyInput) (*VerificationResult, error) {
	hash, err := chain.ParseTxHash(input.TxHash)
	if err != nil {
		return nil, err
	}
	recipient, err := chain.ParseAddress("expectedRecipient", input.ExpectedRecipient)
	if err != nil {
		return nil, err
	}
	sender, err := chain.ParseAddress("expectedSender", input.ExpectedSender)
	if err != nil {
		return nil, err
	}
	expected, err := v.BaseUnits(input.ExpectedAmount)
	if err != nil {
		return nil, err
	}

	tx, err := v.reader.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	receipt, err := v.reader.Receipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tx == nil || receipt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeTransactionNotFound, "transaction not found")
	}
	if !receipt.Success {
		return nil, pkgerrors.New(pkgerrors.CodeTransactionFailed, "transaction reverted").
			WithDetails(map[string]any{"block_number": receipt.BlockNumber})
	}
	if tx.To == nil || *tx.To != v.token {
		return nil, pkgerrors.New(pkgerrors.CodeWrongAsset, "transaction did not call the payment token contract")
	}

	var matched *chain.Transfer
	for _, tr := range chain.TransfersOf(receipt.Logs, v.token) {
		if tr.From == sender && tr.To == recipient {
			tr := tr
			matched = &tr
			break
		}
	}
	if matched == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoMatchingTransfer, "no transfer from sender to recipient")
	}

	value := decimal.NewFromBigInt(matched.Value, 0)
	if !value.Equal(expected) {
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "transferred amount does not match").
			WithDetails(map[string]any{"expected": expected.String(), "actual": value.String()})
	}

	return &VerificationResult{
		Verified:    true,
		TxHash:      hash.Hex(),
		From:        chain.Lower(matched.From),
		To:          chain.Lower(matched.To),
		Value:       value,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
	}, nil
}
