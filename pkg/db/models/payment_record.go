package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord proves a verified payment for one content item. At most one
// record exists per (ContentID, Payer); a new write replaces the old one.
type PaymentRecord struct {
	ContentID string `json:"contentId"`
	Payer     string `json:"payer"`
	TxHash    string `json:"txHash"`
	// Amount is in token base units.
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}
