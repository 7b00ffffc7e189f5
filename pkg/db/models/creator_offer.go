package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatorOffer is a creator's subscription offering.
type CreatorOffer struct {
	CreatorAddress string          `json:"creatorAddress"`
	MonthlyFee     decimal.Decimal `json:"monthlyFee"`
	Description    string          `json:"description"`
	Benefits       []string        `json:"benefits"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
