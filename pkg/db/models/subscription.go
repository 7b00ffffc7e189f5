package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Bvvvp009/farcasterpaywall/pkg/enums"
)

// Subscription is the ledger entry for one (creator, subscriber) pair.
// Addresses are stored lower-cased.
type Subscription struct {
	ID                uuid.UUID                `json:"id"`
	CreatorAddress    string                   `json:"creatorAddress"`
	SubscriberAddress string                   `json:"subscriberAddress"`
	MonthlyFee        decimal.Decimal          `json:"monthlyFee"`
	StartDate         time.Time                `json:"startDate"`
	EndDate           time.Time                `json:"endDate"`
	Status            enums.SubscriptionStatus `json:"status"`
	TxHash            string                   `json:"txHash"`
	LastPaymentDate   time.Time                `json:"lastPaymentDate"`
	NextPaymentDate   time.Time                `json:"nextPaymentDate"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// ActiveAt reports liveness: status active and end date after now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s != nil && s.Status == enums.SubscriptionStatusActive && s.EndDate.After(now)
}
