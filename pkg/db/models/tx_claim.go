package models

import "time"

// TxClaim marks a transaction hash as spent. Purpose names what it paid for,
// e.g. "content:<id>:<payer>" or "subscription:<creator>:<subscriber>".
type TxClaim struct {
	TxHash    string    `json:"txHash"`
	Purpose   string    `json:"purpose"`
	ClaimedAt time.Time `json:"claimedAt"`
}
