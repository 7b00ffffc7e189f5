package enums

import (
	"fmt"
	"strings"
)

// SubscriptionStatus is the stored, writer-controlled state of a subscription.
// Expiry is derived from the end date at read time and never stored.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// ParseSubscriptionStatus is case-insensitive and ignores surrounding spaces.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	switch s := SubscriptionStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case SubscriptionStatusActive, SubscriptionStatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	parsed, err := ParseSubscriptionStatus(string(s))
	return err == nil && parsed == s
}

// UnmarshalText rejects unknown values so a corrupted record fails to load
// instead of reading as neither active nor cancelled.
func (s *SubscriptionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseSubscriptionStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
