package enums

// AccessReason explains an access decision.
type AccessReason string

const (
	AccessReasonCreator         AccessReason = "creator"
	AccessReasonOnchainPurchase AccessReason = "onchain_purchase"
	AccessReasonPaymentRecord   AccessReason = "payment_record"
	AccessReasonSubscription    AccessReason = "subscription"
	AccessReasonPaymentRequired AccessReason = "payment_required"
	AccessReasonContentInactive AccessReason = "content_inactive"
)

// String implements fmt.Stringer.
func (r AccessReason) String() string {
	return string(r)
}

// Granted reports whether the reason corresponds to an allow decision.
func (r AccessReason) Granted() bool {
	switch r {
	case AccessReasonCreator, AccessReasonOnchainPurchase, AccessReasonPaymentRecord, AccessReasonSubscription:
		return true
	}
	return false
}
