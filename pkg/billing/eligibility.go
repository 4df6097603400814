package billing

// BlockReason explains why account deletion is blocked.
type BlockReason string

const (
	ReasonPending            BlockReason = "pending"
	ReasonActive             BlockReason = "active"
	ReasonTerminalIneligible BlockReason = "terminal_ineligible"
)

var blockMessages = map[BlockReason]string{
	ReasonPending:            "Apologies, your subscription activation is still processing. Please wait a moment and refresh the page before attempting to delete your account.",
	ReasonActive:             "Apologies, you cannot delete an account with an active subscription. Please click 'Manage Subscription' and use the Stripe customer dashboard to cancel your subscription first.",
	ReasonTerminalIneligible: "Apologies, your subscription is in a non-terminal state. Please contact customer support before attempting to delete your account.",
}

// Message returns the user-facing text for the reason.
func (r BlockReason) Message() string {
	return blockMessages[r]
}

// Decision is the outcome of the deletion eligibility rules.
// Reason is empty when Eligible is true.
type Decision struct {
	Eligible bool
	Reason   BlockReason
}

// Message returns the user-facing text for a blocked decision, or "" when eligible.
func (d Decision) Message() string {
	if d.Eligible {
		return ""
	}
	return d.Reason.Message()
}

var (
	Eligible = Decision{Eligible: true}

	blockedPending            = Decision{Reason: ReasonPending}
	blockedActive             = Decision{Reason: ReasonActive}
	blockedTerminalIneligible = Decision{Reason: ReasonTerminalIneligible}
)

// Evaluate applies the deletion eligibility rules in precedence order.
// status is ignored when entitlementPresent is false.
func Evaluate(entitlementPresent bool, status string, customerLinkPresent bool) Decision {
	switch {
	case !entitlementPresent && !customerLinkPresent:
		return Eligible
	case !entitlementPresent && customerLinkPresent:
		return blockedPending
	case status == StatusCanceled || status == StatusIncompleteExpired:
		return Eligible
	case status == StatusActive:
		return blockedActive
	case entitlementPresent:
		return blockedTerminalIneligible
	}
	return blockedTerminalIneligible
}

// EvaluateRecords is Evaluate over loaded records; nil means absent.
func EvaluateRecords(e *Entitlement, link *CustomerLink) Decision {
	if e == nil {
		return Evaluate(false, "", link != nil)
	}
	return Evaluate(true, e.Status, link != nil)
}
