package billing

import "time"

// DisplayState summarises subscription state for the account page.
type DisplayState string

const (
	DisplayActive         DisplayState = "active"
	DisplayNeedsAttention DisplayState = "needs_attention"
	DisplayPending        DisplayState = "pending"
	DisplayNone           DisplayState = "none"
)

// nonActiveStatuses are statuses shown as "no subscription" rather than
// as a state requiring attention.
var nonActiveStatuses = map[string]struct{}{
	StatusCanceled:          {},
	StatusIncompleteExpired: {},
	StatusPaused:            {},
}

// DisplayStateOf derives the account page state with precedence
// active, needs attention, pending, none.
func DisplayStateOf(e *Entitlement, link *CustomerLink) DisplayState {
	if e.IsActive() {
		return DisplayActive
	}
	if e != nil && e.Status != "" {
		if _, ok := nonActiveStatuses[e.Status]; !ok {
			return DisplayNeedsAttention
		}
	}
	if link != nil {
		return DisplayPending
	}
	return DisplayNone
}

// Summary is the billing part of the account overview.
type Summary struct {
	State            DisplayState `json:"state"`
	Status           string       `json:"status,omitempty"`
	CurrentPeriodEnd *time.Time   `json:"current_period_end,omitempty"`
	HasCustomer      bool         `json:"has_customer"`
	Deletion         Decision     `json:"-"`
}

// Summarize combines the display state and the deletion decision.
func Summarize(e *Entitlement, link *CustomerLink) Summary {
	s := Summary{
		State:       DisplayStateOf(e, link),
		HasCustomer: link != nil,
		Deletion:    EvaluateRecords(e, link),
	}
	if e != nil {
		s.Status = e.Status
		s.CurrentPeriodEnd = e.CurrentPeriodEnd
	}
	return s
}
