package quotations

import "github.com/vantage-erp/vantage-erp/internal/auth"

// User-initiated transition actions surfaced to the front end.
const (
	ActionSend  = "send"  // DRAFT -> ACTIVE, "send to customer"
	ActionClone = "clone" // ACTIVE -> new DRAFT record
)

// CanSend reports whether the quotation can be sent to the customer.
func (s Status) CanSend() bool {
	return s == StatusDraft
}

// CanClone reports whether the quotation can be cloned into a new draft.
// Cloning leaves the original untouched.
func (s Status) CanClone() bool {
	return s == StatusActive
}

// CanTransition validates a status change. DRAFT may become ACTIVE or
// CANCELLED; ACTIVE may become CONVERTED, CANCELLED or EXPIRED. Terminal
// states accept no further transitions.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusDraft:
		return to == StatusActive || to == StatusCancelled
	case StatusActive:
		return to == StatusConverted || to == StatusCancelled || to == StatusExpired
	default:
		return false
	}
}

// CanEdit reports whether quotation fields are editable. A record that has
// not been persisted yet is always editable; a persisted ACTIVE quotation
// is read-only unless the acting user holds the manager role. Only ACTIVE
// is special-cased; other statuses follow the persisted rule unchanged.
func CanEdit(persisted bool, status Status, roles auth.RoleSet) bool {
	if !(persisted && status == StatusActive) {
		return true
	}
	return roles.Has(auth.RoleManager)
}

// AvailableActions lists the transition actions the front end may offer
// for a persisted quotation. Unsaved records expose no actions.
func AvailableActions(persisted bool, status Status) []string {
	if !persisted {
		return nil
	}
	var actions []string
	if status.CanSend() {
		actions = append(actions, ActionSend)
	}
	if status.CanClone() {
		actions = append(actions, ActionClone)
	}
	return actions
}
