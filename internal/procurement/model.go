package procurement

import "time"

// Status is the purchase requisition lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusClosed    Status = "CLOSED"
)

// IsValid checks if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusClosed:
		return true
	default:
		return false
	}
}

// CanEdit reports whether requisition fields may still be changed. Rejected
// requisitions reopen for edit so the requester can fix and resubmit.
func (s Status) CanEdit() bool {
	return s == StatusDraft || s == StatusRejected
}

// CanSubmit reports whether the requisition can go to approval.
func (s Status) CanSubmit() bool {
	return s == StatusDraft || s == StatusRejected
}

// CanDecide reports whether an approval decision is pending.
func (s Status) CanDecide() bool {
	return s == StatusSubmitted
}

// CanClose reports whether the requisition can be closed out.
func (s Status) CanClose() bool {
	return s == StatusApproved
}

// Requisition is a purchase requisition header with its lines.
type Requisition struct {
	ID            int64      `json:"id"`
	RequisitionNo string     `json:"requisitionNo"`
	Department    string     `json:"department"`
	NeededBy      *time.Time `json:"neededBy,omitempty"`
	Justification *string    `json:"justification,omitempty"`
	Status        Status     `json:"status"`
	RequestedBy   int64      `json:"requestedBy"`
	DecidedBy     *int64     `json:"decidedBy,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	DecisionNote  *string    `json:"decisionNote,omitempty"`
	EstimatedCost float64    `json:"estimatedCost"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Items         []Item     `json:"items,omitempty"`
}

// Item is a requisition line.
type Item struct {
	ID             int64   `json:"id"`
	RequisitionID  int64   `json:"requisitionId"`
	ProductID      int64   `json:"productId"`
	ProductCode    string  `json:"productCode"`
	ProductName    string  `json:"productName"`
	UOM            string  `json:"uom"`
	Quantity       float64 `json:"quantity"`
	EstimatedPrice float64 `json:"estimatedPrice"`
	LineOrder      int     `json:"lineOrder"`
}
