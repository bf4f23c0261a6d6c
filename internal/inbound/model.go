package inbound

import "time"

// Status is the inbound delivery lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusReceived, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanEdit reports whether delivery fields may still be changed.
func (s Status) CanEdit() bool {
	return s == StatusDraft
}

// CanConfirm reports whether the delivery can be confirmed against the
// supplier's advice.
func (s Status) CanConfirm() bool {
	return s == StatusDraft
}

// CanReceive reports whether goods receipt can be posted.
func (s Status) CanReceive() bool {
	return s == StatusConfirmed
}

// CanCancel reports whether the delivery can still be cancelled. Received
// deliveries have posted stock and cannot be undone here.
func (s Status) CanCancel() bool {
	return s == StatusDraft || s == StatusConfirmed
}

// Delivery is an inbound delivery header with its expected lines.
type Delivery struct {
	ID           int64      `json:"id"`
	DeliveryNo   string     `json:"deliveryNo"`
	SupplierName string     `json:"supplierName"`
	Reference    *string    `json:"reference,omitempty"`
	DeliveryDate time.Time  `json:"deliveryDate"`
	ReceivedAt   *time.Time `json:"receivedAt,omitempty"`
	Status       Status     `json:"status"`
	Notes        *string    `json:"notes,omitempty"`
	CreatedBy    int64      `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Items        []Item     `json:"items,omitempty"`
}

// Item is an inbound delivery line. ReceivedQty stays zero until goods
// receipt is posted.
type Item struct {
	ID          int64   `json:"id"`
	DeliveryID  int64   `json:"deliveryId"`
	ProductID   int64   `json:"productId"`
	ProductCode string  `json:"productCode"`
	ProductName string  `json:"productName"`
	UOM         string  `json:"uom"`
	ExpectedQty float64 `json:"expectedQty"`
	ReceivedQty float64 `json:"receivedQty"`
	LineOrder   int     `json:"lineOrder"`
}
