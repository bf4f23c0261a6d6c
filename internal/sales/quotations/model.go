package quotations

import "time"

// Status is the quotation lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusActive    Status = "ACTIVE"
	StatusConverted Status = "CONVERTED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// IsValid checks if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusConverted, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Quotation is a sales quotation header with its line items.
// JSON field names are the wire contract consumed by the front end.
type Quotation struct {
	ID                    int64      `json:"id"`
	QuotationNo           string     `json:"quotationNo"`
	CustomerID            int64      `json:"customerId"`
	Status                Status     `json:"status"`
	QuotationDate         time.Time  `json:"quotationDate"`
	ValidUntil            *time.Time `json:"validUntil,omitempty"`
	PaymentTerms          *string    `json:"paymentTerms,omitempty"`
	DeliveryTerms         *string    `json:"deliveryTerms,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
	HeaderDiscountPercent float64    `json:"headerDiscountPercent"`
	TaxRate               float64    `json:"taxRate"`
	Subtotal              float64    `json:"subtotal"`
	DiscountTotal         float64    `json:"discountTotal"`
	TaxAmount             float64    `json:"taxAmount"`
	TotalAmount           float64    `json:"totalAmount"`
	CreatedBy             int64      `json:"createdBy"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
	Items                 []Item     `json:"items,omitempty"`
}

// Item is a quotation line. DiscountPercent and TaxRate always hold
// concrete resolved values; the inherit-from-header distinction exists only
// in the request DTOs, never on a persisted record.
type Item struct {
	ID              int64   `json:"id"`
	QuotationID     int64   `json:"quotationId"`
	ProductID       int64   `json:"productId"`
	ProductCode     string  `json:"productCode"`
	ProductName     string  `json:"productName"`
	UOM             string  `json:"uom"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	TaxRate         float64 `json:"taxRate"`
	DiscountAmount  float64 `json:"discountAmount"`
	TaxAmount       float64 `json:"taxAmount"`
	LineTotal       float64 `json:"lineTotal"`
	LineOrder       int     `json:"lineOrder"`
}

// QuotationWithCustomer includes joined data for listings.
type QuotationWithCustomer struct {
	Quotation
	CustomerName string `json:"customerName"`
}
