package quotations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vantage-erp/vantage-erp/internal/sales/pricing"
)

// Amount is a decimal wire value that accepts both JSON numbers and numeric
// strings; form fields arrive as strings while the user is still typing.
// Empty input decodes to zero; unparsable input is an error, never a silent
// zero.
type Amount float64

// UnmarshalJSON implements permissive-but-checked numeric decoding.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*a = Amount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*a = Amount(v)
	return nil
}

// Date is a calendar date on the wire, formatted as 2006-01-02.
type Date struct {
	time.Time
}

// UnmarshalJSON parses a quoted 2006-01-02 date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = t
	return nil
}

// MarshalJSON emits the date as a quoted 2006-01-02 string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02"))
}

// ItemRequest is a quotation line on the wire. DiscountPercent and TaxRate
// may be omitted (or null / empty string) to inherit the header rates.
type ItemRequest struct {
	ProductID       int64        `json:"productId" validate:"required,gt=0"`
	ProductCode     string       `json:"productCode" validate:"max=50"`
	ProductName     string       `json:"productName" validate:"max=200"`
	UOM             string       `json:"uom" validate:"max=20"`
	Quantity        Amount       `json:"quantity" validate:"gte=0"`
	UnitPrice       Amount       `json:"unitPrice" validate:"gte=0"`
	DiscountPercent pricing.Rate `json:"discountPercent"`
	TaxRate         pricing.Rate `json:"taxRate"`
}

// SaveQuotationRequest is the POST/PUT body. Field names are the wire
// contract and must not change. Subtotal, TaxAmount and TotalAmount are the
// client-computed figures; when present they are cross-checked against the
// server calculation within a 1e-6 tolerance.
type SaveQuotationRequest struct {
	QuotationNo           string        `json:"quotationNo" validate:"max=50"`
	CustomerID            int64         `json:"customerId" validate:"required,gt=0"`
	Status                Status        `json:"status"`
	QuotationDate         Date          `json:"quotationDate"`
	ValidUntil            *Date         `json:"validUntil,omitempty"`
	PaymentTerms          *string       `json:"paymentTerms,omitempty"`
	DeliveryTerms         *string       `json:"deliveryTerms,omitempty"`
	Notes                 *string       `json:"notes,omitempty"`
	HeaderDiscountPercent Amount        `json:"headerDiscountPercent" validate:"gte=0,lte=100"`
	TaxRate               Amount        `json:"taxRate" validate:"gte=0"`
	Subtotal              *float64      `json:"subtotal,omitempty"`
	TaxAmount             *float64      `json:"taxAmount,omitempty"`
	TotalAmount           *float64      `json:"totalAmount,omitempty"`
	Items                 []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ListQuotationsRequest carries list filters.
type ListQuotationsRequest struct {
	Keyword string
	Status  *Status
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// QuotationResponse decorates a quotation with the status-gate outcome for
// the acting user.
type QuotationResponse struct {
	Quotation
	CustomerName string   `json:"customerName,omitempty"`
	Editable     bool     `json:"editable"`
	Actions      []string `json:"actions,omitempty"`
}

// ListQuotationsResponse is the paginated list payload.
type ListQuotationsResponse struct {
	Quotations []QuotationWithCustomer `json:"quotations"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	Size       int                     `json:"size"`
}
