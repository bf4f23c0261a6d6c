package quotations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountUnmarshalJSON(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{name: "number", in: `12.5`, want: 12.5},
		{name: "numeric string", in: `"12.5"`, want: 12.5},
		{name: "zero", in: `0`, want: 0},
		{name: "empty string", in: `""`, want: 0},
		{name: "whitespace string", in: `"  "`, want: 0},
		{name: "null", in: `null`, want: 0},
		{name: "garbage string", in: `"abc"`, wantErr: true},
		{name: "boolean", in: `true`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tc.in), &a)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, float64(a))
		})
	}
}

func TestDateRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-03-10"`), &d))
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, 10, d.Day())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-10"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"10/03/2026"`), &d))

	var zero Date
	out, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestSaveQuotationRequestDecode(t *testing.T) {
	body := `{
		"quotationNo": "",
		"customerId": 1,
		"status": "DRAFT",
		"quotationDate": "2026-03-10",
		"validUntil": "2026-04-10",
		"headerDiscountPercent": "5",
		"taxRate": 10,
		"items": [
			{"productId": 10, "quantity": "2", "unitPrice": 100, "discountPercent": "", "taxRate": "7.5"}
		]
	}`
	var req SaveQuotationRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, int64(1), req.CustomerID)
	assert.Equal(t, 5.0, float64(req.HeaderDiscountPercent))
	require.Len(t, req.Items, 1)
	assert.False(t, req.Items[0].DiscountPercent.IsSet(), "empty string inherits the header rate")
	assert.True(t, req.Items[0].TaxRate.IsSet())
	assert.Equal(t, 7.5, req.Items[0].TaxRate.Resolve(0))
}
