package quotations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-erp/vantage-erp/internal/rbac"
	"github.com/vantage-erp/vantage-erp/internal/shared"
)

type allowAll struct{}

func (allowAll) EffectivePermissions(_ context.Context, _ int64) ([]string, error) {
	return shared.SalesScopes(), nil
}

func newTestServer(t *testing.T, svc *Service, roles []string) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "vantage_session", "test-secret", time.Hour, false)

	sessionMw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			require.NoError(t, err)
			sess.SetUser("7")
			sess.SetRoles(roles)
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}

	authz := rbac.Middleware{Service: allowAll{}}
	router := Routes(NewHandler(svc), authz)

	srv := httptest.NewServer(sessionMw(router))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandlerCreateAndGet(t *testing.T) {
	svc := newTestService(newMemRepo())
	srv := newTestServer(t, svc, []string{"SALES"})

	body := `{
		"customerId": 1,
		"quotationDate": "2026-03-10",
		"taxRate": 5,
		"items": [
			{"productId": 10, "quantity": 10, "unitPrice": 100, "discountPercent": "10"},
			{"productId": 11, "quantity": 2, "unitPrice": 50}
		]
	}`
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created QuotationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "QT-2603-0001", created.QuotationNo)
	assert.Equal(t, StatusDraft, created.Status)
	assert.InDelta(t, 1050.0, created.TotalAmount, 1e-9)
	assert.True(t, created.Editable)

	getResp, err := http.Get(srv.URL + "/1")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var got QuotationResponse
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Items, 2)

	first, second := got.Items[0], got.Items[1]
	assert.Equal(t, "WID-10", first.ProductCode)
	assert.InDelta(t, 10.0, first.Quantity, 1e-6)
	assert.InDelta(t, 100.0, first.UnitPrice, 1e-6)
	assert.InDelta(t, 10.0, first.DiscountPercent, 1e-6, "string override survives the round trip")
	assert.InDelta(t, 5.0, first.TaxRate, 1e-6, "tax rate inherited from the header")

	assert.Equal(t, "GAD-11", second.ProductCode)
	assert.InDelta(t, 2.0, second.Quantity, 1e-6)
	assert.InDelta(t, 50.0, second.UnitPrice, 1e-6)
	assert.InDelta(t, 0.0, second.DiscountPercent, 1e-6, "discount inherited from the header")
	assert.InDelta(t, 5.0, second.TaxRate, 1e-6)
}

func TestHandlerValidation(t *testing.T) {
	svc := newTestService(newMemRepo())
	srv := newTestServer(t, svc, []string{"SALES"})

	t.Run("missing items", func(t *testing.T) {
		body := `{"customerId": 1, "quotationDate": "2026-03-10", "items": []}`
		resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("garbage numeric string", func(t *testing.T) {
		body := `{"customerId": 1, "quotationDate": "2026-03-10",
			"items": [{"productId": 10, "quantity": "abc", "unitPrice": 1}]}`
		resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/999")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHandlerStatusFlow(t *testing.T) {
	svc := newTestService(newMemRepo())
	srv := newTestServer(t, svc, []string{"SALES"})

	body := `{"customerId": 1, "quotationDate": "2026-03-10",
		"items": [{"productId": 10, "quantity": 1, "unitPrice": 100}]}`
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	sendResp, err := http.Post(srv.URL+"/1/send", "application/json", nil)
	require.NoError(t, err)
	defer sendResp.Body.Close()
	require.Equal(t, http.StatusOK, sendResp.StatusCode)

	var sent QuotationResponse
	require.NoError(t, json.NewDecoder(sendResp.Body).Decode(&sent))
	assert.Equal(t, StatusActive, sent.Status)
	assert.False(t, sent.Editable, "non-manager cannot edit an active quotation")
	assert.Equal(t, []string{ActionClone}, sent.Actions)

	// a second send conflicts
	again, err := http.Post(srv.URL+"/1/send", "application/json", nil)
	require.NoError(t, err)
	again.Body.Close()
	assert.Equal(t, http.StatusConflict, again.StatusCode)

	cloneResp, err := http.Post(srv.URL+"/1/clone", "application/json", nil)
	require.NoError(t, err)
	defer cloneResp.Body.Close()
	require.Equal(t, http.StatusCreated, cloneResp.StatusCode)

	var clone QuotationResponse
	require.NoError(t, json.NewDecoder(cloneResp.Body).Decode(&clone))
	assert.Equal(t, StatusDraft, clone.Status)
	assert.NotEqual(t, sent.QuotationNo, clone.QuotationNo)
}

func TestHandlerManagerCanEditActive(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	srv := newTestServer(t, svc, []string{"MANAGER"})

	body := `{"customerId": 1, "quotationDate": "2026-03-10",
		"items": [{"productId": 10, "quantity": 1, "unitPrice": 100}]}`
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	sendResp, err := http.Post(srv.URL+"/1/send", "application/json", nil)
	require.NoError(t, err)
	defer sendResp.Body.Close()

	var sent QuotationResponse
	require.NoError(t, json.NewDecoder(sendResp.Body).Decode(&sent))
	assert.True(t, sent.Editable, "managers keep edit rights on active quotations")

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/1", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer putResp.Body.Close()
	assert.Equal(t, http.StatusOK, putResp.StatusCode)
}
