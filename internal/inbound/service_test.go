package inbound

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-erp/vantage-erp/internal/platform/httpx"
)

type memRepo struct {
	deliveries map[int64]*Delivery
	nextID     int64
	seq        int64
}

func newMemRepo() *memRepo {
	return &memRepo{deliveries: make(map[int64]*Delivery)}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) Get(_ context.Context, id int64) (*Delivery, error) {
	d, ok := m.deliveries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	cp.Items = append([]Item(nil), d.Items...)
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, req ListRequest) ([]Delivery, int, error) {
	var out []Delivery
	for _, d := range m.deliveries {
		if req.Status != nil && d.Status != *req.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *memRepo) Create(_ context.Context, d Delivery) (int64, error) {
	m.nextID++
	d.ID = m.nextID
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.deliveries[d.ID] = &d
	return d.ID, nil
}

func (m *memRepo) Update(_ context.Context, d Delivery) error {
	stored, ok := m.deliveries[d.ID]
	if !ok {
		return ErrNotFound
	}
	items := stored.Items
	status := stored.Status
	*stored = d
	stored.Items = items
	stored.Status = status
	return nil
}

func (m *memRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	d, ok := m.deliveries[item.DeliveryID]
	if !ok {
		return 0, ErrNotFound
	}
	m.nextID++
	item.ID = m.nextID
	d.Items = append(d.Items, item)
	return item.ID, nil
}

func (m *memRepo) DeleteItems(_ context.Context, deliveryID int64) error {
	if d, ok := m.deliveries[deliveryID]; ok {
		d.Items = nil
	}
	return nil
}

func (m *memRepo) SetReceivedQty(_ context.Context, itemID int64, qty float64) error {
	for _, d := range m.deliveries {
		for i := range d.Items {
			if d.Items[i].ID == itemID {
				d.Items[i].ReceivedQty = qty
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, status Status, receivedAt *time.Time) error {
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	if receivedAt != nil {
		d.ReceivedAt = receivedAt
	}
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.deliveries[id]; !ok {
		return ErrNotFound
	}
	delete(m.deliveries, id)
	return nil
}

func (m *memRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	m.seq++
	return fmt.Sprintf("IB-%s-%04d", date.Format("0601"), m.seq), nil
}

type stubCatalog map[int64]ProductInfo

func (s stubCatalog) Lookup(_ context.Context, id int64) (*ProductInfo, error) {
	p, ok := s[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := stubCatalog{
		10: {ID: 10, Code: "WID-10", Name: "Widget", UOM: "pcs"},
	}
	svc := NewService(repo, catalog, logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC) }
	return svc
}

func saveRequest() SaveRequest {
	return SaveRequest{
		SupplierName: "Initech Supply",
		DeliveryDate: "2026-03-18",
		Items: []ItemRequest{
			{ProductID: 10, ExpectedQty: 12},
		},
	}
}

func TestCreateDelivery(t *testing.T) {
	svc := newTestService(newMemRepo())

	d, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)

	assert.Equal(t, "IB-2603-0001", d.DeliveryNo)
	assert.Equal(t, StatusDraft, d.Status)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "WID-10", d.Items[0].ProductCode)
	assert.Equal(t, 12.0, d.Items[0].ExpectedQty)
	assert.Zero(t, d.Items[0].ReceivedQty)
}

func TestCreateDeliveryUnknownProduct(t *testing.T) {
	svc := newTestService(newMemRepo())
	req := saveRequest()
	req.Items[0].ProductID = 404

	_, err := svc.Create(context.Background(), req, 7)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestConfirmAndReceive(t *testing.T) {
	svc := newTestService(newMemRepo())

	d, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)

	// receipt before confirmation is out of order
	_, err = svc.Receive(context.Background(), d.ID, ReceiveRequest{Quantities: map[int64]float64{}})
	assert.ErrorIs(t, err, httpx.ErrConflict)

	confirmed, err := svc.Confirm(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = svc.Confirm(context.Background(), d.ID)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	received, err := svc.Receive(context.Background(), d.ID, ReceiveRequest{
		Quantities: map[int64]float64{d.Items[0].ID: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	assert.Equal(t, 10.0, received.Items[0].ReceivedQty)
}

func TestReceiveRejectsNegativeQty(t *testing.T) {
	svc := newTestService(newMemRepo())

	d, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), d.ID)
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), d.ID, ReceiveRequest{
		Quantities: map[int64]float64{d.Items[0].ID: -1},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateLockedAfterConfirm(t *testing.T) {
	svc := newTestService(newMemRepo())

	d, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)

	req := saveRequest()
	req.SupplierName = "Globex Logistics"
	updated, err := svc.Update(context.Background(), d.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Globex Logistics", updated.SupplierName)
	assert.Equal(t, d.DeliveryNo, updated.DeliveryNo)

	_, err = svc.Confirm(context.Background(), d.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), d.ID, req)
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestCancelDelivery(t *testing.T) {
	svc := newTestService(newMemRepo())

	d, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), d.ID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), d.ID)
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestDeleteDraftOnly(t *testing.T) {
	svc := newTestService(newMemRepo())

	d, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), d.ID))

	d, err = svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), d.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(context.Background(), d.ID), httpx.ErrConflict)
}
