package procurement

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
	requisitions map[int64]*Requisition
	nextID       int64
	seq          int64
}

func newMemRepo() *memRepo {
	return &memRepo{requisitions: make(map[int64]*Requisition)}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) Get(_ context.Context, id int64) (*Requisition, error) {
	pr, ok := m.requisitions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *pr
	cp.Items = append([]Item(nil), pr.Items...)
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, req ListRequest) ([]Requisition, int, error) {
	var out []Requisition
	for _, pr := range m.requisitions {
		if req.Status != nil && pr.Status != *req.Status {
			continue
		}
		if req.RequestedBy != nil && pr.RequestedBy != *req.RequestedBy {
			continue
		}
		out = append(out, *pr)
	}
	return out, len(out), nil
}

func (m *memRepo) Create(_ context.Context, pr Requisition) (int64, error) {
	m.nextID++
	pr.ID = m.nextID
	pr.CreatedAt = time.Now()
	pr.UpdatedAt = pr.CreatedAt
	m.requisitions[pr.ID] = &pr
	return pr.ID, nil
}

func (m *memRepo) Update(_ context.Context, pr Requisition) error {
	stored, ok := m.requisitions[pr.ID]
	if !ok {
		return ErrNotFound
	}
	items := stored.Items
	status := stored.Status
	*stored = pr
	stored.Items = items
	stored.Status = status
	return nil
}

func (m *memRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	pr, ok := m.requisitions[item.RequisitionID]
	if !ok {
		return 0, ErrNotFound
	}
	m.nextID++
	item.ID = m.nextID
	pr.Items = append(pr.Items, item)
	return item.ID, nil
}

func (m *memRepo) DeleteItems(_ context.Context, requisitionID int64) error {
	if pr, ok := m.requisitions[requisitionID]; ok {
		pr.Items = nil
	}
	return nil
}

func (m *memRepo) SetDecision(_ context.Context, id int64, status Status, decidedBy int64, decidedAt time.Time, note *string) error {
	pr, ok := m.requisitions[id]
	if !ok {
		return ErrNotFound
	}
	pr.Status = status
	pr.DecidedBy = &decidedBy
	pr.DecidedAt = &decidedAt
	pr.DecisionNote = note
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	pr, ok := m.requisitions[id]
	if !ok {
		return ErrNotFound
	}
	pr.Status = status
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.requisitions[id]; !ok {
		return ErrNotFound
	}
	delete(m.requisitions, id)
	return nil
}

func (m *memRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	m.seq++
	return fmt.Sprintf("PR-%s-%04d", date.Format("0601"), m.seq), nil
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
		10: {ID: 10, Code: "WID-10", Name: "Widget", UOM: "pcs", UnitPrice: 25},
	}
	svc := NewService(repo, catalog, logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC) }
	return svc
}

func saveRequest() SaveRequest {
	return SaveRequest{
		Department: "Operations",
		Items: []ItemRequest{
			{ProductID: 10, Quantity: 4},
		},
	}
}

func TestCreateRequisition(t *testing.T) {
	svc := newTestService(newMemRepo())

	pr, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)

	assert.Equal(t, "PR-2603-0001", pr.RequisitionNo)
	assert.Equal(t, StatusDraft, pr.Status)
	assert.Equal(t, int64(7), pr.RequestedBy)
	require.Len(t, pr.Items, 1)
	assert.Equal(t, 25.0, pr.Items[0].EstimatedPrice, "catalog price fills in when omitted")
	assert.InDelta(t, 100.0, pr.EstimatedCost, 1e-9)
}

func TestCreateRequisitionExplicitPrice(t *testing.T) {
	svc := newTestService(newMemRepo())
	req := saveRequest()
	price := 30.0
	req.Items[0].EstimatedPrice = &price

	pr, err := svc.Create(context.Background(), req, 7)
	require.NoError(t, err)
	assert.InDelta(t, 120.0, pr.EstimatedCost, 1e-9)
}

func TestSubmitAndDecide(t *testing.T) {
	svc := newTestService(newMemRepo())

	pr, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)

	// decisions only apply to submitted requisitions
	_, err = svc.Decide(context.Background(), pr.ID, DecisionRequest{Approve: true}, 9)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.Submit(context.Background(), pr.ID, 8)
	assert.ErrorIs(t, err, httpx.ErrForbidden, "only the requester may submit")

	submitted, err := svc.Submit(context.Background(), pr.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, submitted.Status)

	_, err = svc.Decide(context.Background(), pr.ID, DecisionRequest{Approve: true}, 7)
	assert.ErrorIs(t, err, httpx.ErrForbidden, "requesters cannot self-approve")

	note := "within budget"
	approved, err := svc.Decide(context.Background(), pr.ID, DecisionRequest{Approve: true, Note: &note}, 9)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.DecidedBy)
	assert.Equal(t, int64(9), *approved.DecidedBy)
	assert.Equal(t, "within budget", *approved.DecisionNote)

	closed, err := svc.Close(context.Background(), pr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
}

func TestRejectedReopensForEdit(t *testing.T) {
	svc := newTestService(newMemRepo())

	pr, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), pr.ID, 7)
	require.NoError(t, err)

	rejected, err := svc.Decide(context.Background(), pr.ID, DecisionRequest{Approve: false}, 9)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	req := saveRequest()
	req.Department = "Maintenance"
	updated, err := svc.Update(context.Background(), pr.ID, req, 7)
	require.NoError(t, err)
	assert.Equal(t, "Maintenance", updated.Department)

	resubmitted, err := svc.Submit(context.Background(), pr.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, resubmitted.Status)
}

func TestSubmittedIsLocked(t *testing.T) {
	svc := newTestService(newMemRepo())

	pr, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), pr.ID, 7)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), pr.ID, saveRequest(), 7)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	assert.ErrorIs(t, svc.Delete(context.Background(), pr.ID, 7), httpx.ErrConflict)
}

func TestDeleteDraft(t *testing.T) {
	svc := newTestService(newMemRepo())

	pr, err := svc.Create(context.Background(), saveRequest(), 7)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), pr.ID, 8), httpx.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), pr.ID, 7))
	_, err = svc.Get(context.Background(), pr.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
