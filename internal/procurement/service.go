package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantage-erp/vantage-erp/internal/platform/httpx"
)

// ProductInfo is the catalog data snapshotted onto requisition lines.
type ProductInfo struct {
	ID        int64
	Code      string
	Name      string
	UOM       string
	UnitPrice float64
}

// ProductCatalog resolves products referenced by requisition lines.
type ProductCatalog interface {
	Lookup(ctx context.Context, id int64) (*ProductInfo, error)
}

// ItemRequest is a requisition line on the wire. EstimatedPrice defaults to
// the catalog price when omitted.
type ItemRequest struct {
	ProductID      int64    `json:"productId" validate:"required,gt=0"`
	Quantity       float64  `json:"quantity" validate:"gt=0"`
	EstimatedPrice *float64 `json:"estimatedPrice,omitempty" validate:"omitempty,gte=0"`
}

// SaveRequest is the POST/PUT body for a requisition.
type SaveRequest struct {
	Department    string        `json:"department" validate:"required,max=100"`
	NeededBy      *string       `json:"neededBy,omitempty"`
	Justification *string       `json:"justification,omitempty"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DecisionRequest carries an approval decision.
type DecisionRequest struct {
	Approve bool    `json:"approve"`
	Note    *string `json:"note,omitempty"`
}

// ListResponse is the paginated list payload.
type ListResponse struct {
	Requisitions []Requisition `json:"requisitions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	Size         int           `json:"size"`
}

// Service implements purchase requisition business rules.
type Service struct {
	repo     Repository
	products ProductCatalog
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a requisition Service.
func NewService(repo Repository, products ProductCatalog, logger *slog.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger, now: time.Now}
}

// Get returns a requisition with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Requisition, error) {
	pr, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("get requisition: %w", err)
	}
	return pr, nil
}

// List returns a page of requisitions.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, *req.Status)
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 100 {
		req.Size = 20
	}
	rows, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list requisitions: %w", err)
	}
	if rows == nil {
		rows = []Requisition{}
	}
	return &ListResponse{Requisitions: rows, Total: total, Page: req.Page, Size: req.Size}, nil
}

// Create numbers and persists a new draft requisition.
func (s *Service) Create(ctx context.Context, req SaveRequest, userID int64) (*Requisition, error) {
	pr, items, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	pr.Status = StatusDraft
	pr.RequestedBy = userID

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		no, err := tx.GenerateNumber(ctx, s.now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		pr.RequisitionNo = no
		id, err := tx.Create(ctx, *pr)
		if err != nil {
			return err
		}
		pr.ID = id
		for i := range items {
			items[i].RequisitionID = id
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create requisition: %w", err)
	}

	pr.Items = items
	s.logger.Info("requisition created",
		slog.Int64("id", pr.ID),
		slog.String("requisition_no", pr.RequisitionNo))
	return pr, nil
}

// Update rewrites a requisition while it is still editable. Only the
// requester may change it.
func (s *Service) Update(ctx context.Context, id int64, req SaveRequest, userID int64) (*Requisition, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanEdit() {
		return nil, fmt.Errorf("%w: requisition %s is %s and cannot be edited",
			httpx.ErrConflict, current.RequisitionNo, current.Status)
	}
	if current.RequestedBy != userID {
		return nil, fmt.Errorf("%w: only the requester may edit this requisition", httpx.ErrForbidden)
	}

	pr, items, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	pr.ID = current.ID
	pr.RequisitionNo = current.RequisitionNo
	pr.Status = current.Status
	pr.RequestedBy = current.RequestedBy
	pr.CreatedAt = current.CreatedAt

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.Update(ctx, *pr); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, pr.ID); err != nil {
			return err
		}
		for i := range items {
			items[i].RequisitionID = pr.ID
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update requisition: %w", err)
	}

	pr.Items = items
	return pr, nil
}

// Submit sends the requisition to approval.
func (s *Service) Submit(ctx context.Context, id int64, userID int64) (*Requisition, error) {
	pr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pr.Status.CanSubmit() {
		return nil, fmt.Errorf("%w: requisition %s cannot be submitted from %s",
			httpx.ErrConflict, pr.RequisitionNo, pr.Status)
	}
	if pr.RequestedBy != userID {
		return nil, fmt.Errorf("%w: only the requester may submit this requisition", httpx.ErrForbidden)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusSubmitted); err != nil {
		return nil, fmt.Errorf("submit requisition: %w", err)
	}
	pr.Status = StatusSubmitted
	s.logger.Info("requisition submitted", slog.Int64("id", id), slog.String("requisition_no", pr.RequisitionNo))
	return pr, nil
}

// Decide records an approval or rejection. Approvers cannot decide their
// own requests.
func (s *Service) Decide(ctx context.Context, id int64, req DecisionRequest, deciderID int64) (*Requisition, error) {
	pr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pr.Status.CanDecide() {
		return nil, fmt.Errorf("%w: requisition %s has no pending decision",
			httpx.ErrConflict, pr.RequisitionNo)
	}
	if pr.RequestedBy == deciderID {
		return nil, fmt.Errorf("%w: requesters cannot approve their own requisitions", httpx.ErrForbidden)
	}

	status := StatusRejected
	if req.Approve {
		status = StatusApproved
	}
	decidedAt := s.now()
	if err := s.repo.SetDecision(ctx, id, status, deciderID, decidedAt, req.Note); err != nil {
		return nil, fmt.Errorf("decide requisition: %w", err)
	}

	pr.Status = status
	pr.DecidedBy = &deciderID
	pr.DecidedAt = &decidedAt
	pr.DecisionNote = req.Note
	s.logger.Info("requisition decided",
		slog.Int64("id", id),
		slog.String("status", string(status)),
		slog.Int64("decided_by", deciderID))
	return pr, nil
}

// Close marks an approved requisition as fulfilled.
func (s *Service) Close(ctx context.Context, id int64) (*Requisition, error) {
	pr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pr.Status.CanClose() {
		return nil, fmt.Errorf("%w: requisition %s cannot be closed from %s",
			httpx.ErrConflict, pr.RequisitionNo, pr.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusClosed); err != nil {
		return nil, fmt.Errorf("close requisition: %w", err)
	}
	pr.Status = StatusClosed
	return pr, nil
}

// Delete removes a draft requisition.
func (s *Service) Delete(ctx context.Context, id int64, userID int64) error {
	pr, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if pr.Status != StatusDraft {
		return fmt.Errorf("%w: only draft requisitions can be deleted", httpx.ErrConflict)
	}
	if pr.RequestedBy != userID {
		return fmt.Errorf("%w: only the requester may delete this requisition", httpx.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete requisition: %w", err)
	}
	return nil
}

func (s *Service) build(ctx context.Context, req SaveRequest) (*Requisition, []Item, error) {
	var neededBy *time.Time
	if req.NeededBy != nil && *req.NeededBy != "" {
		t, err := time.Parse("2006-01-02", *req.NeededBy)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid neededBy %q", httpx.ErrValidation, *req.NeededBy)
		}
		neededBy = &t
	}

	var estimatedCost float64
	items := make([]Item, len(req.Items))
	for i, ir := range req.Items {
		prod, err := s.products.Lookup(ctx, ir.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup product: %w", err)
		}
		if prod == nil {
			return nil, nil, fmt.Errorf("%w: product %d not found on line %d", httpx.ErrValidation, ir.ProductID, i+1)
		}
		price := prod.UnitPrice
		if ir.EstimatedPrice != nil {
			price = *ir.EstimatedPrice
		}
		items[i] = Item{
			ProductID:      ir.ProductID,
			ProductCode:    prod.Code,
			ProductName:    prod.Name,
			UOM:            prod.UOM,
			Quantity:       ir.Quantity,
			EstimatedPrice: price,
			LineOrder:      i + 1,
		}
		estimatedCost += ir.Quantity * price
	}

	pr := &Requisition{
		Department:    req.Department,
		NeededBy:      neededBy,
		Justification: req.Justification,
		EstimatedCost: estimatedCost,
	}
	return pr, items, nil
}
