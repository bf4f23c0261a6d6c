package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantage-erp/vantage-erp/internal/platform/httpx"
)

// ProductInfo is the catalog data snapshotted onto delivery lines.
type ProductInfo struct {
	ID   int64
	Code string
	Name string
	UOM  string
}

// ProductCatalog resolves products referenced by delivery lines.
type ProductCatalog interface {
	Lookup(ctx context.Context, id int64) (*ProductInfo, error)
}

// ItemRequest is an expected delivery line on the wire.
type ItemRequest struct {
	ProductID   int64   `json:"productId" validate:"required,gt=0"`
	ExpectedQty float64 `json:"expectedQty" validate:"gt=0"`
}

// SaveRequest is the POST/PUT body for a delivery.
type SaveRequest struct {
	SupplierName string        `json:"supplierName" validate:"required,max=200"`
	Reference    *string       `json:"reference,omitempty"`
	DeliveryDate string        `json:"deliveryDate" validate:"required"`
	Notes        *string       `json:"notes,omitempty"`
	Items        []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ReceiveRequest posts goods receipt quantities per line.
type ReceiveRequest struct {
	Quantities map[int64]float64 `json:"quantities" validate:"required"`
}

// ListResponse is the paginated list payload.
type ListResponse struct {
	Deliveries []Delivery `json:"deliveries"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
}

// Service implements inbound delivery business rules.
type Service struct {
	repo     Repository
	products ProductCatalog
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires an inbound delivery Service.
func NewService(repo Repository, products ProductCatalog, logger *slog.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger, now: time.Now}
}

// Get returns a delivery with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}

// List returns a page of deliveries.
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
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	if rows == nil {
		rows = []Delivery{}
	}
	return &ListResponse{Deliveries: rows, Total: total, Page: req.Page, Size: req.Size}, nil
}

// Create numbers and persists a new draft delivery.
func (s *Service) Create(ctx context.Context, req SaveRequest, userID int64) (*Delivery, error) {
	d, items, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	d.Status = StatusDraft
	d.CreatedBy = userID

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		no, err := tx.GenerateNumber(ctx, d.DeliveryDate)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		d.DeliveryNo = no
		id, err := tx.Create(ctx, *d)
		if err != nil {
			return err
		}
		d.ID = id
		for i := range items {
			items[i].DeliveryID = id
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create delivery: %w", err)
	}

	d.Items = items
	s.logger.Info("inbound delivery created",
		slog.Int64("id", d.ID),
		slog.String("delivery_no", d.DeliveryNo))
	return d, nil
}

// Update rewrites a draft delivery. Confirmed and received deliveries are
// immutable.
func (s *Service) Update(ctx context.Context, id int64, req SaveRequest) (*Delivery, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	if !current.Status.CanEdit() {
		return nil, fmt.Errorf("%w: delivery %s is %s and cannot be edited",
			httpx.ErrConflict, current.DeliveryNo, current.Status)
	}

	d, items, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	d.ID = current.ID
	d.DeliveryNo = current.DeliveryNo
	d.Status = current.Status
	d.CreatedBy = current.CreatedBy
	d.CreatedAt = current.CreatedAt

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.Update(ctx, *d); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, d.ID); err != nil {
			return err
		}
		for i := range items {
			items[i].DeliveryID = d.ID
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update delivery: %w", err)
	}

	d.Items = items
	return d, nil
}

// Confirm locks a draft delivery against the supplier's advice.
func (s *Service) Confirm(ctx context.Context, id int64) (*Delivery, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanConfirm() {
		return nil, fmt.Errorf("%w: delivery %s cannot be confirmed from %s",
			httpx.ErrConflict, d.DeliveryNo, d.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusConfirmed, nil); err != nil {
		return nil, fmt.Errorf("confirm delivery: %w", err)
	}
	d.Status = StatusConfirmed
	s.logger.Info("inbound delivery confirmed", slog.Int64("id", id), slog.String("delivery_no", d.DeliveryNo))
	return d, nil
}

// Receive posts goods receipt quantities and closes the delivery. Every
// line must be accounted for; a missing line defaults to zero received.
func (s *Service) Receive(ctx context.Context, id int64, req ReceiveRequest) (*Delivery, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanReceive() {
		return nil, fmt.Errorf("%w: delivery %s cannot be received from %s",
			httpx.ErrConflict, d.DeliveryNo, d.Status)
	}
	for itemID, qty := range req.Quantities {
		if qty < 0 {
			return nil, fmt.Errorf("%w: received quantity for line %d must not be negative",
				httpx.ErrValidation, itemID)
		}
	}

	receivedAt := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		for i := range d.Items {
			qty := req.Quantities[d.Items[i].ID]
			if err := tx.SetReceivedQty(ctx, d.Items[i].ID, qty); err != nil {
				return err
			}
			d.Items[i].ReceivedQty = qty
		}
		return tx.UpdateStatus(ctx, id, StatusReceived, &receivedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("receive delivery: %w", err)
	}

	d.Status = StatusReceived
	d.ReceivedAt = &receivedAt
	s.logger.Info("inbound delivery received", slog.Int64("id", id), slog.String("delivery_no", d.DeliveryNo))
	return d, nil
}

// Cancel voids a delivery before goods receipt.
func (s *Service) Cancel(ctx context.Context, id int64) (*Delivery, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanCancel() {
		return nil, fmt.Errorf("%w: delivery %s cannot be cancelled from %s",
			httpx.ErrConflict, d.DeliveryNo, d.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled, nil); err != nil {
		return nil, fmt.Errorf("cancel delivery: %w", err)
	}
	d.Status = StatusCancelled
	return d, nil
}

// Delete removes a draft delivery.
func (s *Service) Delete(ctx context.Context, id int64) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.Status != StatusDraft {
		return fmt.Errorf("%w: only draft deliveries can be deleted", httpx.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete delivery: %w", err)
	}
	return nil
}

func (s *Service) build(ctx context.Context, req SaveRequest) (*Delivery, []Item, error) {
	date, err := time.Parse("2006-01-02", req.DeliveryDate)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid deliveryDate %q", httpx.ErrValidation, req.DeliveryDate)
	}

	items := make([]Item, len(req.Items))
	for i, ir := range req.Items {
		prod, err := s.products.Lookup(ctx, ir.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup product: %w", err)
		}
		if prod == nil {
			return nil, nil, fmt.Errorf("%w: product %d not found on line %d", httpx.ErrValidation, ir.ProductID, i+1)
		}
		items[i] = Item{
			ProductID:   ir.ProductID,
			ProductCode: prod.Code,
			ProductName: prod.Name,
			UOM:         prod.UOM,
			ExpectedQty: ir.ExpectedQty,
			LineOrder:   i + 1,
		}
	}

	d := &Delivery{
		SupplierName: req.SupplierName,
		Reference:    req.Reference,
		DeliveryDate: date,
		Notes:        req.Notes,
	}
	return d, items, nil
}
