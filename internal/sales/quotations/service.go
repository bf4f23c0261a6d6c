package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vantage-erp/vantage-erp/internal/auth"
	"github.com/vantage-erp/vantage-erp/internal/platform/httpx"
	"github.com/vantage-erp/vantage-erp/internal/sales/pricing"
)

// totalsTolerance bounds the allowed drift between client-computed totals
// and the server calculation.
const totalsTolerance = 1e-6

// CustomerDirectory resolves customers referenced by quotations.
type CustomerDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ProductInfo is the catalog data snapshotted onto quotation lines.
type ProductInfo struct {
	ID   int64
	Code string
	Name string
	UOM  string
}

// ProductCatalog resolves products referenced by quotation lines.
type ProductCatalog interface {
	Lookup(ctx context.Context, id int64) (*ProductInfo, error)
}

// Notifier is told about lifecycle events worth broadcasting, such as a
// quotation going out to the customer. Implementations must not block.
type Notifier interface {
	QuotationSent(ctx context.Context, q *Quotation)
}

// Service implements quotation business rules: pricing, numbering, the
// status gate and lifecycle transitions.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	products  ProductCatalog
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// SetNotifier attaches an optional lifecycle notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// NewService wires a quotation Service.
func NewService(repo Repository, customers CustomerDirectory, products ProductCatalog, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		products:  products,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns a quotation decorated with the gate outcome for the caller.
func (s *Service) Get(ctx context.Context, id int64, roles auth.RoleSet) (*QuotationResponse, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	return s.respond(q, roles), nil
}

// List returns a page of quotations.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) (*ListQuotationsResponse, error) {
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
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	if rows == nil {
		rows = []QuotationWithCustomer{}
	}
	return &ListQuotationsResponse{
		Quotations: rows,
		Total:      total,
		Page:       req.Page,
		Size:       req.Size,
	}, nil
}

// Create numbers, prices and persists a new draft quotation.
func (s *Service) Create(ctx context.Context, req SaveQuotationRequest, userID int64, roles auth.RoleSet) (*QuotationResponse, error) {
	q, items, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	if q.Status == "" {
		q.Status = StatusDraft
	}
	if q.Status != StatusDraft && q.Status != StatusActive {
		return nil, fmt.Errorf("%w: new quotations must start as DRAFT or ACTIVE", httpx.ErrValidation)
	}
	q.CreatedBy = userID

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if q.QuotationNo == "" {
			no, err := tx.GenerateNumber(ctx, q.QuotationDate)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			q.QuotationNo = no
		}
		id, err := tx.Create(ctx, *q)
		if err != nil {
			return err
		}
		q.ID = id
		for i := range items {
			items[i].QuotationID = id
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			return nil, fmt.Errorf("%w: quotation number %s", httpx.ErrDuplicate, q.QuotationNo)
		}
		return nil, fmt.Errorf("create quotation: %w", err)
	}

	q.Items = items
	s.logger.Info("quotation created",
		slog.Int64("id", q.ID),
		slog.String("quotation_no", q.QuotationNo),
		slog.Int64("user_id", userID))
	return s.respond(q, roles), nil
}

// Update reprices and rewrites an existing quotation. The status gate
// applies: an ACTIVE quotation is only editable by a manager.
func (s *Service) Update(ctx context.Context, id int64, req SaveQuotationRequest, roles auth.RoleSet) (*QuotationResponse, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if !CanEdit(true, current.Status, roles) {
		return nil, fmt.Errorf("%w: quotation %s is active and locked", httpx.ErrForbidden, current.QuotationNo)
	}

	q, items, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	q.ID = current.ID
	q.QuotationNo = current.QuotationNo
	q.Status = current.Status
	q.CreatedBy = current.CreatedBy
	q.CreatedAt = current.CreatedAt

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.Update(ctx, *q); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, q.ID); err != nil {
			return err
		}
		for i := range items {
			items[i].QuotationID = q.ID
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("update quotation: %w", err)
	}

	q.Items = items
	s.logger.Info("quotation updated",
		slog.Int64("id", q.ID),
		slog.String("quotation_no", q.QuotationNo))
	return s.respond(q, roles), nil
}

// ChangeStatus moves a quotation along its lifecycle, rejecting any
// transition the state machine does not allow.
func (s *Service) ChangeStatus(ctx context.Context, id int64, to Status, roles auth.RoleSet) (*QuotationResponse, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, to)
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if !q.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: cannot change status from %s to %s", httpx.ErrConflict, q.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.logger.Info("quotation status changed",
		slog.Int64("id", id),
		slog.String("from", string(q.Status)),
		slog.String("to", string(to)))
	wasDraft := q.Status == StatusDraft
	q.Status = to
	if wasDraft && to == StatusActive && s.notifier != nil {
		s.notifier.QuotationSent(ctx, q)
	}
	return s.respond(q, roles), nil
}

// Send transitions a draft to ACTIVE.
func (s *Service) Send(ctx context.Context, id int64, roles auth.RoleSet) (*QuotationResponse, error) {
	return s.ChangeStatus(ctx, id, StatusActive, roles)
}

// Clone copies an ACTIVE quotation into a fresh draft with a new number.
// The original is left untouched.
func (s *Service) Clone(ctx context.Context, id int64, userID int64, roles auth.RoleSet) (*QuotationResponse, error) {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if !src.Status.CanClone() {
		return nil, fmt.Errorf("%w: only active quotations can be cloned", httpx.ErrConflict)
	}

	clone := *src
	clone.ID = 0
	clone.Status = StatusDraft
	clone.CreatedBy = userID
	clone.QuotationDate = s.now()
	clone.ValidUntil = nil

	items := make([]Item, len(src.Items))
	copy(items, src.Items)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		no, err := tx.GenerateNumber(ctx, clone.QuotationDate)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		clone.QuotationNo = no
		newID, err := tx.Create(ctx, clone)
		if err != nil {
			return err
		}
		clone.ID = newID
		for i := range items {
			items[i].ID = 0
			items[i].QuotationID = newID
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clone quotation: %w", err)
	}

	clone.Items = items
	s.logger.Info("quotation cloned",
		slog.Int64("source_id", id),
		slog.Int64("id", clone.ID),
		slog.String("quotation_no", clone.QuotationNo))
	return s.respond(&clone, roles), nil
}

// Delete removes a draft quotation. Non-drafts are part of the audit trail
// and can only be cancelled.
func (s *Service) Delete(ctx context.Context, id int64) error {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.ErrNotFound
		}
		return fmt.Errorf("get quotation: %w", err)
	}
	if q.Status != StatusDraft {
		return fmt.Errorf("%w: only draft quotations can be deleted", httpx.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	s.logger.Info("quotation deleted", slog.Int64("id", id), slog.String("quotation_no", q.QuotationNo))
	return nil
}

// ExpireOverdue marks ACTIVE quotations whose validity has lapsed as
// EXPIRED. Used by the scheduled expiry job.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireActiveBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire quotations: %w", err)
	}
	if n > 0 {
		s.logger.Info("quotations expired", slog.Int64("count", n))
	}
	return n, nil
}

// build validates a save request, resolves catalog snapshots and prices
// every line, returning the header and items ready for persistence.
func (s *Service) build(ctx context.Context, req SaveQuotationRequest) (*Quotation, []Item, error) {
	if req.QuotationDate.IsZero() {
		return nil, nil, fmt.Errorf("%w: quotationDate is required", httpx.ErrValidation)
	}
	headerDiscount := float64(req.HeaderDiscountPercent)
	headerTax := float64(req.TaxRate)

	ok, err := s.customers.Exists(ctx, req.CustomerID)
	if err != nil {
		return nil, nil, fmt.Errorf("check customer: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: customer %d not found", httpx.ErrValidation, req.CustomerID)
	}

	// Product lookups fan out; a quotation can carry dozens of lines.
	prods := make([]*ProductInfo, len(req.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i, ir := range req.Items {
		g.Go(func() error {
			prod, err := s.products.Lookup(gctx, ir.ProductID)
			if err != nil {
				return fmt.Errorf("lookup product: %w", err)
			}
			prods[i] = prod
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	lines := make([]pricing.Line, len(req.Items))
	items := make([]Item, len(req.Items))
	for i, ir := range req.Items {
		prod := prods[i]
		if prod == nil {
			return nil, nil, fmt.Errorf("%w: product %d not found on line %d", httpx.ErrValidation, ir.ProductID, i+1)
		}

		discount := ir.DiscountPercent.Resolve(headerDiscount)
		tax := ir.TaxRate.Resolve(headerTax)
		if discount < 0 || discount > 100 {
			return nil, nil, fmt.Errorf("%w: discount on line %d must be between 0 and 100", httpx.ErrValidation, i+1)
		}
		if tax < 0 {
			return nil, nil, fmt.Errorf("%w: tax rate on line %d must not be negative", httpx.ErrValidation, i+1)
		}

		lines[i] = pricing.Line{
			Quantity:  float64(ir.Quantity),
			UnitPrice: float64(ir.UnitPrice),
			Discount:  ir.DiscountPercent,
			Tax:       ir.TaxRate,
		}
		items[i] = Item{
			ProductID:   ir.ProductID,
			ProductCode: prod.Code,
			ProductName: prod.Name,
			UOM:         prod.UOM,
			Quantity:    float64(ir.Quantity),
			UnitPrice:   float64(ir.UnitPrice),
			LineOrder:   i + 1,
		}
	}

	totals := pricing.Calculate(lines, headerDiscount, headerTax)
	for i := range items {
		lt := totals.Lines[i]
		items[i].DiscountPercent = lt.DiscountPercent
		items[i].TaxRate = lt.TaxPercent
		items[i].DiscountAmount = lt.DiscountAmount
		items[i].TaxAmount = lt.TaxAmount
		items[i].LineTotal = lt.LineTotal
	}

	if err := checkClientTotals(req, totals); err != nil {
		return nil, nil, err
	}

	q := &Quotation{
		QuotationNo:           req.QuotationNo,
		CustomerID:            req.CustomerID,
		Status:                req.Status,
		QuotationDate:         req.QuotationDate.Time,
		PaymentTerms:          req.PaymentTerms,
		DeliveryTerms:         req.DeliveryTerms,
		Notes:                 req.Notes,
		HeaderDiscountPercent: headerDiscount,
		TaxRate:               headerTax,
		Subtotal:              totals.Subtotal,
		DiscountTotal:         totals.DiscountTotal,
		TaxAmount:             totals.TaxAmount,
		TotalAmount:           totals.TotalAmount,
	}
	if req.ValidUntil != nil && !req.ValidUntil.IsZero() {
		t := req.ValidUntil.Time
		q.ValidUntil = &t
	}
	return q, items, nil
}

// checkClientTotals compares the figures the front end computed against the
// server calculation. Disagreement beyond tolerance points to a stale or
// tampered client and rejects the save.
func checkClientTotals(req SaveQuotationRequest, totals pricing.Totals) error {
	check := func(name string, client *float64, server float64) error {
		if client == nil {
			return nil
		}
		if math.Abs(*client-server) > totalsTolerance {
			return fmt.Errorf("%w: %s mismatch, client sent %.6f but server computed %.6f",
				httpx.ErrValidation, name, *client, server)
		}
		return nil
	}
	if err := check("subtotal", req.Subtotal, totals.Subtotal); err != nil {
		return err
	}
	if err := check("taxAmount", req.TaxAmount, totals.TaxAmount); err != nil {
		return err
	}
	return check("totalAmount", req.TotalAmount, totals.TotalAmount)
}

func (s *Service) respond(q *Quotation, roles auth.RoleSet) *QuotationResponse {
	return &QuotationResponse{
		Quotation: *q,
		Editable:  CanEdit(true, q.Status, roles),
		Actions:   AvailableActions(true, q.Status),
	}
}
