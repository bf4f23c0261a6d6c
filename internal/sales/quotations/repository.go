package quotations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-erp/vantage-erp/internal/platform/db"
)

// ErrNotFound indicates the quotation does not exist.
var ErrNotFound = errors.New("quotation not found")

// ErrDuplicateNumber indicates a quotation number collision.
var ErrDuplicateNumber = errors.New("quotation number already exists")

// Repository provides persistence for quotations.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]QuotationWithCustomer, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	Update(ctx context.Context, q Quotation) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, quotationID int64) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
	ExpireActiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quotationColumns = `
	id, quotation_no, customer_id, status, quotation_date, valid_until,
	payment_terms, delivery_terms, notes, header_discount_percent, tax_rate,
	subtotal, discount_total, tax_amount, total_amount,
	created_by, created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.QuotationNo, &q.CustomerID, &q.Status, &q.QuotationDate, &q.ValidUntil,
		&q.PaymentTerms, &q.DeliveryTerms, &q.Notes, &q.HeaderDiscountPercent, &q.TaxRate,
		&q.Subtotal, &q.DiscountTotal, &q.TaxAmount, &q.TotalAmount,
		&q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// Get retrieves a quotation with its items.
func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	query := fmt.Sprintf(`SELECT %s FROM quotations WHERE id = $1`, quotationColumns)
	q, err := scanQuotation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return q, nil
}

func (r *repository) items(ctx context.Context, quotationID int64) ([]Item, error) {
	const query = `
		SELECT id, quotation_id, product_id, product_code, product_name, uom,
		       quantity, unit_price, discount_percent, tax_rate,
		       discount_amount, tax_amount, line_total, line_order
		FROM quotation_items
		WHERE quotation_id = $1
		ORDER BY line_order, id
	`
	rows, err := r.db.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID, &it.QuotationID, &it.ProductID, &it.ProductCode, &it.ProductName, &it.UOM,
			&it.Quantity, &it.UnitPrice, &it.DiscountPercent, &it.TaxRate,
			&it.DiscountAmount, &it.TaxAmount, &it.LineTotal, &it.LineOrder,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

var sortColumns = map[string]string{
	"quotationNo":   "q.quotation_no",
	"quotationDate": "q.quotation_date",
	"status":        "q.status",
	"totalAmount":   "q.total_amount",
	"customerName":  "c.name",
}

// List returns quotations matching the filters, newest first by default.
func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]QuotationWithCustomer, int, error) {
	var conditions []string
	var args []any

	if keyword := strings.TrimSpace(req.Keyword); keyword != "" {
		args = append(args, "%"+keyword+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(q.quotation_no ILIKE $%d OR c.name ILIKE $%d)", n, n))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM quotations q
		JOIN customers c ON q.customer_id = c.id
		%s`, whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "q.quotation_date DESC, q.id DESC"
	if col, ok := sortColumns[req.SortBy]; ok {
		dir := "ASC"
		if strings.EqualFold(req.SortDir, "desc") {
			dir = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s, q.id DESC", col, dir)
	}

	size := req.Size
	if size <= 0 {
		size = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, size, (page-1)*size)

	query := fmt.Sprintf(`
		SELECT q.id, q.quotation_no, q.customer_id, q.status, q.quotation_date, q.valid_until,
		       q.payment_terms, q.delivery_terms, q.notes, q.header_discount_percent, q.tax_rate,
		       q.subtotal, q.discount_total, q.tax_amount, q.total_amount,
		       q.created_by, q.created_at, q.updated_at,
		       c.name AS customer_name
		FROM quotations q
		JOIN customers c ON q.customer_id = c.id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		whereClause, orderBy, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotations []QuotationWithCustomer
	for rows.Next() {
		var q QuotationWithCustomer
		err := rows.Scan(
			&q.ID, &q.QuotationNo, &q.CustomerID, &q.Status, &q.QuotationDate, &q.ValidUntil,
			&q.PaymentTerms, &q.DeliveryTerms, &q.Notes, &q.HeaderDiscountPercent, &q.TaxRate,
			&q.Subtotal, &q.DiscountTotal, &q.TaxAmount, &q.TotalAmount,
			&q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
			&q.CustomerName,
		)
		if err != nil {
			return nil, 0, err
		}
		quotations = append(quotations, q)
	}
	return quotations, total, rows.Err()
}

// Create inserts a quotation header and returns its id.
func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	const query = `
		INSERT INTO quotations (
			quotation_no, customer_id, status, quotation_date, valid_until,
			payment_terms, delivery_terms, notes, header_discount_percent, tax_rate,
			subtotal, discount_total, tax_amount, total_amount, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		q.QuotationNo, q.CustomerID, q.Status, q.QuotationDate, q.ValidUntil,
		q.PaymentTerms, q.DeliveryTerms, q.Notes, q.HeaderDiscountPercent, q.TaxRate,
		q.Subtotal, q.DiscountTotal, q.TaxAmount, q.TotalAmount, q.CreatedBy,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateNumber
		}
		return 0, err
	}
	return id, nil
}

// Update rewrites all mutable header fields.
func (r *repository) Update(ctx context.Context, q Quotation) error {
	const query = `
		UPDATE quotations SET
			customer_id = $2, status = $3, quotation_date = $4, valid_until = $5,
			payment_terms = $6, delivery_terms = $7, notes = $8,
			header_discount_percent = $9, tax_rate = $10,
			subtotal = $11, discount_total = $12, tax_amount = $13, total_amount = $14,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		q.ID, q.CustomerID, q.Status, q.QuotationDate, q.ValidUntil,
		q.PaymentTerms, q.DeliveryTerms, q.Notes,
		q.HeaderDiscountPercent, q.TaxRate,
		q.Subtotal, q.DiscountTotal, q.TaxAmount, q.TotalAmount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertItem inserts a quotation line.
func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	const query = `
		INSERT INTO quotation_items (
			quotation_id, product_id, product_code, product_name, uom,
			quantity, unit_price, discount_percent, tax_rate,
			discount_amount, tax_amount, line_total, line_order
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		item.QuotationID, item.ProductID, item.ProductCode, item.ProductName, item.UOM,
		item.Quantity, item.UnitPrice, item.DiscountPercent, item.TaxRate,
		item.DiscountAmount, item.TaxAmount, item.LineTotal, item.LineOrder,
	).Scan(&id)
	return id, err
}

// DeleteItems removes all lines of a quotation.
func (r *repository) DeleteItems(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID)
	return err
}

// UpdateStatus transitions a quotation's status.
func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotations SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the quotation and its items.
func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := r.DeleteItems(ctx, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber allocates the next quotation number, QT-{YYMM}-{SEQ}.
func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "QT", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QT-%s-%04d", date.Format("0601"), seq), nil
}

// ExpireActiveBefore marks ACTIVE quotations whose validity lapsed before
// the cutoff as EXPIRED, returning the number of rows changed.
func (r *repository) ExpireActiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND valid_until IS NOT NULL AND valid_until < $3
	`, StatusExpired, StatusActive, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
