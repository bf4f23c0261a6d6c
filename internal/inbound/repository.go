package inbound

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

// ErrNotFound indicates the delivery does not exist.
var ErrNotFound = errors.New("delivery not found")

// ErrDuplicateNumber indicates a delivery number collision.
var ErrDuplicateNumber = errors.New("delivery number already exists")

// Repository provides persistence for inbound deliveries.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Delivery, error)
	List(ctx context.Context, req ListRequest) ([]Delivery, int, error)
	Create(ctx context.Context, d Delivery) (int64, error)
	Update(ctx context.Context, d Delivery) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, deliveryID int64) error
	SetReceivedQty(ctx context.Context, itemID int64, qty float64) error
	UpdateStatus(ctx context.Context, id int64, status Status, receivedAt *time.Time) error
	Delete(ctx context.Context, id int64) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

// ListRequest carries list filters.
type ListRequest struct {
	Keyword string
	Status  *Status
	Page    int
	Size    int
}

type repository struct {
	db interface {
		Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
		Query(context.Context, string, ...any) (pgx.Rows, error)
		QueryRow(context.Context, string, ...any) pgx.Row
	}
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const deliveryColumns = `
	id, delivery_no, supplier_name, reference, delivery_date, received_at,
	status, notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM inbound_deliveries WHERE id = $1`, deliveryColumns)
	var d Delivery
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.DeliveryNo, &d.SupplierName, &d.Reference, &d.DeliveryDate, &d.ReceivedAt,
		&d.Status, &d.Notes, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Items = items
	return &d, nil
}

func (r *repository) items(ctx context.Context, deliveryID int64) ([]Item, error) {
	const query = `
		SELECT id, delivery_id, product_id, product_code, product_name, uom,
		       expected_qty, received_qty, line_order
		FROM inbound_delivery_items
		WHERE delivery_id = $1
		ORDER BY line_order, id
	`
	rows, err := r.db.Query(ctx, query, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID, &it.DeliveryID, &it.ProductID, &it.ProductCode, &it.ProductName, &it.UOM,
			&it.ExpectedQty, &it.ReceivedQty, &it.LineOrder,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Delivery, int, error) {
	var conditions []string
	var args []any

	if keyword := strings.TrimSpace(req.Keyword); keyword != "" {
		args = append(args, "%"+keyword+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(delivery_no ILIKE $%d OR supplier_name ILIKE $%d)", n, n))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM inbound_deliveries %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
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
		SELECT %s FROM inbound_deliveries
		%s
		ORDER BY delivery_date DESC, id DESC
		LIMIT $%d OFFSET $%d`, deliveryColumns, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		err := rows.Scan(
			&d.ID, &d.DeliveryNo, &d.SupplierName, &d.Reference, &d.DeliveryDate, &d.ReceivedAt,
			&d.Status, &d.Notes, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, d Delivery) (int64, error) {
	const query = `
		INSERT INTO inbound_deliveries (
			delivery_no, supplier_name, reference, delivery_date, status, notes, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		d.DeliveryNo, d.SupplierName, d.Reference, d.DeliveryDate, d.Status, d.Notes, d.CreatedBy,
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

func (r *repository) Update(ctx context.Context, d Delivery) error {
	const query = `
		UPDATE inbound_deliveries SET
			supplier_name = $2, reference = $3, delivery_date = $4, notes = $5,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, d.ID, d.SupplierName, d.Reference, d.DeliveryDate, d.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	const query = `
		INSERT INTO inbound_delivery_items (
			delivery_id, product_id, product_code, product_name, uom,
			expected_qty, received_qty, line_order
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		item.DeliveryID, item.ProductID, item.ProductCode, item.ProductName, item.UOM,
		item.ExpectedQty, item.ReceivedQty, item.LineOrder,
	).Scan(&id)
	return id, err
}

func (r *repository) DeleteItems(ctx context.Context, deliveryID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM inbound_delivery_items WHERE delivery_id = $1`, deliveryID)
	return err
}

func (r *repository) SetReceivedQty(ctx context.Context, itemID int64, qty float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE inbound_delivery_items SET received_qty = $2 WHERE id = $1`, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, receivedAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inbound_deliveries
		SET status = $2, received_at = COALESCE($3, received_at), updated_at = NOW()
		WHERE id = $1
	`, id, status, receivedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := r.DeleteItems(ctx, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM inbound_deliveries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber allocates the next delivery number, IB-{YYMM}-{SEQ}.
func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "IB", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("IB-%s-%04d", date.Format("0601"), seq), nil
}
