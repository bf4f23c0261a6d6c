package procurement

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

// ErrNotFound indicates the requisition does not exist.
var ErrNotFound = errors.New("requisition not found")

// Repository provides persistence for purchase requisitions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Requisition, error)
	List(ctx context.Context, req ListRequest) ([]Requisition, int, error)
	Create(ctx context.Context, pr Requisition) (int64, error)
	Update(ctx context.Context, pr Requisition) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, requisitionID int64) error
	SetDecision(ctx context.Context, id int64, status Status, decidedBy int64, decidedAt time.Time, note *string) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

// ListRequest carries list filters.
type ListRequest struct {
	Keyword     string
	Status      *Status
	RequestedBy *int64
	Page        int
	Size        int
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

const requisitionColumns = `
	id, requisition_no, department, needed_by, justification, status,
	requested_by, decided_by, decided_at, decision_note, estimated_cost,
	created_at, updated_at`

func scanRequisition(row pgx.Row) (*Requisition, error) {
	var pr Requisition
	err := row.Scan(
		&pr.ID, &pr.RequisitionNo, &pr.Department, &pr.NeededBy, &pr.Justification, &pr.Status,
		&pr.RequestedBy, &pr.DecidedBy, &pr.DecidedAt, &pr.DecisionNote, &pr.EstimatedCost,
		&pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pr, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Requisition, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchase_requisitions WHERE id = $1`, requisitionColumns)
	pr, err := scanRequisition(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	const itemsQuery = `
		SELECT id, requisition_id, product_id, product_code, product_name, uom,
		       quantity, estimated_price, line_order
		FROM purchase_requisition_items
		WHERE requisition_id = $1
		ORDER BY line_order, id
	`
	rows, err := r.db.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID, &it.RequisitionID, &it.ProductID, &it.ProductCode, &it.ProductName, &it.UOM,
			&it.Quantity, &it.EstimatedPrice, &it.LineOrder,
		)
		if err != nil {
			return nil, err
		}
		pr.Items = append(pr.Items, it)
	}
	return pr, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Requisition, int, error) {
	var conditions []string
	var args []any

	if keyword := strings.TrimSpace(req.Keyword); keyword != "" {
		args = append(args, "%"+keyword+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(requisition_no ILIKE $%d OR department ILIKE $%d)", n, n))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if req.RequestedBy != nil {
		args = append(args, *req.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM purchase_requisitions %s`, whereClause)
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
		SELECT %s FROM purchase_requisitions
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, requisitionColumns, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Requisition
	for rows.Next() {
		var pr Requisition
		err := rows.Scan(
			&pr.ID, &pr.RequisitionNo, &pr.Department, &pr.NeededBy, &pr.Justification, &pr.Status,
			&pr.RequestedBy, &pr.DecidedBy, &pr.DecidedAt, &pr.DecisionNote, &pr.EstimatedCost,
			&pr.CreatedAt, &pr.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, pr)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, pr Requisition) (int64, error) {
	const query = `
		INSERT INTO purchase_requisitions (
			requisition_no, department, needed_by, justification, status,
			requested_by, estimated_cost
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		pr.RequisitionNo, pr.Department, pr.NeededBy, pr.Justification, pr.Status,
		pr.RequestedBy, pr.EstimatedCost,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, pr Requisition) error {
	const query = `
		UPDATE purchase_requisitions SET
			department = $2, needed_by = $3, justification = $4,
			estimated_cost = $5, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		pr.ID, pr.Department, pr.NeededBy, pr.Justification, pr.EstimatedCost)
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
		INSERT INTO purchase_requisition_items (
			requisition_id, product_id, product_code, product_name, uom,
			quantity, estimated_price, line_order
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		item.RequisitionID, item.ProductID, item.ProductCode, item.ProductName, item.UOM,
		item.Quantity, item.EstimatedPrice, item.LineOrder,
	).Scan(&id)
	return id, err
}

func (r *repository) DeleteItems(ctx context.Context, requisitionID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM purchase_requisition_items WHERE requisition_id = $1`, requisitionID)
	return err
}

func (r *repository) SetDecision(ctx context.Context, id int64, status Status, decidedBy int64, decidedAt time.Time, note *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchase_requisitions
		SET status = $2, decided_by = $3, decided_at = $4, decision_note = $5, updated_at = NOW()
		WHERE id = $1
	`, id, status, decidedBy, decidedAt, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE purchase_requisitions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
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
	tag, err := r.db.Exec(ctx, `DELETE FROM purchase_requisitions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber allocates the next requisition number, PR-{YYMM}-{SEQ}.
func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "PR", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PR-%s-%04d", date.Format("0601"), seq), nil
}
