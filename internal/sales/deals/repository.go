package deals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autosettle/autosettle/internal/platform/db"
	"github.com/autosettle/autosettle/internal/shared"
)

// ErrNotFound is returned when a deal does not exist or belongs to another
// owner.
var ErrNotFound = shared.ErrNotFound

// Repository abstracts deal persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, ownerID int64, id string) (*Deal, error)
	List(ctx context.Context, req ListFilter) ([]Deal, int, error)
	ListAllByOwner(ctx context.Context, ownerID int64) ([]Deal, error)
	ListWithOwners(ctx context.Context) ([]DealWithOwner, error)
	Create(ctx context.Context, deal Deal) error
	Update(ctx context.Context, ownerID int64, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, ownerID int64, id string) error
	InsertServiceLine(ctx context.Context, line ServiceLine) (int64, error)
	DeleteServiceLines(ctx context.Context, dealID string) error
	InsertPaymentSchedule(ctx context.Context, schedule PaymentSchedule) (int64, error)
	DeletePaymentSchedules(ctx context.Context, dealID string) error
}

// ListFilter scopes the deal listing.
type ListFilter struct {
	OwnerID int64
	Status  *DealStatus
	Limit   int
	Offset  int
}

// DealWithOwner joins the owner's email for reminder delivery.
type DealWithOwner struct {
	Deal
	OwnerEmail string
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const dealColumns = `id, owner_id, company_name, manager_name, contact_info, status, memo, checklists, created_at, updated_at`

func (r *repository) Get(ctx context.Context, ownerID int64, id string) (*Deal, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM deals WHERE id = $1 AND owner_id = $2`, dealColumns), id, ownerID)

	deal, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.loadRelations(ctx, []*Deal{deal}); err != nil {
		return nil, err
	}
	return deal, nil
}

func (r *repository) List(ctx context.Context, req ListFilter) ([]Deal, int, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{req.OwnerID}
	argPos := 2

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM deals %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM deals %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		dealColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *deal)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Pointers are taken only after the slice stops growing; appending
	// above would invalidate them on reallocation.
	refs := make([]*Deal, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := r.loadRelations(ctx, refs); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) ListAllByOwner(ctx context.Context, ownerID int64) ([]Deal, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM deals WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, dealColumns), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *deal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*Deal, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := r.loadRelations(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListWithOwners(ctx context.Context) ([]DealWithOwner, error) {
	rows, err := r.db.Query(ctx,
		`SELECT d.id, d.owner_id, d.company_name, d.manager_name, d.contact_info,
		        d.status, d.memo, d.checklists, d.created_at, d.updated_at, u.email
		 FROM deals d
		 JOIN users u ON d.owner_id = u.id
		 ORDER BY d.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DealWithOwner
	for rows.Next() {
		var d DealWithOwner
		var contactInfo, checklists []byte
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.CompanyName, &d.ManagerName, &contactInfo,
			&d.Status, &d.Memo, &checklists, &d.CreatedAt, &d.UpdatedAt,
			&d.OwnerEmail,
		); err != nil {
			return nil, err
		}
		decodeJSONColumn(contactInfo, &d.ContactInfo)
		decodeJSONColumn(checklists, &d.Checklist)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*Deal, len(out))
	for i := range out {
		refs[i] = &out[i].Deal
	}
	if err := r.loadRelations(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, deal Deal) error {
	contactInfo, err := json.Marshal(deal.ContactInfo)
	if err != nil {
		return fmt.Errorf("marshal contact info: %w", err)
	}
	checklists, err := json.Marshal(deal.Checklist)
	if err != nil {
		return fmt.Errorf("marshal checklists: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO deals (id, owner_id, company_name, manager_name, contact_info, status, memo, checklists, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		deal.ID, deal.OwnerID, deal.CompanyName, deal.ManagerName, contactInfo, deal.Status, deal.Memo, checklists)
	return err
}

func (r *repository) Update(ctx context.Context, ownerID int64, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause := ""
	args := []interface{}{}
	argPos := 1
	for _, col := range []string{"company_name", "manager_name", "contact_info", "status", "memo", "checklists"} {
		value, ok := updates[col]
		if !ok {
			continue
		}
		if setClause != "" {
			setClause += ", "
		}
		setClause += fmt.Sprintf("%s = $%d", col, argPos)
		args = append(args, value)
		argPos++
	}
	if setClause == "" {
		return nil
	}
	setClause += ", updated_at = now()"

	args = append(args, id, ownerID)
	tag, err := r.db.Exec(ctx, fmt.Sprintf(
		`UPDATE deals SET %s WHERE id = $%d AND owner_id = $%d`, setClause, argPos, argPos+1), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, ownerID int64, id string) error {
	// Service lines and payment schedules cascade at the schema level.
	tag, err := r.db.Exec(ctx, `DELETE FROM deals WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertServiceLine(ctx context.Context, line ServiceLine) (int64, error) {
	details, err := json.Marshal(line.Details)
	if err != nil {
		return 0, fmt.Errorf("marshal details: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx,
		`INSERT INTO service_lines (deal_id, type, details, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now()) RETURNING id`,
		line.DealID, line.Type, details).Scan(&id)
	return id, err
}

func (r *repository) DeleteServiceLines(ctx context.Context, dealID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM service_lines WHERE deal_id = $1`, dealID)
	return err
}

func (r *repository) InsertPaymentSchedule(ctx context.Context, schedule PaymentSchedule) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO payment_schedules (deal_id, due_date, amount, description, is_paid, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now()) RETURNING id`,
		schedule.DealID, schedule.DueDate, schedule.Amount, schedule.Description, schedule.IsPaid).Scan(&id)
	return id, err
}

func (r *repository) DeletePaymentSchedules(ctx context.Context, dealID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM payment_schedules WHERE deal_id = $1`, dealID)
	return err
}

func (r *repository) loadRelations(ctx context.Context, refs []*Deal) error {
	if len(refs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(refs))
	byID := make(map[string]*Deal, len(refs))
	for _, d := range refs {
		ids = append(ids, d.ID)
		byID[d.ID] = d
		d.Services = []ServiceLine{}
		d.PaymentSchedules = []PaymentSchedule{}
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, deal_id, type, details, created_at, updated_at
		 FROM service_lines WHERE deal_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var line ServiceLine
		var details []byte
		if err := rows.Scan(&line.ID, &line.DealID, &line.Type, &details, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return err
		}
		decodeJSONColumn(details, &line.Details)
		if d, ok := byID[line.DealID]; ok {
			d.Services = append(d.Services, line)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	scheduleRows, err := r.db.Query(ctx,
		`SELECT id, deal_id, due_date, amount, description, is_paid, created_at, updated_at
		 FROM payment_schedules WHERE deal_id = ANY($1) ORDER BY due_date, id`, ids)
	if err != nil {
		return err
	}
	defer scheduleRows.Close()
	for scheduleRows.Next() {
		var p PaymentSchedule
		if err := scheduleRows.Scan(&p.ID, &p.DealID, &p.DueDate, &p.Amount, &p.Description, &p.IsPaid, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		if d, ok := byID[p.DealID]; ok {
			d.PaymentSchedules = append(d.PaymentSchedules, p)
		}
	}
	return scheduleRows.Err()
}

func scanDeal(row pgx.Row) (*Deal, error) {
	var d Deal
	var contactInfo, checklists []byte
	if err := row.Scan(
		&d.ID, &d.OwnerID, &d.CompanyName, &d.ManagerName, &contactInfo,
		&d.Status, &d.Memo, &checklists, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	decodeJSONColumn(contactInfo, &d.ContactInfo)
	decodeJSONColumn(checklists, &d.Checklist)
	return &d, nil
}

// decodeJSONColumn tolerates NULL and malformed stored payloads: the target
// keeps its zero value, which biases the resolver toward surfacing an
// action rather than failing the read.
func decodeJSONColumn(raw []byte, target any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, target)
}
