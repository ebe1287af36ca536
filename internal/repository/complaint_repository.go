package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// ComplaintFilter narrows List results. Zero values mean no restriction.
type ComplaintFilter struct {
	Statuses   []domain.ComplaintStatus
	Severities []domain.Severity
	Ward       string
	Limit      int
	Offset     int
}

// ModifyFunc inspects the current record and returns the change to apply.
// Returning an error aborts the modification without writing.
type ModifyFunc func(current domain.Complaint) (domain.ComplaintChange, error)

// ComplaintRepository is the authoritative record store for complaints.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	Update(ctx context.Context, id string, change domain.ComplaintChange) (*domain.Complaint, error)
	Modify(ctx context.Context, id string, fn ModifyFunc) (*domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository returns a Postgres-backed implementation.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, seq, title, description, category_id, category, location, latitude, longitude,
               status, severity, is_anonymous, upvote_count, created_at, updated_at`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (id, title, description, category_id, category, location, latitude, longitude,
            status, severity, is_anonymous, upvote_count, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)
        RETURNING seq, updated_at`
	err := r.pool.QueryRow(ctx, query,
		complaint.ID,
		complaint.Title,
		complaint.Description,
		complaint.CategoryID,
		complaint.Category,
		complaint.Location,
		complaint.Latitude,
		complaint.Longitude,
		complaint.Status,
		complaint.Severity,
		complaint.IsAnonymous,
		complaint.UpvoteCount,
		complaint.CreatedAt,
	).Scan(&complaint.Seq, &complaint.UpdatedAt)
	return mapPgError(err)
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1`
	complaint, err := scanComplaint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return complaint, nil
}

func (r *complaintRepository) Update(ctx context.Context, id string, change domain.ComplaintChange) (*domain.Complaint, error) {
	return r.Modify(ctx, id, func(domain.Complaint) (domain.ComplaintChange, error) {
		return change, nil
	})
}

// Modify runs fn against the row locked with SELECT ... FOR UPDATE.
func (r *complaintRepository) Modify(ctx context.Context, id string, fn ModifyFunc) (*domain.Complaint, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1 FOR UPDATE`
	current, err := scanComplaint(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}

	change, err := fn(*current)
	if err != nil {
		return nil, err
	}
	if change.IsEmpty() {
		return current, tx.Commit(ctx)
	}

	next := change.Apply(*current)
	const update = `
        UPDATE complaints SET status=$1, severity=$2, latitude=$3, longitude=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		next.Status,
		next.Severity,
		next.Latitude,
		next.Longitude,
		id,
	).Scan(&next.UpdatedAt); err != nil {
		return nil, mapPgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Severities) > 0 {
		placeholders := make([]string, len(filter.Severities))
		for i, severity := range filter.Severities {
			args = append(args, severity)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("severity IN (%s)", strings.Join(placeholders, ",")))
	}
	if ward := strings.TrimSpace(filter.Ward); ward != "" {
		args = append(args, strings.ToLower(ward))
		clauses = append(clauses, fmt.Sprintf("strpos(LOWER(location), $%d) > 0", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY seq DESC`,
		complaintColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *complaint)
	}
	return result, rows.Err()
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := row.Scan(
		&complaint.ID,
		&complaint.Seq,
		&complaint.Title,
		&complaint.Description,
		&complaint.CategoryID,
		&complaint.Category,
		&complaint.Location,
		&complaint.Latitude,
		&complaint.Longitude,
		&complaint.Status,
		&complaint.Severity,
		&complaint.IsAnonymous,
		&complaint.UpvoteCount,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &complaint, nil
}
