package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO resume_analyses
  (id, filename, model, prompt_hash, result, error_kind, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  result=EXCLUDED.result,
  error_kind=EXCLUDED.error_kind;
`
	_, err := r.db.ExecContext(ctx, q,
		string(a.ID),
		stringOrDash(a.Filename),
		a.Model,
		a.PromptHash,
		a.Result,
		a.ErrorKind,
		nowIfZero(a.CreatedAt),
	)
	return err
}

// Get returns one analysis or domain.ErrNotFound
func (r *AnalystRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, filename, model, prompt_hash, result, error_kind, created_at
FROM resume_analyses
WHERE id=$1;`
	row := r.db.QueryRowContext(ctx, q, string(id))
	var a domain.Analysis
	var sid string
	if err := row.Scan(&sid, &a.Filename, &a.Model, &a.PromptHash, &a.Result, &a.ErrorKind, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		// malformed uuid input is a lookup miss, not a server error
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.ID = domain.AnalysisID(sid)
	return &a, nil
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, page, pageSize int) (*domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// window count keeps total and page in one round trip
	const q = `
SELECT id, filename, model, prompt_hash, result, error_kind, created_at, COUNT(*) OVER()
FROM resume_analyses
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	var total int64
	for rows.Next() {
		var a domain.Analysis
		var sid string
		if err := rows.Scan(&sid, &a.Filename, &a.Model, &a.PromptHash, &a.Result, &a.ErrorKind, &a.CreatedAt, &total); err != nil {
			return nil, err
		}
		a.ID = domain.AnalysisID(sid)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// past the last page there is no row to carry the count
	if len(out) == 0 && offset > 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resume_analyses;`).Scan(&total); err != nil {
			return nil, err
		}
	}
	return domain.NewPaginatedResult(out, page, pageSize, total), nil
}

var _ domain.Repository = (*AnalystRepository)(nil)
