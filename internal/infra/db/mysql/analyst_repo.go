package mysql

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

const analysisColumns = `id, filename, model, prompt_hash, result, error_kind, created_at`

// Save inserts an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO resume_analyses
  (` + analysisColumns + `)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  result=VALUES(result), error_kind=VALUES(error_kind);
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
	const q = `SELECT ` + analysisColumns + ` FROM resume_analyses WHERE id=?;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, page, pageSize int) (*domain.PaginatedResult, error) {
	page, pageSize = normalizePage(page, pageSize)
	offset := (page - 1) * pageSize

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resume_analyses;`).Scan(&total); err != nil {
		return nil, err
	}

	const q = `
SELECT ` + analysisColumns + `
FROM resume_analyses
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(out, page, pageSize, total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var id string
	if err := row.Scan(&id, &a.Filename, &a.Model, &a.PromptHash, &a.Result, &a.ErrorKind, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ID = domain.AnalysisID(id)
	return &a, nil
}

var _ domain.Repository = (*AnalystRepository)(nil)
