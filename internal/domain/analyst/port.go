package analyst

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("analysis not found")

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	// Paginate lists analyses newest first. page is 1-based.
	Paginate(ctx context.Context, page, pageSize int) (*PaginatedResult, error)
}

// Publisher port for analysis notifications
type Publisher interface {
	PublishAnalysis(ctx context.Context, a *Analysis) error
}
