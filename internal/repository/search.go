package repository

import (
	"context"
	"fmt"

	"refhub/finder/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const createSearchTable = `
CREATE TABLE IF NOT EXISTS search_results (
	query         TEXT        NOT NULL,
	page          INTEGER     NOT NULL,
	total_pages   INTEGER     NOT NULL,
	total_results INTEGER     NOT NULL,
	data          JSONB       NOT NULL,
	fetched_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (query, page)
)`

type SearchRepository interface {
	SaveSearch(ctx context.Context, page int, result *domain.SearchResult) error
}

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type searchRepository struct {
	db DB
}

func NewSearchRepository(db DB) SearchRepository {
	return &searchRepository{
		db: db,
	}
}

// Migrate creates the archive table when it does not exist yet.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, createSearchTable); err != nil {
		return fmt.Errorf("failed to create search_results table: %w", err)
	}
	return nil
}

// SaveSearch stores the latest snapshot of a search page, replacing any
// earlier snapshot for the same query and page.
func (r *searchRepository) SaveSearch(ctx context.Context, page int, result *domain.SearchResult) error {
	query := `
	INSERT INTO search_results (query, page, total_pages, total_results, data, fetched_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (query, page)
	DO UPDATE SET total_pages = $3, total_results = $4, data = $5, fetched_at = now()`
	_, err := r.db.Exec(ctx, query,
		domain.TitleKey(result.Query),
		page,
		result.Pagination.TotalPages,
		result.TotalResults,
		result,
	)
	if err != nil {
		return fmt.Errorf("failed to save search %q page %d: %w", result.Query, page, err)
	}

	return nil
}
