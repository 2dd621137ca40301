package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"refhub/finder/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestSaveSearch(t *testing.T) {
	db := &fakeDB{}
	repo := NewSearchRepository(db)

	result := domain.NewSearchResult(" Deep  Learning ", "", []domain.Book{{Title: "a"}, {Title: "b"}}, domain.NewPagination(2, 5))

	if err := repo.SaveSearch(context.Background(), 2, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(db.calls) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(db.calls))
	}
	call := db.calls[0]
	if !strings.Contains(call.sql, "INSERT INTO search_results") {
		t.Errorf("unexpected sql %s", call.sql)
	}
	if call.args[0] != "deep learning" {
		t.Errorf("expected normalized query, got %v", call.args[0])
	}
	if call.args[1] != 2 || call.args[2] != 5 || call.args[3] != 2 {
		t.Errorf("unexpected args %v", call.args[:4])
	}
	if call.args[4] != result {
		t.Errorf("expected result to be passed as JSON payload")
	}
}

func TestSaveSearch_Error(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	repo := NewSearchRepository(db)

	err := repo.SaveSearch(context.Background(), 1, domain.NewSearchResult("go", "", nil, domain.NewPagination(1, 1)))
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := &fakeDB{}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].sql, "CREATE TABLE IF NOT EXISTS search_results") {
		t.Errorf("unexpected migration calls %+v", db.calls)
	}
}

func TestSearchRepository_Postgres(t *testing.T) {
	// Only run this test if REFHUB_TEST_PG_DSN is set
	dsn := os.Getenv("REFHUB_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres repository test: REFHUB_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	repo := NewSearchRepository(pool)
	result := domain.NewSearchResult("refhub-repo-test", "", []domain.Book{{Title: "x", Tags: []string{}}}, domain.NewPagination(1, 1))

	// Saving twice exercises the upsert path.
	for i := 0; i < 2; i++ {
		if err := repo.SaveSearch(ctx, 1, result); err != nil {
			t.Fatalf("SaveSearch #%d: %v", i+1, err)
		}
	}

	var total int
	err = pool.QueryRow(ctx, `SELECT total_results FROM search_results WHERE query = $1 AND page = 1`, "refhub-repo-test").Scan(&total)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 {
		t.Errorf("expected total_results 1, got %d", total)
	}

	_, _ = pool.Exec(ctx, `DELETE FROM search_results WHERE query = $1`, "refhub-repo-test")
}
