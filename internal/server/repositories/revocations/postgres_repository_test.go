package revocations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAdd(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+token_revocations\b.*ON\s+CONFLICT\s*\(jti\)\s*DO\s+NOTHING`
	mock.ExpectExec(q).
		WithArgs("fp1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Add(context.Background(), "fp1", time.Now().Add(time.Hour), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdd_Conflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// A repeated logout hits the conflict clause: zero rows, no error.
	q := `(?s)^\s*INSERT\s+INTO\s+token_revocations\b.*ON\s+CONFLICT\s*\(jti\)\s*DO\s+NOTHING`
	mock.ExpectExec(q).
		WithArgs("fp1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Add(context.Background(), "fp1", time.Now().Add(time.Hour), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	tests := []struct {
		name string
		jti  string
		want bool
	}{
		{"present", "fp1", true},
		{"absent", "fp2", false},
	}

	q := `(?s)^\s*SELECT\s+EXISTS\s*\(.*token_revocations.*\)`
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectQuery(q).WithArgs(tt.jti).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.want))

			got, err := repo.Exists(context.Background(), tt.jti)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Exists(%q) = %v, want %v", tt.jti, got, tt.want)
			}
		})
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*DELETE\s+FROM\s+token_revocations\s+WHERE\s+expires_at\s*<\s*\$1`
	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 purged rows, got %d", n)
	}
}
