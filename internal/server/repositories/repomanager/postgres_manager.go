// Package repomanager wires the PostgreSQL repositories together and owns
// database bootstrap: driver registration, connection retry, and goose
// migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/vposukhov/authvault/internal/dbx"
	"github.com/vposukhov/authvault/internal/server/migrations"
	"github.com/vposukhov/authvault/internal/server/repositories/loginattempts"
	"github.com/vposukhov/authvault/internal/server/repositories/refreshtokens"
	"github.com/vposukhov/authvault/internal/server/repositories/resettokens"
	"github.com/vposukhov/authvault/internal/server/repositories/revocations"
	"github.com/vposukhov/authvault/internal/server/repositories/users"
)

// PostgresRepositoryManager implements RepositoryManager for PostgreSQL.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a stateless repository factory.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Revocations(db dbx.DBTX) revocations.Repository {
	return revocations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) LoginAttempts(db dbx.DBTX) loginattempts.Repository {
	return loginattempts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ResetTokens(db dbx.DBTX) resettokens.Repository {
	return resettokens.NewPostgresRepository(db)
}

// RunMigrations applies the embedded goose migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenDB opens a pgx connection pool and waits for the database to accept
// connections, retrying the ping every 5 seconds up to 5 times. Databases
// started alongside the server (compose, CI) are often not ready on the
// first attempt.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewConstant(5*time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}
