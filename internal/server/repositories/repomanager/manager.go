package repomanager

import (
	"context"
	"database/sql"

	"github.com/vposukhov/authvault/internal/dbx"
	"github.com/vposukhov/authvault/internal/server/repositories/loginattempts"
	"github.com/vposukhov/authvault/internal/server/repositories/refreshtokens"
	"github.com/vposukhov/authvault/internal/server/repositories/resettokens"
	"github.com/vposukhov/authvault/internal/server/repositories/revocations"
	"github.com/vposukhov/authvault/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to an arbitrary DBTX, so a
// service can use the same repository type inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Revocations(db dbx.DBTX) revocations.Repository
	LoginAttempts(db dbx.DBTX) loginattempts.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}
