package repomanager

import (
	"context"
	"database/sql"

	"github.com/danielmvs/fleetsync/internal/dbx"
	"github.com/danielmvs/fleetsync/internal/server/repositories/images"
	"github.com/danielmvs/fleetsync/internal/server/repositories/references"
	"github.com/danielmvs/fleetsync/internal/server/repositories/refreshtokens"
	"github.com/danielmvs/fleetsync/internal/server/repositories/registrations"
	"github.com/danielmvs/fleetsync/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	References(db dbx.DBTX) references.Repository
	Registrations(db dbx.DBTX) registrations.Repository
	Images(db dbx.DBTX) images.Repository
}
