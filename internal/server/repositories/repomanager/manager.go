package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/ctxvault/internal/dbx"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/activity"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/jobs"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/screenshots"
	"github.com/dmitrijs2005/ctxvault/internal/server/repositories/tokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Jobs(db dbx.DBTX) jobs.Repository
	Activity(db dbx.DBTX) activity.Repository
	Screenshots(db dbx.DBTX) screenshots.Repository
}
