// Package repomanager vends repositories bound to a dbx.DBTX so services can
// run the same repository code inside or outside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/clients"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/otps"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/products"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/userlogs"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	UserLogs(db dbx.DBTX) userlogs.Repository
	OTPs(db dbx.DBTX) otps.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
	Clients(db dbx.DBTX) clients.Repository
	Products(db dbx.DBTX) products.Repository
}
