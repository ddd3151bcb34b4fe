// Package pg implements the storage repositories on Postgres via the pgx
// stdlib driver.
package pg

import (
	"database/sql"

	"github.com/oneweb/helpdesk-chat/internal/storage"
)

// NewStores wires all repositories onto one shared connection pool.
func NewStores(db *sql.DB) *storage.Stores {
	return &storage.Stores{
		Customers: NewCustomerRepo(db),
		Users:     NewUserRepo(db),
		Dialogs:   NewDialogRepo(db),
		Messages:  NewMessageRepo(db),
	}
}
