package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oneweb/helpdesk-chat/internal/domain"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

// DialogRepo implements storage.DialogRepository on Postgres.
type DialogRepo struct {
	db *sql.DB
}

func NewDialogRepo(db *sql.DB) *DialogRepo {
	return &DialogRepo{db: db}
}

const dialogColumns = `d.id, d.customer_id, d.assigned_user_id, d.channel, d.created_at,
	c.id, c.name, c.phone_number, c.created_at`

func scanDialog(row *sql.Row) (*domain.Dialog, error) {
	var d domain.Dialog
	var c domain.Customer
	var assigned uuid.NullUUID
	err := row.Scan(&d.ID, &d.CustomerID, &assigned, &d.Channel, &d.CreatedAt,
		&c.ID, &c.Name, &c.PhoneNumber, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan dialog: %w", err)
	}
	if assigned.Valid {
		d.AssignedUserID = &assigned.UUID
	}
	d.Customer = &c
	return &d, nil
}

func (r *DialogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dialog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dialogColumns+`
		 FROM dialogs d JOIN customers c ON c.id = d.customer_id
		 WHERE d.id = $1`, id)
	return scanDialog(row)
}

func (r *DialogRepo) GetByPhone(ctx context.Context, phone string) (*domain.Dialog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dialogColumns+`
		 FROM dialogs d JOIN customers c ON c.id = d.customer_id
		 WHERE c.phone_number = $1
		 ORDER BY d.created_at DESC LIMIT 1`, phone)
	return scanDialog(row)
}

// ResolveByPhone returns the dialog for a phone number, creating customer
// and dialog in one transaction when the number has never been seen.
// Conflict-safe inserts (unique phone_number, unique dialogs.customer_id)
// make concurrent first-contact webhooks converge on a single dialog
// instead of racing a check-then-create.
func (r *DialogRepo) ResolveByPhone(ctx context.Context, phone, name string, channel domain.Channel) (*domain.Dialog, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve dialog: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	var customerID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`INSERT INTO customers (id, name, phone_number, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (phone_number) DO UPDATE SET phone_number = EXCLUDED.phone_number
		 RETURNING id`,
		domain.NewID(), name, phone, now,
	).Scan(&customerID)
	if err != nil {
		return nil, fmt.Errorf("resolve dialog: upsert customer: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dialogs (id, customer_id, channel, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (customer_id) DO NOTHING`,
		domain.NewID(), customerID, channel, now,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve dialog: insert dialog: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+dialogColumns+`
		 FROM dialogs d JOIN customers c ON c.id = d.customer_id
		 WHERE d.customer_id = $1`, customerID)
	dialog, err := scanDialog(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("resolve dialog: commit: %w", err)
	}
	return dialog, nil
}

func (r *DialogRepo) AssignUser(ctx context.Context, dialogID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dialogs SET assigned_user_id = $1 WHERE id = $2`,
		userID, dialogID,
	)
	if err != nil {
		return fmt.Errorf("assign user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
