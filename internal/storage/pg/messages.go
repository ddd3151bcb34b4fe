package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oneweb/helpdesk-chat/internal/domain"
)

// MessageRepo implements storage.MessageRepository on Postgres.
type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Save(ctx context.Context, m *domain.Message) error {
	if m.ID == uuid.Nil {
		m.ID = domain.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, dialog_id, channel, text, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.DialogID, m.Channel, m.Text, m.UserID, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListByDialog(ctx context.Context, dialogID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, dialog_id, channel, text, user_id, created_at
		 FROM messages WHERE dialog_id = $1 ORDER BY created_at ASC`,
		dialogID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var userID uuid.NullUUID
		if err := rows.Scan(&m.ID, &m.DialogID, &m.Channel, &m.Text, &userID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if userID.Valid {
			m.UserID = &userID.UUID
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
