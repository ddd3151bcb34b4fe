// Package storage defines the repository interfaces the chat core consumes.
// Implementations live in storage/pg (Postgres) and storage/memory
// (standalone mode and tests).
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oneweb/helpdesk-chat/internal/domain"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("storage: not found")

// CustomerRepository persists customers.
type CustomerRepository interface {
	Save(ctx context.Context, c *domain.Customer) error
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
}

// UserRepository persists support agent accounts.
type UserRepository interface {
	Save(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
}

// DialogRepository persists dialogs. ResolveByPhone is the inbound path's
// single entry point: it returns the dialog owning the given phone number,
// creating the customer and dialog atomically when neither exists yet.
// Two concurrent calls for a never-seen number must yield the same dialog.
type DialogRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dialog, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Dialog, error)
	ResolveByPhone(ctx context.Context, phone, name string, channel domain.Channel) (*domain.Dialog, error)
	AssignUser(ctx context.Context, dialogID, userID uuid.UUID) error
}

// MessageRepository persists messages. Each message is saved exactly once,
// by the gateway for customer messages or by the session handler for agent
// replies.
type MessageRepository interface {
	Save(ctx context.Context, m *domain.Message) error
	ListByDialog(ctx context.Context, dialogID uuid.UUID) ([]domain.Message, error)
}

// Stores is the container handed to the server at startup.
type Stores struct {
	Customers CustomerRepository
	Users     UserRepository
	Dialogs   DialogRepository
	Messages  MessageRepository
}
