// Package domain holds the entities shared by storage, gateways, and chat:
// customers, support users, dialogs, and messages. Storage backends persist
// these shapes directly; nothing here touches a database.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies the external messaging service a dialog lives on.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelViber    Channel = "viber"
)

// Customer is the person contacting support. The phone number is the
// natural key: it links messages arriving from different channels to the
// same customer.
type Customer struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is a support agent account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Dialog is one conversation thread: always owned by exactly one customer,
// optionally assigned to one support user. AssignedUserID may stay nil
// indefinitely; every inbound message in that state raises an event on the
// unassigned-dialog feed.
type Dialog struct {
	ID             uuid.UUID  `json:"id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	Customer       *Customer  `json:"customer,omitempty"`
	AssignedUserID *uuid.UUID `json:"assigned_user_id,omitempty"`
	Channel        Channel    `json:"channel"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Assigned reports whether a support user owns this dialog.
func (d *Dialog) Assigned() bool { return d.AssignedUserID != nil }

// Message is a single utterance in a dialog. UserID is nil for
// customer-authored messages and set for agent replies. A message is
// persisted exactly once, by whichever side created it.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	DialogID  uuid.UUID  `json:"dialog_id"`
	Dialog    *Dialog    `json:"-"`
	Channel   Channel    `json:"channel"`
	Text      string     `json:"text"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FromCustomer reports whether the message was authored by the customer.
func (m *Message) FromCustomer() bool { return m.UserID == nil }

// NewID returns a time-ordered UUID for a new entity.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
