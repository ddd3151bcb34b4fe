// Package memory implements the storage repositories in process memory.
// It backs standalone mode (no Postgres configured) and the test suite.
// One mutex guards all maps; the dataset is expected to stay small.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oneweb/helpdesk-chat/internal/domain"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

// Store is the shared state behind the per-entity repositories.
type Store struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*domain.Customer
	users     map[uuid.UUID]*domain.User
	dialogs   map[uuid.UUID]*domain.Dialog
	messages  map[uuid.UUID]*domain.Message
}

// NewStores returns the repository container backed by a fresh Store.
func NewStores() *storage.Stores {
	s := &Store{
		customers: make(map[uuid.UUID]*domain.Customer),
		users:     make(map[uuid.UUID]*domain.User),
		dialogs:   make(map[uuid.UUID]*domain.Dialog),
		messages:  make(map[uuid.UUID]*domain.Message),
	}
	return &storage.Stores{
		Customers: &CustomerRepo{s},
		Users:     &UserRepo{s},
		Dialogs:   &DialogRepo{s},
		Messages:  &MessageRepo{s},
	}
}

func stamp(id *uuid.UUID, at *time.Time) {
	if *id == uuid.Nil {
		*id = domain.NewID()
	}
	if at.IsZero() {
		*at = time.Now()
	}
}

// CustomerRepo implements storage.CustomerRepository.
type CustomerRepo struct{ s *Store }

func (r *CustomerRepo) Save(_ context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&c.ID, &c.CreatedAt)
	cp := *c
	r.s.customers[c.ID] = &cp
	return nil
}

func (r *CustomerRepo) GetByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c := r.s.customerByPhone(phone); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

// UserRepo implements storage.UserRepository.
type UserRepo struct{ s *Store }

func (r *UserRepo) Save(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&u.ID, &u.CreatedAt)
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// DialogRepo implements storage.DialogRepository.
type DialogRepo struct{ s *Store }

func (r *DialogRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Dialog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.dialogs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.s.dialogCopy(d), nil
}

func (r *DialogRepo) GetByPhone(_ context.Context, phone string) (*domain.Dialog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d := r.s.dialogByPhone(phone); d != nil {
		return r.s.dialogCopy(d), nil
	}
	return nil, storage.ErrNotFound
}

// ResolveByPhone performs the whole get-or-create under the store mutex, so
// concurrent first-contact webhooks cannot create duplicate dialogs.
func (r *DialogRepo) ResolveByPhone(_ context.Context, phone, name string, channel domain.Channel) (*domain.Dialog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if d := r.s.dialogByPhone(phone); d != nil {
		return r.s.dialogCopy(d), nil
	}

	now := time.Now()
	customer := r.s.customerByPhone(phone)
	if customer == nil {
		customer = &domain.Customer{
			ID:          domain.NewID(),
			Name:        name,
			PhoneNumber: phone,
			CreatedAt:   now,
		}
		r.s.customers[customer.ID] = customer
	}

	d := &domain.Dialog{
		ID:         domain.NewID(),
		CustomerID: customer.ID,
		Channel:    channel,
		CreatedAt:  now,
	}
	r.s.dialogs[d.ID] = d
	return r.s.dialogCopy(d), nil
}

func (r *DialogRepo) AssignUser(_ context.Context, dialogID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.dialogs[dialogID]
	if !ok {
		return storage.ErrNotFound
	}
	uid := userID
	d.AssignedUserID = &uid
	return nil
}

// MessageRepo implements storage.MessageRepository.
type MessageRepo struct{ s *Store }

func (r *MessageRepo) Save(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&m.ID, &m.CreatedAt)
	cp := *m
	cp.Dialog = nil
	r.s.messages[m.ID] = &cp
	return nil
}

func (r *MessageRepo) ListByDialog(_ context.Context, dialogID uuid.UUID) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Message
	for _, m := range r.s.messages {
		if m.DialogID == dialogID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- shared lookups (callers hold s.mu) ---

func (s *Store) customerByPhone(phone string) *domain.Customer {
	for _, c := range s.customers {
		if c.PhoneNumber == phone {
			return c
		}
	}
	return nil
}

func (s *Store) dialogByPhone(phone string) *domain.Dialog {
	for _, d := range s.dialogs {
		if c, ok := s.customers[d.CustomerID]; ok && c.PhoneNumber == phone {
			return d
		}
	}
	return nil
}

func (s *Store) dialogCopy(d *domain.Dialog) *domain.Dialog {
	cp := *d
	if c, ok := s.customers[d.CustomerID]; ok {
		cc := *c
		cp.Customer = &cc
	}
	return &cp
}
