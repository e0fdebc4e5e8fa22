// Package auth owns the authenticated identities known to the client.
//
// A session is a validated credential plus the account identity it resolves
// to. The manager validates credentials against the remote, mirrors the
// credential encrypted into the secret store, and keeps session metadata in
// general persistence. At most one session is active at a time; the store
// may retain several historical ones.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waddleai/waddle-go/internal/api"
	"github.com/waddleai/waddle-go/internal/client"
	"github.com/waddleai/waddle-go/internal/log"
	"github.com/waddleai/waddle-go/internal/pubsub"
	"github.com/waddleai/waddle-go/internal/secret"
)

var ErrSessionNotFound = errors.New("session not found")

// Session pairs a validated credential with the account it resolves to.
// The credential is never written to general persistence; it lives only in
// the secret store.
type Session struct {
	ID           string `json:"id"`
	Credential   string `json:"-"`
	AccountID    int64  `json:"account_id"`
	AccountLabel string `json:"account_label"`
	CreatedAt    int64  `json:"created_at"`
}

// Validator resolves a credential to an account identity via the remote.
// *client.Client satisfies it.
type Validator interface {
	Account(ctx context.Context, credential string) (api.Account, error)
}

// Manager is the only owner of the session list. All mutations are
// serialized and persist before the change notification fires.
type Manager struct {
	*pubsub.Broker[Session]

	mu        sync.Mutex
	validator Validator
	secrets   secret.Store
	state     StateStore
	sessions  []Session // insertion order; the last one is active
}

// NewManager loads persisted sessions and reconciles them: identifiers whose
// secret is missing or whose record fails to parse are pruned silently.
func NewManager(validator Validator, secrets secret.Store, state StateStore) (*Manager, error) {
	m := &Manager{
		Broker:    pubsub.NewBroker[Session](),
		validator: validator,
		secrets:   secrets,
		state:     state,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	persisted, err := m.state.Load()
	if err != nil {
		return err
	}

	pruned := false
	for _, id := range persisted.IDs {
		record, ok := persisted.Records[id]
		if !ok {
			slog.Debug("pruning session without record", "id", id)
			pruned = true
			continue
		}
		var session Session
		if err := json.Unmarshal(record, &session); err != nil {
			slog.Debug("pruning unparseable session record", "id", id, "error", err)
			pruned = true
			continue
		}
		credential, err := m.secrets.Get(id)
		if err != nil {
			slog.Debug("pruning session without secret", "id", id, "error", err)
			pruned = true
			continue
		}
		session.ID = id
		session.Credential = credential
		m.sessions = append(m.sessions, session)
	}

	if pruned {
		return m.persist()
	}
	return nil
}

// persist writes the current session list. Caller holds the mutex.
func (m *Manager) persist() error {
	state := State{Records: make(map[string]json.RawMessage, len(m.sessions))}
	for _, s := range m.sessions {
		record, err := json.Marshal(s)
		if err != nil {
			return err
		}
		state.IDs = append(state.IDs, s.ID)
		state.Records[s.ID] = record
	}
	return m.state.Save(state)
}

// Create validates the credential against the remote's identity endpoint and,
// on success, constructs and persists a session. On any validation failure
// nothing is persisted and the classified error is returned for display.
func (m *Manager) Create(ctx context.Context, credential string) (Session, error) {
	account, err := m.validator.Account(ctx, credential)
	if err != nil {
		slog.Debug("credential validation failed",
			"credential", log.MaskAPIKey(credential), "error", err)
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session := Session{
		ID:           uuid.NewString(),
		Credential:   credential,
		AccountID:    account.UserID,
		AccountLabel: account.Username,
		CreatedAt:    time.Now().Unix(),
	}
	if err := m.secrets.Set(session.ID, credential); err != nil {
		return Session{}, err
	}
	m.sessions = append(m.sessions, session)
	if err := m.persist(); err != nil {
		// Roll back so a failed persist leaves no half-created session.
		m.sessions = m.sessions[:len(m.sessions)-1]
		m.secrets.Delete(session.ID)
		return Session{}, err
	}

	m.Publish(pubsub.CreatedEvent, session)
	return session, nil
}

// List returns the sessions in insertion order.
func (m *Manager) List() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions)
}

// Remove deletes the persisted record and the associated secret.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(id)
}

func (m *Manager) removeLocked(id string) error {
	i := slices.IndexFunc(m.sessions, func(s Session) bool { return s.ID == id })
	if i < 0 {
		return ErrSessionNotFound
	}
	removed := m.sessions[i]
	m.sessions = slices.Delete(m.sessions, i, i+1)
	if err := m.persist(); err != nil {
		return err
	}
	if err := m.secrets.Delete(id); err != nil {
		return err
	}
	m.Publish(pubsub.DeletedEvent, removed)
	return nil
}

// Refresh re-validates the stored credential. A credential the remote
// rejects removes the session as a side effect; transient failures (network,
// rate limit, unavailability) leave it in place.
func (m *Manager) Refresh(ctx context.Context, id string) (Session, error) {
	m.mu.Lock()
	i := slices.IndexFunc(m.sessions, func(s Session) bool { return s.ID == id })
	if i < 0 {
		m.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	session := m.sessions[i]
	m.mu.Unlock()

	account, err := m.validator.Account(ctx, session.Credential)
	if err != nil {
		var authErr *client.AuthError
		if errors.As(err, &authErr) {
			m.mu.Lock()
			if removeErr := m.removeLocked(id); removeErr != nil && !errors.Is(removeErr, ErrSessionNotFound) {
				slog.Debug("failed to remove invalid session", "id", id, "error", removeErr)
			}
			m.mu.Unlock()
		}
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i = slices.IndexFunc(m.sessions, func(s Session) bool { return s.ID == id })
	if i < 0 {
		return Session{}, ErrSessionNotFound
	}
	m.sessions[i].AccountID = account.UserID
	m.sessions[i].AccountLabel = account.Username
	if err := m.persist(); err != nil {
		return Session{}, err
	}
	refreshed := m.sessions[i]
	m.Publish(pubsub.UpdatedEvent, refreshed)
	return refreshed, nil
}

// Active returns the active session, if any.
func (m *Manager) Active() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) == 0 {
		return Session{}, false
	}
	return m.sessions[len(m.sessions)-1], true
}

// ActiveCredential is the convenience accessor wired into the HTTP client.
func (m *Manager) ActiveCredential() (string, bool) {
	session, ok := m.Active()
	if !ok {
		return "", false
	}
	return session.Credential, true
}
