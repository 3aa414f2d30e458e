// Package memory is an in-memory implementation of the emergency store,
// the user registry view, and the outbox. It mirrors the conditional-write
// semantics of the Postgres layer and backs the test suites.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"emergency-service/internal/emergency"
	"emergency-service/internal/models"
)

type Store struct {
	mu          sync.Mutex
	emergencies map[string]models.Emergency
	users       map[string]models.Responder
	outbox      map[string]models.OutboxMessage
}

func New() *Store {
	return &Store{
		emergencies: make(map[string]models.Emergency),
		users:       make(map[string]models.Responder),
		outbox:      make(map[string]models.OutboxMessage),
	}
}

// AddUser seeds a registry entry.
func (s *Store) AddUser(id, email, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = models.Responder{ID: id, Email: email, Role: role}
}

func (s *Store) CreateEmergency(ctx context.Context, e models.Emergency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emergencies[e.ID]; ok {
		return fmt.Errorf("emergency %s already exists", e.ID)
	}
	s.emergencies[e.ID] = cloneEmergency(e)
	return nil
}

func (s *Store) GetEmergency(ctx context.Context, id string) (models.Emergency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emergencies[id]
	if !ok {
		return models.Emergency{}, fmt.Errorf("emergency %s: %w", id, emergency.ErrNotFound)
	}
	return cloneEmergency(e), nil
}

func (s *Store) UpdateEmergencyStatus(ctx context.Context, id, status, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emergencies[id]
	if !ok {
		return fmt.Errorf("emergency %s: %w", id, emergency.ErrNotFound)
	}
	if models.TerminalStatus(e.Status) {
		return fmt.Errorf("emergency %s is %s: %w", id, e.Status, emergency.ErrInvalidState)
	}
	e.Status = status
	e.UpdatedBy = actor
	e.UpdatedAt = time.Now().UTC()
	e.Version++
	s.emergencies[id] = e
	return nil
}

func (s *Store) ClearEmergency(ctx context.Context, id, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emergencies[id]
	if !ok {
		return fmt.Errorf("emergency %s: %w", id, emergency.ErrNotFound)
	}
	if models.TerminalStatus(e.Status) {
		return fmt.Errorf("emergency %s is %s: %w", id, e.Status, emergency.ErrInvalidState)
	}
	now := time.Now().UTC()
	e.Status = models.StatusCleared
	e.ClearedBy = actor
	e.ClearedAt = &now
	e.UpdatedBy = actor
	e.UpdatedAt = now
	e.Version++
	s.emergencies[id] = e
	return nil
}

func (s *Store) ListActiveEmergencies(ctx context.Context) ([]models.Emergency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Emergency
	for _, e := range s.emergencies {
		if e.Status == models.StatusActive {
			list = append(list, cloneEmergency(e))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Store) InsertConfirmation(ctx context.Context, emergencyID string, c models.Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emergencies[emergencyID]
	if !ok {
		return fmt.Errorf("emergency %s: %w", emergencyID, emergency.ErrNotFound)
	}
	if models.TerminalStatus(e.Status) {
		return fmt.Errorf("emergency %s is %s: %w", emergencyID, e.Status, emergency.ErrInvalidState)
	}
	if _, ok := e.Confirmations[c.ResponderID]; ok {
		return fmt.Errorf("responder %s on emergency %s: %w", c.ResponderID, emergencyID, emergency.ErrAlreadyConfirmed)
	}
	if e.Confirmations == nil {
		e.Confirmations = map[string]models.Confirmation{}
	}
	e.Confirmations[c.ResponderID] = c
	e.UpdatedAt = time.Now().UTC()
	e.Version++
	s.emergencies[emergencyID] = e
	return nil
}

func (s *Store) ResponderEmails(ctx context.Context, roles []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var emails []string
	for _, id := range ids {
		u := s.users[id]
		if roleSet[u.Role] && u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}

func (s *Store) UserRole(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return "", fmt.Errorf("user %s: %w", id, emergency.ErrNotFound)
	}
	return u.Role, nil
}

func (s *Store) EnqueueOutbox(ctx context.Context, m models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[m.ID] = m
	return nil
}

func (s *Store) DueOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var due []models.OutboxMessage
	for id, m := range s.outbox {
		if m.Status == models.OutboxPending && !m.NextAttemptAt.After(now) {
			m.Attempts++
			s.outbox[id] = m
			due = append(due, m)
			if len(due) == limit {
				break
			}
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	return due, nil
}

func (s *Store) MarkOutboxSent(ctx context.Context, id string) error {
	return s.setOutbox(id, func(m *models.OutboxMessage) {
		m.Status = models.OutboxSent
		m.LastError = ""
	})
}

func (s *Store) MarkOutboxRetry(ctx context.Context, id string, nextAttempt time.Time, lastErr string) error {
	return s.setOutbox(id, func(m *models.OutboxMessage) {
		m.NextAttemptAt = nextAttempt
		m.LastError = lastErr
	})
}

func (s *Store) MarkOutboxFailed(ctx context.Context, id, lastErr string) error {
	return s.setOutbox(id, func(m *models.OutboxMessage) {
		m.Status = models.OutboxFailed
		m.LastError = lastErr
	})
}

// Outbox returns a snapshot of the outbox, for assertions.
func (s *Store) Outbox() []models.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.OutboxMessage, 0, len(s.outbox))
	for _, m := range s.outbox {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) setOutbox(id string, mutate func(*models.OutboxMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.outbox[id]
	if !ok {
		return fmt.Errorf("outbox message %s not found", id)
	}
	mutate(&m)
	s.outbox[id] = m
	return nil
}

func cloneEmergency(e models.Emergency) models.Emergency {
	out := e
	out.Confirmations = make(map[string]models.Confirmation, len(e.Confirmations))
	for k, v := range e.Confirmations {
		out.Confirmations[k] = v
	}
	return out
}
