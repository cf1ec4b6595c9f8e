// Package session persists the current participant identity on the client.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/kvstore"
)

// Key is the kvstore key holding the session.
const Key = "session"

// Session is the persisted identity of the local user.
type Session struct {
	Server    string       `json:"server"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Actor     domain.Actor `json:"actor"`
	SavedAt   time.Time    `json:"savedAt"`
}

func (s Session) valid() bool {
	return s.Token != "" && s.Actor.ParticipantID != "" && s.Actor.TripGroup != ""
}

// Manager loads and saves the session. Load has no side effects.
type Manager struct {
	kv  kvstore.Store
	log *zap.Logger
	now func() time.Time
}

func NewManager(kv kvstore.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{kv: kv, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Load returns the saved session. Missing, corrupt, incomplete or expired data is reported
// as no session; only storage failures are errors.
func (m *Manager) Load(ctx context.Context) (Session, bool, error) {
	raw, err := m.kv.Get(ctx, Key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		m.log.Warn("ignoring corrupt session", zap.Error(err))
		return Session{}, false, nil
	}
	if !s.valid() {
		m.log.Warn("ignoring incomplete session")
		return Session{}, false, nil
	}
	if !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt) {
		m.log.Info("session expired", zap.Time("expires_at", s.ExpiresAt))
		return Session{}, false, nil
	}
	return s, true, nil
}

func (m *Manager) Save(ctx context.Context, s Session) error {
	if !s.valid() {
		return errors.New("session requires a token, participant and trip group")
	}
	s.SavedAt = m.now()
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.kv.Put(ctx, Key, raw)
}

func (m *Manager) Clear(ctx context.Context) error {
	return m.kv.Delete(ctx, Key)
}
