// Package sessiontoken issues and verifies the HS256 session tokens handed out on join.
// A token carries the whole actor so requests need no participant lookup.
package sessiontoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pixeltrip/tripboard/internal/domain"
)

var ErrUnauthorized = errors.New("unauthorized")

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	Secret    []byte
	Issuer    string
	TTL       time.Duration
	ClockSkew time.Duration
}

type claims struct {
	TripGroup string `json:"tg"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	IsAdmin   bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	cfg   Config
	clock Clock
}

func New(cfg Config) (*Manager, error) {
	return NewWithOptions(cfg, nil)
}

func NewWithOptions(cfg Config, clock Clock) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("session token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session token ttl must be positive")
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Manager{cfg: cfg, clock: clock}, nil
}

// Issue signs a token for actor and returns it with its expiry.
func (m *Manager) Issue(actor domain.Actor) (string, time.Time, error) {
	if actor.ParticipantID == "" || actor.TripGroup == "" {
		return "", time.Time{}, fmt.Errorf("issue token: actor needs a participant id and trip group")
	}
	now := m.clock.Now()
	exp := now.Add(m.cfg.TTL)
	c := claims{
		TripGroup: string(actor.TripGroup),
		Name:      actor.Name,
		Avatar:    actor.Avatar,
		IsAdmin:   actor.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   string(actor.ParticipantID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp.UTC().Truncate(time.Second), nil
}

// Verify checks signature, issuer and expiry, and returns the actor the token was issued to.
// Every failure is reported as ErrUnauthorized.
func (m *Manager) Verify(ctx context.Context, token string) (domain.Actor, error) {
	_ = ctx

	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c,
		func(*jwt.Token) (any, error) { return m.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.cfg.ClockSkew),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return domain.Actor{}, ErrUnauthorized
	}
	if c.Subject == "" || c.TripGroup == "" {
		return domain.Actor{}, ErrUnauthorized
	}
	return domain.Actor{
		ParticipantID: domain.ParticipantID(c.Subject),
		TripGroup:     domain.TripGroupID(c.TripGroup),
		Name:          c.Name,
		Avatar:        c.Avatar,
		IsAdmin:       c.IsAdmin,
	}, nil
}
