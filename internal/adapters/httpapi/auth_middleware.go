package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/domain"
)

// TokenVerifier turns a session token into the actor it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Actor, error)
}

// ParticipantLookup finds the participant record a token was issued for.
type ParticipantLookup interface {
	Get(ctx context.Context, actor domain.Actor, id domain.ParticipantID) (domain.Participant, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <session token> and stores the actor in
// request context. Websocket upgrades may pass the token as ?token= instead, since browsers
// cannot set headers on them. When members is set, tokens of removed participants are
// rejected.
func NewAuthMiddleware(v TokenVerifier, members ParticipantLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, msg := bearerToken(r)
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", msg, nil)
				return
			}

			actor, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			if members != nil {
				if _, err := members.Get(r.Context(), actor, actor.ParticipantID); err != nil {
					var ae *apperr.Error
					switch {
					case apperr.HasCode(err, apperr.CodeNotFound):
						writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "participant is no longer part of this trip", nil)
					case errors.As(err, &ae):
						writeError(w, r, ae.Status, ae.Code, ae.Message, nil)
					default:
						writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
					}
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		if websocket.IsWebSocketUpgrade(r) {
			if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
				return t, ""
			}
		}
		return "", "missing Authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", "malformed Authorization header"
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	if raw == "" {
		return "", "missing bearer token"
	}
	return raw, ""
}
