package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/game"
	"github.com/pixeltrip/tripboard/internal/app/lodging"
	"github.com/pixeltrip/tripboard/internal/app/participants"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/clock"
	"github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// TokenIssuer signs session tokens on join.
type TokenIssuer interface {
	Issue(actor domain.Actor) (string, time.Time, error)
}

// InviteLookup finds the plain invite code of a group for the QR endpoint.
type InviteLookup interface {
	InviteCodeFor(group domain.TripGroupID) (string, bool)
}

type Services struct {
	Participants *participants.Service
	Lodging      *lodging.Service
	Expenses     *expenses.Service
	Food         *food.Service
	Activities   *activities.Service
	Game         *game.Service
}

type ServerOptions struct {
	Tokens    TokenIssuer
	Invites   InviteLookup
	Idem      idempotency.Store
	Clock     clock.Clock
	PublicURL string
	Log       *zap.Logger

	// AllowedOrigins limits websocket upgrades by Origin header. Empty allows all.
	AllowedOrigins []string
}

// Server holds the HTTP handlers. Every /v1 handler except the join flow runs behind the
// auth middleware and reads the actor from request context.
type Server struct {
	Services

	tokens    TokenIssuer
	invites   InviteLookup
	idem      idempotency.Store
	clk       clock.Clock
	publicURL string
	log       *zap.Logger

	allowedOrigins []string
}

func NewServer(svcs Services, opts ServerOptions) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Services:  svcs,
		tokens:    opts.Tokens,
		invites:   opts.Invites,
		idem:      opts.Idem,
		clk:       opts.Clock,
		publicURL: opts.PublicURL,
		log:       log,

		allowedOrigins: opts.AllowedOrigins,
	}
}

func (s *Server) now() time.Time {
	if s.clk == nil {
		return time.Now().UTC()
	}
	return s.clk.Now().UTC()
}

// actor returns the authenticated actor, writing a 401 when it is missing.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
	}
	return a, ok
}

// readBody reads and decodes a JSON body, rejecting unknown fields. It returns the raw bytes
// for idempotency hashing.
func readBody(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "request body too large", nil)
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid JSON body", map[string]any{"reason": err.Error()})
		return nil, false
	}
	return raw, true
}

// pathParam binds a simple-style path parameter.
func pathParam[T any](w http.ResponseWriter, r *http.Request, name string) (T, bool) {
	var v T
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid path parameter", map[string]any{"param": name, "reason": err.Error()})
		return v, false
	}
	return v, true
}

func recordID(w http.ResponseWriter, r *http.Request) (domain.RecordID, bool) {
	id, ok := pathParam[string](w, r, "id")
	return domain.RecordID(id), ok
}

func questionKind(w http.ResponseWriter, r *http.Request) (domain.QuestionKind, bool) {
	kind, ok := pathParam[string](w, r, "kind")
	if !ok {
		return "", false
	}
	k := domain.QuestionKind(kind)
	if !k.Valid() {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "unknown question kind", map[string]any{"kind": kind})
		return "", false
	}
	return k, true
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
