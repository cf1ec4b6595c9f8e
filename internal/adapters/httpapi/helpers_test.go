package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	memclock "github.com/pixeltrip/tripboard/internal/adapters/memory/clock"
	memdocstore "github.com/pixeltrip/tripboard/internal/adapters/memory/docstore"
	memidempotency "github.com/pixeltrip/tripboard/internal/adapters/memory/idempotency"
	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/game"
	"github.com/pixeltrip/tripboard/internal/app/identity"
	"github.com/pixeltrip/tripboard/internal/app/lodging"
	"github.com/pixeltrip/tripboard/internal/app/participants"
	"github.com/pixeltrip/tripboard/internal/platform/auth/sessiontoken"
)

const (
	testInvite = "SUMMER2025"
	testAdmin  = "MIKE-ADMIN"
)

type testEnv struct {
	h      http.Handler
	store  *memdocstore.Store
	tokens *sessiontoken.Manager
	clk    *memclock.ManualClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	resolver, err := identity.NewResolver(
		[]identity.InviteCode{{Code: testInvite, TripGroup: "SUMMER_HOUSE", Description: "Summer house"}},
		[]identity.AdminCode{{Code: testAdmin, TripGroup: "SUMMER_HOUSE", ParticipantID: "admin-mike", Name: "Mike", Avatar: "🦊"}},
	)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	tokens, err := sessiontoken.NewWithOptions(sessiontoken.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "tripboard-test",
		TTL:    time.Hour,
	}, clk)
	if err != nil {
		t.Fatalf("sessiontoken: %v", err)
	}

	store := memdocstore.NewStore(clk)
	people := participants.NewService(store, resolver, clk)
	gameSvc := game.NewService(store)
	gameSvc.SetPickForTest(func(int) int { return 0 })

	srv := NewServer(Services{
		Participants: people,
		Lodging:      lodging.NewService(store, clk),
		Expenses:     expenses.NewService(store, people.Channel()),
		Food:         food.NewService(store),
		Activities:   activities.NewService(store),
		Game:         gameSvc,
	}, ServerOptions{
		Tokens:    tokens,
		Invites:   resolver,
		Idem:      memidempotency.NewStore(),
		Clock:     clk,
		PublicURL: "https://trip.example",
	})
	h := NewRouter(srv, RouterOptions{AuthMiddleware: NewAuthMiddleware(tokens, people)})
	return &testEnv{h: h, store: store, tokens: tokens, clk: clk}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

// join returns a session token for name (or the admin identity for the admin code).
func (e *testEnv) join(t *testing.T, code, name string) (string, Participant) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/v1/sessions", "", CreateSessionRequest{Code: code, Name: name}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("join %s: status=%d body=%s", name, rec.Code, rec.Body.String())
	}
	var resp CreateSessionResponse
	decode(t, rec, &resp)
	return resp.Token, resp.Participant
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, status, rec.Body.String())
	}
	var er ErrorResponse
	decode(t, rec, &er)
	if er.Error.Code != code {
		t.Fatalf("code: got %q want %q", er.Error.Code, code)
	}
}
