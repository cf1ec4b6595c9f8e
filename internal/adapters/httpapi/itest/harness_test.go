package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/adapters/httpapi"
	memclock "github.com/pixeltrip/tripboard/internal/adapters/memory/clock"
	memdocstore "github.com/pixeltrip/tripboard/internal/adapters/memory/docstore"
	memidempotency "github.com/pixeltrip/tripboard/internal/adapters/memory/idempotency"
	mongodocstore "github.com/pixeltrip/tripboard/internal/adapters/mongo/docstore"
	pgdocstore "github.com/pixeltrip/tripboard/internal/adapters/postgres/docstore"
	pgidempotency "github.com/pixeltrip/tripboard/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/pixeltrip/tripboard/internal/adapters/postgres/testutil"
	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/game"
	"github.com/pixeltrip/tripboard/internal/app/identity"
	"github.com/pixeltrip/tripboard/internal/app/lodging"
	"github.com/pixeltrip/tripboard/internal/app/participants"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/platform/auth/sessiontoken"
	docstoreport "github.com/pixeltrip/tripboard/internal/ports/out/docstore"
	idempotencyport "github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
	backendMongo    backend = "mongo"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "mongo":
		return []backend{backendMongo}
	case "all":
		return []backend{backendMemory, backendPostgres, backendMongo}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|mongo|all)")
		return nil
	}
}

type testServer struct {
	baseURL    string
	client     *http.Client
	inviteCode string
	adminCode  string
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		store     docstoreport.Store
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		store = pgdocstore.NewStore(pool, zap.NewNop())
		// The manual clock stamps records in the past, so expiry is disabled here.
		idemStore = pgidempotency.NewStoreWithTTL(pool, 0)
	case backendMongo:
		uri := os.Getenv("TEST_MONGO_URI")
		if uri == "" {
			t.Skip("TEST_MONGO_URI not set; skipping mongo itest")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongodocstore.Connect(ctx, uri)
		if err != nil {
			t.Fatalf("mongo connect: %v", err)
		}
		db := client.Database("tripboard_itest_" + uuid.NewString()[:8])
		t.Cleanup(func() {
			_ = db.Drop(context.Background())
			_ = client.Disconnect(context.Background())
		})
		ms := mongodocstore.NewStore(db, zap.NewNop())
		if err := ms.EnsureIndexes(ctx); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		store = ms
		idemStore = memidempotency.NewStore()
	case backendMemory:
		store = memdocstore.NewStore(clk)
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	// Shared databases keep data from earlier runs, so every server gets its own trip group.
	suffix := strings.ToUpper(uuid.NewString()[:8])
	group := domain.TripGroupID("ITEST_" + suffix)
	ts := &testServer{inviteCode: "JOIN-" + suffix, adminCode: "ADMIN-" + suffix}
	resolver, err := identity.NewResolver(
		[]identity.InviteCode{{Code: ts.inviteCode, TripGroup: group, Description: "itest"}},
		[]identity.AdminCode{{Code: ts.adminCode, TripGroup: group, ParticipantID: "admin-itest", Name: "Admin", Avatar: "🦊"}},
	)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	tokens, err := sessiontoken.NewWithOptions(sessiontoken.Config{
		Secret: []byte("itest-secret-itest-secret-itest-secret"),
		Issuer: "itest-issuer",
		TTL:    time.Hour,
	}, clk)
	if err != nil {
		t.Fatalf("sessiontoken: %v", err)
	}

	people := participants.NewService(store, resolver, clk)
	api := httpapi.NewServer(httpapi.Services{
		Participants: people,
		Lodging:      lodging.NewService(store, clk),
		Expenses:     expenses.NewService(store, people.Channel()),
		Food:         food.NewService(store),
		Activities:   activities.NewService(store),
		Game:         game.NewService(store),
	}, httpapi.ServerOptions{
		Tokens:    tokens,
		Invites:   resolver,
		Idem:      idemStore,
		Clock:     clk,
		PublicURL: "https://itest.example",
	})
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{AuthMiddleware: httpapi.NewAuthMiddleware(tokens, people)})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ts.baseURL = srv.URL
	ts.client = srv.Client()
	return ts
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any, hdr ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

// join returns a session token and participant id.
func (s *testServer) join(t *testing.T, code string, name string) (string, string) {
	t.Helper()
	status, body, _ := s.doJSON(t, http.MethodPost, "/v1/sessions", "", map[string]string{"code": code, "name": name})
	if status != http.StatusCreated {
		t.Fatalf("join status=%d body=%s", status, string(body))
	}
	got := mustUnmarshal[struct {
		Token       string `json:"token"`
		Participant struct {
			ParticipantId string `json:"participantId"`
		} `json:"participant"`
	}](t, body)
	return got.Token, got.Participant.ParticipantId
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
