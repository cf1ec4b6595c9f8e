package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/adapters/httpapi"
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

type harness struct {
	ts  *httptest.Server
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := memclock.NewManualClock(time.Now().UTC())
	resolver, err := identity.NewResolver(
		[]identity.InviteCode{{Code: "SUMMER2025", TripGroup: "SUMMER_HOUSE", Description: "Summer house"}},
		[]identity.AdminCode{{Code: "MIKE-ADMIN", TripGroup: "SUMMER_HOUSE", ParticipantID: "admin-mike", Name: "Mike", Avatar: "🦊"}},
	)
	require.NoError(t, err)
	tokens, err := sessiontoken.NewWithOptions(sessiontoken.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "cli-test",
		TTL:    time.Hour,
	}, clk)
	require.NoError(t, err)

	store := memdocstore.NewStore(clk)
	people := participants.NewService(store, resolver, clk)
	gameSvc := game.NewService(store)
	gameSvc.SetPickForTest(func(int) int { return 0 })
	srv := httpapi.NewServer(httpapi.Services{
		Participants: people,
		Lodging:      lodging.NewService(store, clk),
		Expenses:     expenses.NewService(store, people.Channel()),
		Food:         food.NewService(store),
		Activities:   activities.NewService(store),
		Game:         gameSvc,
	}, httpapi.ServerOptions{Tokens: tokens, Invites: resolver, Idem: memidempotency.NewStore(), Clock: clk})
	ts := httptest.NewServer(httpapi.NewRouter(srv, httpapi.RouterOptions{AuthMiddleware: httpapi.NewAuthMiddleware(tokens, people)}))
	t.Cleanup(ts.Close)
	return &harness{ts: ts, dir: t.TempDir()}
}

// run executes tripctl with its own session database per profile.
func (h *harness) run(t *testing.T, profile string, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(h.dir, profile+".toml")
	if _, err := os.Stat(cfg); err != nil {
		content := "server = \"" + h.ts.URL + "\"\nsession-db = \"" + filepath.Join(h.dir, profile+".db") + "\"\n"
		require.NoError(t, os.WriteFile(cfg, []byte(content), 0o600))
	}

	a := &app{v: viper.New(), log: zap.NewNop(), httpClient: h.ts.Client()}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func firstID(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.Fields(lines[1])[0]
}

func TestCLI_JoinWhoamiLogout(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.run(t, "ana", "whoami")
	require.ErrorIs(t, err, errNotJoined)

	out, err := h.run(t, "ana", "join", "summer2025", "--name", "Ana", "--avatar", "🐢")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Joined SUMMER_HOUSE as 🐢 Ana")

	out, err = h.run(t, "ana", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "SUMMER_HOUSE")

	// A second device sees Ana as a returning participant.
	out, err = h.run(t, "other", "join", "SUMMER2025")
	require.Error(t, err)
	assert.Contains(t, out, "Ana")

	out, err = h.run(t, "ana", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	_, err = h.run(t, "ana", "whoami")
	require.ErrorIs(t, err, errNotJoined)
}

func TestCLI_EntityCommands(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.run(t, "ana", "join", "SUMMER2025", "--name", "Ana")
	require.NoError(t, err)
	_, err = h.run(t, "bo", "join", "SUMMER2025", "--name", "Bo")
	require.NoError(t, err)

	out, err := h.run(t, "ana", "lodging", "add", "https://stay.example/1", "Lake", "Cabin", "--guests", "6")
	require.NoError(t, err, out)
	out, err = h.run(t, "ana", "lodging", "list")
	require.NoError(t, err)
	id := firstID(out)
	require.NotEmpty(t, id, out)
	assert.Contains(t, out, "Lake Cabin")

	_, err = h.run(t, "bo", "lodging", "vote", id, "like")
	require.NoError(t, err)
	out, err = h.run(t, "bo", "lodging", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "+1")
	_, err = h.run(t, "bo", "lodging", "rm", id)
	require.Error(t, err, "only the author may delete")

	_, err = h.run(t, "ana", "expenses", "add", "30", "Groceries")
	require.NoError(t, err)
	out, err = h.run(t, "bo", "expenses", "balances")
	require.NoError(t, err)
	assert.Contains(t, out, "+15.00")
	assert.Contains(t, out, "-15.00")

	_, err = h.run(t, "ana", "food", "add", "Tacos", "--type", "restaurant")
	require.NoError(t, err)
	out, err = h.run(t, "ana", "food", "list")
	require.NoError(t, err)
	foodID := firstID(out)
	_, err = h.run(t, "ana", "food", "done", foodID)
	require.NoError(t, err)
	out, err = h.run(t, "ana", "food", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "restaurant  x")

	_, err = h.run(t, "ana", "activities", "add", "Hike", "--location", "Ridge")
	require.NoError(t, err)
	out, err = h.run(t, "ana", "activities", "list")
	require.NoError(t, err)
	actID := firstID(out)
	out, err = h.run(t, "ana", "activities", "toggle", actID, "confirmed")
	require.NoError(t, err)
	assert.Contains(t, out, "Hike confirmed=true")

	out, err = h.run(t, "ana", "game", "draw", "truth")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestCLI_TitleAdminOnly(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.run(t, "mike", "join", "MIKE-ADMIN")
	require.NoError(t, err)
	_, err = h.run(t, "ana", "join", "SUMMER2025", "--name", "Ana")
	require.NoError(t, err)

	_, err = h.run(t, "ana", "title", "Nope")
	require.Error(t, err)
	out, err := h.run(t, "mike", "title", "Lake", "Week")
	require.NoError(t, err)
	assert.Equal(t, "Lake Week\n", out)
	out, err = h.run(t, "ana", "title")
	require.NoError(t, err)
	assert.Equal(t, "Lake Week\n", out)
}

func TestCLI_WatchRejectsUnknownCollection(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.run(t, "ana", "watch", "weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collection")
}

func TestInitConfig_WritesDefault(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "nested", "tripctl.toml")
	v := viper.New()
	require.NoError(t, initConfig(v, file))
	assert.Equal(t, "http://localhost:8080", v.GetString("server"))
	_, err := os.Stat(file)
	require.NoError(t, err)
}
