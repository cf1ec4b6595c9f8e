package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/game"
	"github.com/pixeltrip/tripboard/internal/domain"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", "", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/v1/me", "", nil, nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	var er ErrorResponse
	decode(t, rec, &er)
	if rid, err := er.Error.RequestId.Get(); err != nil || rid == "" {
		t.Fatalf("expected requestId to be a non-empty string")
	}

	rec = e.do(t, http.MethodGet, "/v1/me", "", nil, map[string]string{"Authorization": "Basic abc"})
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	rec = e.do(t, http.MethodGet, "/v1/me", "not-a-token", nil, nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	token, p := e.join(t, testInvite, "Ana")
	rec = e.do(t, http.MethodGet, "/v1/me", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me MeResponse
	decode(t, rec, &me)
	assert.Equal(t, "SUMMER_HOUSE", me.TripGroup)
	assert.Equal(t, p.ParticipantId, me.Participant.ParticipantId)
	assert.False(t, me.Participant.IsAdmin)

	e.clk.Advance(2 * time.Hour)
	rec = e.do(t, http.MethodGet, "/v1/me", token, nil, nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestJoinFlow(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/invites/resolve", "", ResolveInviteRequest{Code: "nope"}, nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "INVALID_CODE")

	rec = e.do(t, http.MethodPost, "/v1/sessions", "", CreateSessionRequest{Code: "nope", Name: "Ana"}, nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "INVALID_CODE")

	rec = e.do(t, http.MethodPost, "/v1/sessions", "", `{"code":"SUMMER2025","name":"Ana","extra":1}`, nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	_, ana := e.join(t, " summer2025 ", "Ana")
	_, admin := e.join(t, testAdmin, "")
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "admin-mike", admin.ParticipantId)

	rec = e.do(t, http.MethodPost, "/v1/invites/resolve", "", ResolveInviteRequest{Code: testInvite}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res ResolveInviteResponse
	decode(t, rec, &res)
	assert.Nil(t, res.Admin)
	require.Len(t, res.Returning, 1, "plain codes do not list admins")
	assert.Equal(t, ana.ParticipantId, res.Returning[0].ParticipantId)

	// Returning login by picking from the list keeps the same identity.
	rec = e.do(t, http.MethodPost, "/v1/sessions", "", CreateSessionRequest{Code: testInvite, ParticipantId: ana.ParticipantId}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var again CreateSessionResponse
	decode(t, rec, &again)
	assert.Equal(t, ana.ParticipantId, again.Participant.ParticipantId)

	rec = e.do(t, http.MethodPost, "/v1/sessions", "", CreateSessionRequest{Code: testInvite, ParticipantId: "admin-mike"}, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "PERMISSION_DENIED")
}

func TestTripTitleAndParticipants(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	anaToken, _ := e.join(t, testInvite, "Ana")
	boToken, bo := e.join(t, testInvite, "Bo")
	adminToken, _ := e.join(t, testAdmin, "")

	rec := e.do(t, http.MethodGet, "/v1/trip", anaToken, nil, nil)
	var trip TripResponse
	decode(t, rec, &trip)
	assert.Equal(t, domain.DefaultTripTitle, trip.Title)

	rec = e.do(t, http.MethodPut, "/v1/trip/title", anaToken, RenameTripRequest{Title: "Lake"}, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "PERMISSION_DENIED")

	rec = e.do(t, http.MethodPut, "/v1/trip/title", adminToken, RenameTripRequest{Title: "  Lake   Weekend "}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &trip)
	assert.Equal(t, "Lake Weekend", trip.Title)

	rec = e.do(t, http.MethodDelete, "/v1/participants/"+bo.ParticipantId, anaToken, nil, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "PERMISSION_DENIED")
	rec = e.do(t, http.MethodDelete, "/v1/participants/admin-mike", adminToken, nil, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "PERMISSION_DENIED")
	rec = e.do(t, http.MethodDelete, "/v1/participants/"+bo.ParticipantId, adminToken, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// A removed participant's token stops working right away.
	rec = e.do(t, http.MethodGet, "/v1/me", boToken, nil, nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	rec = e.do(t, http.MethodPost, "/v1/food", boToken, CreateFoodRequest{Name: "Chips"}, nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	rec = e.do(t, http.MethodGet, "/v1/participants", anaToken, nil, nil)
	var ps ParticipantsResponse
	decode(t, rec, &ps)
	names := []string{}
	for _, p := range ps.Participants {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Ana", "Mike"}, names)
}

func TestLodging_CreateVoteDelete(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	anaToken, _ := e.join(t, testInvite, "Ana")
	boToken, _ := e.join(t, testInvite, "Bo")

	rec := e.do(t, http.MethodPost, "/v1/lodging", anaToken, CreateLodgingRequest{Link: "https://stay.example/1", Title: "Cabin"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreatedResponse
	decode(t, rec, &created)

	rec = e.do(t, http.MethodPost, "/v1/lodging/"+created.Id+"/votes", boToken, VoteRequest{Vote: "like"}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/v1/lodging/"+created.Id+"/votes", boToken, VoteRequest{Vote: "maybe"}, nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = e.do(t, http.MethodPost, "/v1/lodging/"+created.Id+"/comments", boToken, CommentRequest{Text: "hot tub!"}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/lodging", boToken, nil, nil)
	body := rec.Body.String()
	assert.Contains(t, body, `"price":"Price not available"`)
	assert.Contains(t, body, `"like":["Bo"]`)
	assert.Contains(t, body, `"text":"hot tub!"`)

	rec = e.do(t, http.MethodDelete, "/v1/lodging/"+created.Id, boToken, nil, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "PERMISSION_DENIED")
	rec = e.do(t, http.MethodDelete, "/v1/lodging/"+created.Id, anaToken, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodPost, "/v1/lodging/"+created.Id+"/votes", boToken, VoteRequest{Vote: "like"}, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")
}

func TestCreate_Idempotency(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	token, _ := e.join(t, testInvite, "Ana")
	hdr := map[string]string{idempotencyHeader: "key-1"}

	first := e.do(t, http.MethodPost, "/v1/food", token, CreateFoodRequest{Name: "Eggs"}, hdr)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	replay := e.do(t, http.MethodPost, "/v1/food", token, CreateFoodRequest{Name: " Eggs "}, hdr)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	conflict := e.do(t, http.MethodPost, "/v1/food", token, CreateFoodRequest{Name: "Milk"}, hdr)
	requireErrorCode(t, conflict, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	rec := e.do(t, http.MethodGet, "/v1/food", token, nil, nil)
	var board struct {
		GroceryPending []map[string]any `json:"groceryPending"`
	}
	decode(t, rec, &board)
	assert.Len(t, board.GroceryPending, 1, "replay must not create a second record")
}

func TestFoodAndActivities_Patch(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	token, _ := e.join(t, testInvite, "Ana")

	rec := e.do(t, http.MethodPost, "/v1/food", token, CreateFoodRequest{Name: "Tacos", Type: "restaurant"}, nil)
	var f CreatedResponse
	decode(t, rec, &f)
	rec = e.do(t, http.MethodPatch, "/v1/food/"+f.Id, token, `{"completed":true,"comment":"great"}`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPatch, "/v1/food/"+f.Id, token, `{"completed":null}`, nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = e.do(t, http.MethodGet, "/v1/food", token, nil, nil)
	assert.Contains(t, rec.Body.String(), `"restaurantCompleted":[{`)

	rec = e.do(t, http.MethodPost, "/v1/activities", token, CreateActivityRequest{Name: "Hike"}, nil)
	var a CreatedResponse
	decode(t, rec, &a)
	rec = e.do(t, http.MethodPatch, "/v1/activities/"+a.Id, token, `{"confirmed":true}`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, "/v1/activities", token, nil, nil)
	var board struct {
		Confirmed []map[string]any `json:"confirmed"`
		Pending   []map[string]any `json:"pending"`
	}
	decode(t, rec, &board)
	assert.Len(t, board.Confirmed, 1)
	assert.Len(t, board.Pending, 1)
}

func TestExpenses_Balances(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	anaToken, ana := e.join(t, testInvite, "Ana")
	_, bo := e.join(t, testInvite, "Bo")
	_, cy := e.join(t, testInvite, "Cy")

	rec := e.do(t, http.MethodPost, "/v1/expenses", anaToken, CreateExpenseRequest{
		Description: "Groceries", Amount: 30, PaidBy: ana.ParticipantId,
		SplitBetween: []string{ana.ParticipantId, bo.ParticipantId, cy.ParticipantId},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/expenses", anaToken, CreateExpenseRequest{
		Description: "Nothing", Amount: 5, PaidBy: ana.ParticipantId,
	}, nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = e.do(t, http.MethodPost, "/v1/expenses", anaToken, CreateExpenseRequest{
		Description: "Phantom", Amount: 5, PaidBy: "ghost-9", SplitBetween: []string{ana.ParticipantId},
	}, nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = e.do(t, http.MethodGet, "/v1/expenses/balances", anaToken, nil, nil)
	var resp ListResponse[expenses.Balance]
	decode(t, rec, &resp)
	got := map[string]float64{}
	for _, b := range resp.Items {
		got[b.Name] = b.Amount
	}
	assert.InDelta(t, 20.0, got["Ana"], 1e-9)
	assert.InDelta(t, -10.0, got["Bo"], 1e-9)
	assert.InDelta(t, -10.0, got["Cy"], 1e-9)
}

func TestGame(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	token, _ := e.join(t, testInvite, "Ana")

	rec := e.do(t, http.MethodGet, "/v1/game/riddle/draw", token, nil, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = e.do(t, http.MethodPost, "/v1/game/dare/questions", token, CreateQuestionRequest{Text: "Swim"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(t, http.MethodGet, "/v1/game/dare/questions", token, nil, nil)
	assert.Contains(t, rec.Body.String(), `"text":"Swim"`)

	rec = e.do(t, http.MethodGet, "/v1/game/truth/draw", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var q game.Question
	decode(t, rec, &q)
	assert.Equal(t, domain.QuestionTruth, q.Kind)
	assert.NotEmpty(t, q.Text)
	assert.False(t, q.Custom)
}

func TestInviteQRCode(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	anaToken, _ := e.join(t, testInvite, "Ana")
	adminToken, _ := e.join(t, testAdmin, "")

	rec := e.do(t, http.MethodGet, "/v1/invite/qrcode", anaToken, nil, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "PERMISSION_DENIED")

	rec = e.do(t, http.MethodGet, "/v1/invite/qrcode?size=abc", adminToken, nil, nil)
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = e.do(t, http.MethodGet, "/v1/invite/qrcode?size=128", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestMalformedBody(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	token, _ := e.join(t, testInvite, "Ana")
	rec := e.do(t, http.MethodPost, "/v1/lodging", token, "{", nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = e.do(t, http.MethodPost, "/v1/lodging", token, strings.Repeat(" ", 3), nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}
