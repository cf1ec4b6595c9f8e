package client

import (
	"context"
	"net/http"

	"github.com/pixeltrip/tripboard/internal/adapters/httpapi"
	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/game"
	"github.com/pixeltrip/tripboard/internal/app/lodging"
	"github.com/pixeltrip/tripboard/internal/domain"
)

func (c *Client) ResolveInvite(ctx context.Context, code string) (httpapi.ResolveInviteResponse, error) {
	var out httpapi.ResolveInviteResponse
	err := c.do(ctx, http.MethodPost, "/v1/invites/resolve", httpapi.ResolveInviteRequest{Code: code}, &out, nil)
	return out, err
}

// Join creates a session. Set ParticipantId to log back in as a listed participant.
func (c *Client) Join(ctx context.Context, req httpapi.CreateSessionRequest) (httpapi.CreateSessionResponse, error) {
	var out httpapi.CreateSessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/sessions", req, &out, nil)
	return out, err
}

func (c *Client) Me(ctx context.Context) (httpapi.MeResponse, error) {
	var out httpapi.MeResponse
	err := c.do(ctx, http.MethodGet, "/v1/me", nil, &out, nil)
	return out, err
}

func (c *Client) Participants(ctx context.Context) ([]httpapi.Participant, error) {
	var out httpapi.ParticipantsResponse
	err := c.do(ctx, http.MethodGet, "/v1/participants", nil, &out, nil)
	return out.Participants, err
}

func (c *Client) RemoveParticipant(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/participants/"+escape(id), nil, nil, nil)
}

func (c *Client) Trip(ctx context.Context) (httpapi.TripResponse, error) {
	var out httpapi.TripResponse
	err := c.do(ctx, http.MethodGet, "/v1/trip", nil, &out, nil)
	return out, err
}

func (c *Client) RenameTrip(ctx context.Context, title string) (httpapi.TripResponse, error) {
	var out httpapi.TripResponse
	err := c.do(ctx, http.MethodPut, "/v1/trip/title", httpapi.RenameTripRequest{Title: title}, &out, nil)
	return out, err
}

func (c *Client) Lodging(ctx context.Context) ([]lodging.Record, error) {
	var out httpapi.ListResponse[lodging.Record]
	err := c.do(ctx, http.MethodGet, "/v1/lodging", nil, &out, nil)
	return out.Items, err
}

func (c *Client) AddLodging(ctx context.Context, req httpapi.CreateLodgingRequest) (string, error) {
	return c.create(ctx, "/v1/lodging", req)
}

func (c *Client) Vote(ctx context.Context, id string, vote domain.VoteKind) error {
	return c.do(ctx, http.MethodPost, "/v1/lodging/"+escape(id)+"/votes", httpapi.VoteRequest{Vote: string(vote)}, nil, nil)
}

func (c *Client) Comment(ctx context.Context, id, text string) error {
	return c.do(ctx, http.MethodPost, "/v1/lodging/"+escape(id)+"/comments", httpapi.CommentRequest{Text: text}, nil, nil)
}

func (c *Client) DeleteLodging(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/lodging/"+escape(id), nil, nil, nil)
}

func (c *Client) Expenses(ctx context.Context) ([]expenses.Record, error) {
	var out httpapi.ListResponse[expenses.Record]
	err := c.do(ctx, http.MethodGet, "/v1/expenses", nil, &out, nil)
	return out.Items, err
}

func (c *Client) AddExpense(ctx context.Context, req httpapi.CreateExpenseRequest) (string, error) {
	return c.create(ctx, "/v1/expenses", req)
}

func (c *Client) Balances(ctx context.Context) ([]expenses.Balance, error) {
	var out httpapi.ListResponse[expenses.Balance]
	err := c.do(ctx, http.MethodGet, "/v1/expenses/balances", nil, &out, nil)
	return out.Items, err
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/expenses/"+escape(id), nil, nil, nil)
}

func (c *Client) Food(ctx context.Context) (food.Board, error) {
	var out food.Board
	err := c.do(ctx, http.MethodGet, "/v1/food", nil, &out, nil)
	return out, err
}

func (c *Client) AddFood(ctx context.Context, req httpapi.CreateFoodRequest) (string, error) {
	return c.create(ctx, "/v1/food", req)
}

func (c *Client) UpdateFood(ctx context.Context, id string, req httpapi.UpdateFoodRequest) error {
	return c.do(ctx, http.MethodPatch, "/v1/food/"+escape(id), req, nil, nil)
}

func (c *Client) DeleteFood(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/food/"+escape(id), nil, nil, nil)
}

func (c *Client) Activities(ctx context.Context) (activities.Board, error) {
	var out activities.Board
	err := c.do(ctx, http.MethodGet, "/v1/activities", nil, &out, nil)
	return out, err
}

func (c *Client) AddActivity(ctx context.Context, req httpapi.CreateActivityRequest) (string, error) {
	return c.create(ctx, "/v1/activities", req)
}

func (c *Client) UpdateActivity(ctx context.Context, id string, req httpapi.UpdateActivityRequest) error {
	return c.do(ctx, http.MethodPatch, "/v1/activities/"+escape(id), req, nil, nil)
}

func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/activities/"+escape(id), nil, nil, nil)
}

func (c *Client) Questions(ctx context.Context, kind domain.QuestionKind) ([]game.Record, error) {
	var out httpapi.ListResponse[game.Record]
	err := c.do(ctx, http.MethodGet, "/v1/game/"+escape(string(kind))+"/questions", nil, &out, nil)
	return out.Items, err
}

func (c *Client) AddQuestion(ctx context.Context, kind domain.QuestionKind, text string) (string, error) {
	return c.create(ctx, "/v1/game/"+escape(string(kind))+"/questions", httpapi.CreateQuestionRequest{Text: text})
}

func (c *Client) DeleteQuestion(ctx context.Context, kind domain.QuestionKind, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/game/"+escape(string(kind))+"/questions/"+escape(id), nil, nil, nil)
}

func (c *Client) Draw(ctx context.Context, kind domain.QuestionKind) (game.Question, error) {
	var out game.Question
	err := c.do(ctx, http.MethodGet, "/v1/game/"+escape(string(kind))+"/draw", nil, &out, nil)
	return out, err
}
