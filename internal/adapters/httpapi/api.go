package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error struct {
		Code      string                            `json:"code"`
		Message   string                            `json:"message"`
		Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
		RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
	} `json:"error"`
}

type ResolveInviteRequest struct {
	Code string `json:"code"`
}

type AdminIdentity struct {
	ParticipantId string `json:"participantId"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
}

type ResolveInviteResponse struct {
	TripGroup   string         `json:"tripGroup"`
	Description string         `json:"description"`
	Admin       *AdminIdentity `json:"admin,omitempty"`
	Returning   []Participant  `json:"returning"`
}

type CreateSessionRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	ParticipantId string `json:"participantId,omitempty"`
}

type CreateSessionResponse struct {
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	TripGroup   string      `json:"tripGroup"`
	Participant Participant `json:"participant"`
}

type Participant struct {
	ParticipantId string    `json:"participantId"`
	Name          string    `json:"name"`
	Avatar        string    `json:"avatar"`
	IsAdmin       bool      `json:"isAdmin"`
	JoinedAt      time.Time `json:"joinedAt,omitzero"`
}

type MeResponse struct {
	TripGroup   string      `json:"tripGroup"`
	Participant Participant `json:"participant"`
}

type ParticipantsResponse struct {
	Participants []Participant `json:"participants"`
}

type TripResponse struct {
	TripGroup string `json:"tripGroup"`
	Title     string `json:"title"`
}

type RenameTripRequest struct {
	Title string `json:"title"`
}

type CreatedResponse struct {
	Id string `json:"id"`
}

type CreateLodgingRequest struct {
	Link        string  `json:"link"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       string  `json:"price,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"reviewCount,omitempty"`
	Bedrooms    int     `json:"bedrooms,omitempty"`
	Bathrooms   float64 `json:"bathrooms,omitempty"`
	Guests      int     `json:"guests,omitempty"`
}

type VoteRequest struct {
	Vote string `json:"vote"`
}

type CommentRequest struct {
	Text string `json:"text"`
}

type CreateExpenseRequest struct {
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	PaidBy       string   `json:"paidBy"`
	SplitBetween []string `json:"splitBetween"`
}

type CreateFoodRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	WantedBy    string `json:"wantedBy,omitempty"`
	Type        string `json:"type,omitempty"`
}

// UpdateFoodRequest distinguishes omitted members from explicit nulls.
type UpdateFoodRequest struct {
	Completed nullable.Nullable[bool]   `json:"completed,omitempty"`
	Comment   nullable.Nullable[string] `json:"comment,omitempty"`
}

type CreateActivityRequest struct {
	Name          string `json:"name"`
	Location      string `json:"location,omitempty"`
	PreferredDate string `json:"preferredDate,omitempty"`
	Link          string `json:"link,omitempty"`
	SuggestedBy   string `json:"suggestedBy,omitempty"`
}

type UpdateActivityRequest struct {
	Completed nullable.Nullable[bool] `json:"completed,omitempty"`
	Confirmed nullable.Nullable[bool] `json:"confirmed,omitempty"`
}

type CreateQuestionRequest struct {
	Text string `json:"text"`
}

// ListResponse wraps collection payloads so the top level stays an object.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

func participantFromDomain(p domain.Participant) Participant {
	return Participant{
		ParticipantId: string(p.ID),
		Name:          p.Name,
		Avatar:        p.Avatar,
		IsAdmin:       p.IsAdmin,
		JoinedAt:      p.JoinedAt,
	}
}

func participantsFromDomain(ps []domain.Participant) []Participant {
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, participantFromDomain(p))
	}
	return out
}

func items[T any](recs []channel.Record[T]) ListResponse[channel.Record[T]] {
	if recs == nil {
		recs = []channel.Record[T]{}
	}
	return ListResponse[channel.Record[T]]{Items: recs}
}
