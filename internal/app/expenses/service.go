package expenses

import (
	"context"
	"math"
	"sort"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

type Record = channel.Record[domain.Expense]

type AddInput struct {
	Description  string
	Amount       float64
	PaidBy       domain.ParticipantID
	SplitBetween []domain.ParticipantID
}

// Balance is one participant's net position: positive means the group owes them.
type Balance struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
	Name          string               `json:"name"`
	Amount        float64              `json:"amount"`
}

type Service struct {
	ch           *channel.Channel[domain.Expense]
	participants *channel.Channel[domain.ParticipantProfile]
}

// NewService takes the participant channel so balances cover everyone who joined, including
// participants without expenses.
func NewService(store docstore.Store, participants *channel.Channel[domain.ParticipantProfile]) *Service {
	return &Service{ch: channel.New[domain.Expense](store, domain.CollectionExpenses), participants: participants}
}

func (s *Service) Add(ctx context.Context, actor domain.Actor, in AddInput) (domain.RecordID, error) {
	desc := domain.NormalizeHumanName(in.Description)
	if desc == "" {
		return "", apperr.Validation("description is required", map[string]any{"field": "description"})
	}
	if in.Amount <= 0 || math.IsInf(in.Amount, 0) || math.IsNaN(in.Amount) {
		return "", apperr.Validation("amount must be a positive number", map[string]any{"field": "amount"})
	}
	if in.PaidBy == "" {
		return "", apperr.Validation("paidBy is required", map[string]any{"field": "paidBy"})
	}
	split := domain.UniqueParticipants(in.SplitBetween)
	if len(split) == 0 {
		return "", apperr.Validation("splitBetween must name at least one participant", map[string]any{"field": "splitBetween"})
	}
	if err := s.checkParticipants(ctx, actor.TripGroup, in.PaidBy, split); err != nil {
		return "", err
	}
	return s.ch.Add(ctx, actor.TripGroup, domain.Expense{
		Authorship:   domain.AuthorshipOf(actor),
		Description:  desc,
		Amount:       math.Round(in.Amount*100) / 100,
		PaidBy:       in.PaidBy,
		SplitBetween: split,
	})
}

// checkParticipants rejects payers and splits naming someone who has not joined the group.
func (s *Service) checkParticipants(ctx context.Context, group domain.TripGroupID, paidBy domain.ParticipantID, split []domain.ParticipantID) error {
	people, err := s.participants.List(ctx, group)
	if err != nil {
		return err
	}
	known := make(map[domain.ParticipantID]bool, len(people))
	for _, p := range people {
		known[domain.ParticipantID(p.ID)] = true
	}
	if !known[paidBy] {
		return apperr.Validation("paidBy is not a participant of this trip", map[string]any{"field": "paidBy", "participantId": string(paidBy)})
	}
	for _, id := range split {
		if !known[id] {
			return apperr.Validation("splitBetween names someone who is not a participant of this trip", map[string]any{"field": "splitBetween", "participantId": string(id)})
		}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id domain.RecordID) error {
	return s.ch.DeleteIf(ctx, actor.TripGroup, id, func(r Record) error {
		if !domain.CanModify(actor, r.Value.AuthorID) {
			return apperr.PermissionDenied("only the author or an admin can delete this expense")
		}
		return nil
	})
}

// List returns expenses newest first.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]Record, error) {
	recs, err := s.ch.List(ctx, actor.TripGroup)
	if err != nil {
		return nil, err
	}
	newestFirst(recs)
	return recs, nil
}

func (s *Service) Subscribe(ctx context.Context, actor domain.Actor, onData func([]Record), onError func(error)) (docstore.Unsubscribe, error) {
	return s.ch.Subscribe(ctx, actor.TripGroup, func(recs []Record) {
		newestFirst(recs)
		onData(recs)
	}, onError)
}

// Balances computes every participant's balance from the current expenses.
func (s *Service) Balances(ctx context.Context, actor domain.Actor) ([]Balance, error) {
	recs, err := s.ch.List(ctx, actor.TripGroup)
	if err != nil {
		return nil, err
	}
	people, err := s.participants.List(ctx, actor.TripGroup)
	if err != nil {
		return nil, err
	}
	return ComputeBalances(recs, people), nil
}

// ComputeBalances is sorted by name, then id. Ids without a participant record (someone removed
// after an expense named them) keep the id as name.
func ComputeBalances(recs []Record, people []channel.Record[domain.ParticipantProfile]) []Balance {
	names := make(map[domain.ParticipantID]string, len(people))
	ids := make([]domain.ParticipantID, 0, len(people))
	for _, p := range people {
		id := domain.ParticipantID(p.ID)
		names[id] = p.Value.Name
		ids = append(ids, id)
	}
	expenses := make([]domain.Expense, 0, len(recs))
	for _, r := range recs {
		expenses = append(expenses, r.Value)
	}

	totals := domain.Balances(expenses, ids)
	out := make([]Balance, 0, len(totals))
	for id, amount := range totals {
		name := names[id]
		if name == "" {
			name = string(id)
		}
		out = append(out, Balance{ParticipantID: id, Name: name, Amount: math.Round(amount*100) / 100})
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := domain.FoldName(out[i].Name), domain.FoldName(out[j].Name); a != b {
			return a < b
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out
}

func newestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
}
