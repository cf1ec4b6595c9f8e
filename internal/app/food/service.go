package food

import (
	"context"
	"strings"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/app/patch"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

type Record = channel.Record[domain.FoodItem]

type Board = domain.FoodBoard[Record]

type AddInput struct {
	Name        string
	Description string
	WantedBy    string
	Type        domain.FoodType
}

// UpdateInput changes status fields. A null Comment clears it; a null Completed is rejected.
type UpdateInput struct {
	Completed patch.Optional[bool]
	Comment   patch.Optional[string]
}

type Service struct {
	ch *channel.Channel[domain.FoodItem]
}

func NewService(store docstore.Store) *Service {
	return &Service{ch: channel.New[domain.FoodItem](store, domain.CollectionFood)}
}

func (s *Service) Add(ctx context.Context, actor domain.Actor, in AddInput) (domain.RecordID, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return "", apperr.Validation("name is required", map[string]any{"field": "name"})
	}
	typ := in.Type
	if typ == "" {
		typ = domain.FoodGrocery
	}
	if !typ.Valid() {
		return "", apperr.Validation("type must be grocery or restaurant", map[string]any{"field": "type"})
	}
	wantedBy := domain.NormalizeHumanName(in.WantedBy)
	if wantedBy == "" {
		wantedBy = actor.Name
	}
	return s.ch.Add(ctx, actor.TripGroup, domain.FoodItem{
		Authorship:  domain.AuthorshipOf(actor),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		WantedBy:    wantedBy,
		Type:        typ,
	})
}

// Update is open to every participant of the group.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id domain.RecordID, in UpdateInput) error {
	fields := docstore.Fields{}
	if in.Completed.IsSpecified() {
		v, ok := in.Completed.Set()
		if !ok {
			return apperr.Validation("completed must not be null", map[string]any{"field": "completed"})
		}
		fields["completed"] = v
	}
	if in.Comment.IsSpecified() {
		v, _ := in.Comment.Set()
		fields["comment"] = strings.TrimSpace(v)
	}
	if len(fields) == 0 {
		return apperr.Validation("nothing to update", nil)
	}
	return s.ch.Update(ctx, actor.TripGroup, id, fields)
}

// ToggleCompleted flips the completed flag and returns the new value.
func (s *Service) ToggleCompleted(ctx context.Context, actor domain.Actor, id domain.RecordID) (bool, error) {
	rec, err := s.ch.Get(ctx, actor.TripGroup, id)
	if err != nil {
		return false, err
	}
	next := !rec.Value.Completed
	if err := s.ch.Update(ctx, actor.TripGroup, id, docstore.Fields{"completed": next}); err != nil {
		return false, err
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id domain.RecordID) error {
	return s.ch.DeleteIf(ctx, actor.TripGroup, id, func(r Record) error {
		if !domain.CanModify(actor, r.Value.AuthorID) {
			return apperr.PermissionDenied("only the author or an admin can delete this item")
		}
		return nil
	})
}

func (s *Service) List(ctx context.Context, actor domain.Actor) ([]Record, error) {
	return s.ch.List(ctx, actor.TripGroup)
}

func (s *Service) Board(ctx context.Context, actor domain.Actor) (Board, error) {
	recs, err := s.ch.List(ctx, actor.TripGroup)
	if err != nil {
		return Board{}, err
	}
	return Partition(recs), nil
}

func (s *Service) Subscribe(ctx context.Context, actor domain.Actor, onData func(Board), onError func(error)) (docstore.Unsubscribe, error) {
	return s.ch.Subscribe(ctx, actor.TripGroup, func(recs []Record) {
		onData(Partition(recs))
	}, onError)
}

func Partition(recs []Record) Board {
	return domain.PartitionFood(recs, func(r Record) domain.FoodItem { return r.Value })
}
