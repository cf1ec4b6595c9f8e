package activities

import (
	"context"
	"net/url"
	"strings"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/app/patch"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

type Record = channel.Record[domain.Activity]

type Board = domain.ActivityBoard[Record]

type AddInput struct {
	Name          string
	Location      string
	PreferredDate string
	Link          string
	SuggestedBy   string
}

type UpdateInput struct {
	Completed patch.Optional[bool]
	Confirmed patch.Optional[bool]
}

// Field names accepted by Toggle.
const (
	FieldCompleted = "completed"
	FieldConfirmed = "confirmed"
)

type Service struct {
	ch *channel.Channel[domain.Activity]
}

func NewService(store docstore.Store) *Service {
	return &Service{ch: channel.New[domain.Activity](store, domain.CollectionActivities)}
}

func (s *Service) Add(ctx context.Context, actor domain.Actor, in AddInput) (domain.RecordID, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return "", apperr.Validation("name is required", map[string]any{"field": "name"})
	}
	link := strings.TrimSpace(in.Link)
	if link != "" {
		if u, err := url.Parse(link); err != nil || u.Host == "" {
			return "", apperr.Validation("link must be an absolute URL", map[string]any{"field": "link"})
		}
	}
	suggestedBy := domain.NormalizeHumanName(in.SuggestedBy)
	if suggestedBy == "" {
		suggestedBy = actor.Name
	}
	return s.ch.Add(ctx, actor.TripGroup, domain.Activity{
		Authorship:    domain.AuthorshipOf(actor),
		Name:          name,
		Location:      strings.TrimSpace(in.Location),
		PreferredDate: strings.TrimSpace(in.PreferredDate),
		Link:          link,
		SuggestedBy:   suggestedBy,
	})
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, id domain.RecordID, in UpdateInput) error {
	fields := docstore.Fields{}
	for name, opt := range map[string]patch.Optional[bool]{FieldCompleted: in.Completed, FieldConfirmed: in.Confirmed} {
		if !opt.IsSpecified() {
			continue
		}
		v, ok := opt.Set()
		if !ok {
			return apperr.Validation(name+" must not be null", map[string]any{"field": name})
		}
		fields[name] = v
	}
	if len(fields) == 0 {
		return apperr.Validation("nothing to update", nil)
	}
	return s.ch.Update(ctx, actor.TripGroup, id, fields)
}

// Toggle flips completed or confirmed and returns the new value.
func (s *Service) Toggle(ctx context.Context, actor domain.Actor, id domain.RecordID, field string) (bool, error) {
	if field != FieldCompleted && field != FieldConfirmed {
		return false, apperr.Validation("field must be completed or confirmed", map[string]any{"field": field})
	}
	rec, err := s.ch.Get(ctx, actor.TripGroup, id)
	if err != nil {
		return false, err
	}
	next := !rec.Value.Completed
	if field == FieldConfirmed {
		next = !rec.Value.Confirmed
	}
	if err := s.ch.Update(ctx, actor.TripGroup, id, docstore.Fields{field: next}); err != nil {
		return false, err
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id domain.RecordID) error {
	return s.ch.DeleteIf(ctx, actor.TripGroup, id, func(r Record) error {
		if !domain.CanModify(actor, r.Value.AuthorID) {
			return apperr.PermissionDenied("only the author or an admin can delete this activity")
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
	return domain.PartitionActivities(recs, func(r Record) domain.Activity { return r.Value })
}
