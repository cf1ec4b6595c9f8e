package lodging

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/clock"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

type Record = channel.Record[domain.Lodging]

type AddInput struct {
	Link        string
	Title       string
	Description string
	Price       string
	Rating      float64
	ReviewCount int
	Bedrooms    int
	Bathrooms   float64
	Guests      int
}

type Service struct {
	ch  *channel.Channel[domain.Lodging]
	clk clock.Clock
}

func NewService(store docstore.Store, clk clock.Clock) *Service {
	return &Service{ch: channel.New[domain.Lodging](store, domain.CollectionLodging), clk: clk}
}

func (s *Service) Add(ctx context.Context, actor domain.Actor, in AddInput) (domain.RecordID, error) {
	link := strings.TrimSpace(in.Link)
	title := domain.NormalizeHumanName(in.Title)
	if link == "" || title == "" {
		return "", apperr.Validation("link and title are required", map[string]any{"fields": []string{"link", "title"}})
	}
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Validation("link must be an http(s) URL", map[string]any{"field": "link"})
	}
	if in.Rating < 0 || in.ReviewCount < 0 || in.Bedrooms < 0 || in.Bathrooms < 0 || in.Guests < 0 {
		return "", apperr.Validation("counts and rating must not be negative", nil)
	}
	price := strings.TrimSpace(in.Price)
	if price == "" {
		price = domain.DefaultLodgingPrice
	}
	return s.ch.Add(ctx, actor.TripGroup, domain.Lodging{
		Authorship:  domain.AuthorshipOf(actor),
		Link:        link,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Price:       price,
		Rating:      in.Rating,
		ReviewCount: in.ReviewCount,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		Guests:      in.Guests,
		Votes:       domain.Votes{Like: []string{}, Dislike: []string{}},
		Comments:    []domain.Comment{},
	})
}

// Vote records the actor's like or dislike, replacing any earlier vote by the same name.
func (s *Service) Vote(ctx context.Context, actor domain.Actor, id domain.RecordID, kind domain.VoteKind) error {
	if !kind.Valid() {
		return apperr.Validation("vote must be like or dislike", map[string]any{"field": "vote"})
	}
	if actor.Name == "" {
		return apperr.Validation("voter has no name", nil)
	}
	rec, err := s.ch.Get(ctx, actor.TripGroup, id)
	if err != nil {
		return err
	}
	votes := rec.Value.Votes.Apply(actor.Name, kind)
	return s.ch.Update(ctx, actor.TripGroup, id, docstore.Fields{"votes": votes})
}

func (s *Service) Comment(ctx context.Context, actor domain.Actor, id domain.RecordID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.Validation("comment text is required", map[string]any{"field": "text"})
	}
	rec, err := s.ch.Get(ctx, actor.TripGroup, id)
	if err != nil {
		return err
	}
	comments := append(rec.Value.Comments, domain.Comment{
		AuthorID:   actor.ParticipantID,
		AuthorName: actor.Name,
		Text:       text,
		CreatedAt:  s.clk.Now().UTC(),
	})
	return s.ch.Update(ctx, actor.TripGroup, id, docstore.Fields{"comments": comments})
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id domain.RecordID) error {
	return s.ch.DeleteIf(ctx, actor.TripGroup, id, func(r Record) error {
		if !domain.CanModify(actor, r.Value.AuthorID) {
			return apperr.PermissionDenied("only the author or an admin can delete this lodging option")
		}
		return nil
	})
}

// List returns the options ranked by vote score.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]Record, error) {
	recs, err := s.ch.List(ctx, actor.TripGroup)
	if err != nil {
		return nil, err
	}
	Rank(recs)
	return recs, nil
}

func (s *Service) Subscribe(ctx context.Context, actor domain.Actor, onData func([]Record), onError func(error)) (docstore.Unsubscribe, error) {
	return s.ch.Subscribe(ctx, actor.TripGroup, func(recs []Record) {
		Rank(recs)
		onData(recs)
	}, onError)
}

// Rank orders by score descending, then by creation time.
func Rank(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	domain.RankByScore(recs, func(r Record) domain.Votes { return r.Value.Votes })
}
