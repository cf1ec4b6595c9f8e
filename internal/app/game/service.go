// Package game is the truth-or-dare deck: built-in questions plus custom ones added by the
// group, one collection per kind.
package game

import (
	"context"
	"math/rand/v2"
	"net/http"
	"unicode/utf8"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

const maxQuestionLength = 280

type Record = channel.Record[domain.GameQuestion]

// Question is a drawn question. ID is empty for built-in questions.
type Question struct {
	Kind   domain.QuestionKind `json:"kind"`
	Text   string              `json:"text"`
	ID     domain.RecordID     `json:"id,omitempty"`
	Custom bool                `json:"custom"`
}

type Service struct {
	truths *channel.Channel[domain.GameQuestion]
	dares  *channel.Channel[domain.GameQuestion]

	defaults map[domain.QuestionKind][]string
	pick     func(n int) int
}

func NewService(store docstore.Store) *Service {
	return &Service{
		truths: channel.New[domain.GameQuestion](store, domain.QuestionTruth.Collection()),
		dares:  channel.New[domain.GameQuestion](store, domain.QuestionDare.Collection()),
		defaults: map[domain.QuestionKind][]string{
			domain.QuestionTruth: defaultTruths,
			domain.QuestionDare:  defaultDares,
		},
		pick: rand.IntN,
	}
}

// SetPickForTest replaces the random index source.
// It should not be used in production code.
func (s *Service) SetPickForTest(fn func(n int) int) {
	if fn != nil {
		s.pick = fn
	}
}

// SetDefaultsForTest replaces the built-in questions of kind.
// It should not be used in production code.
func (s *Service) SetDefaultsForTest(kind domain.QuestionKind, questions []string) {
	s.defaults[kind] = questions
}

func (s *Service) deck(kind domain.QuestionKind) (*channel.Channel[domain.GameQuestion], error) {
	switch kind {
	case domain.QuestionTruth:
		return s.truths, nil
	case domain.QuestionDare:
		return s.dares, nil
	default:
		return nil, apperr.Validation("kind must be truth or dare", map[string]any{"field": "kind"})
	}
}

func (s *Service) Add(ctx context.Context, actor domain.Actor, kind domain.QuestionKind, text string) (domain.RecordID, error) {
	ch, err := s.deck(kind)
	if err != nil {
		return "", err
	}
	text = domain.NormalizeHumanName(text)
	if text == "" || utf8.RuneCountInString(text) > maxQuestionLength {
		return "", apperr.Validation("question text must be 1-280 characters", map[string]any{"field": "text"})
	}
	return ch.Add(ctx, actor.TripGroup, domain.GameQuestion{Authorship: domain.AuthorshipOf(actor), Text: text})
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, kind domain.QuestionKind, id domain.RecordID) error {
	ch, err := s.deck(kind)
	if err != nil {
		return err
	}
	return ch.DeleteIf(ctx, actor.TripGroup, id, func(r Record) error {
		if !domain.CanModify(actor, r.Value.AuthorID) {
			return apperr.PermissionDenied("only the author or an admin can delete this question")
		}
		return nil
	})
}

// List returns the custom questions of kind.
func (s *Service) List(ctx context.Context, actor domain.Actor, kind domain.QuestionKind) ([]Record, error) {
	ch, err := s.deck(kind)
	if err != nil {
		return nil, err
	}
	return ch.List(ctx, actor.TripGroup)
}

func (s *Service) Subscribe(ctx context.Context, actor domain.Actor, kind domain.QuestionKind, onData func([]Record), onError func(error)) (docstore.Unsubscribe, error) {
	ch, err := s.deck(kind)
	if err != nil {
		return nil, err
	}
	return ch.Subscribe(ctx, actor.TripGroup, onData, onError)
}

// Draw picks uniformly from the built-in and custom questions of kind.
func (s *Service) Draw(ctx context.Context, actor domain.Actor, kind domain.QuestionKind) (Question, error) {
	custom, err := s.List(ctx, actor, kind)
	if err != nil {
		return Question{}, err
	}
	builtin := s.defaults[kind]
	n := len(builtin) + len(custom)
	if n == 0 {
		return Question{}, &apperr.Error{Status: http.StatusNotFound, Code: apperr.CodeNoQuestions, Message: "No questions available"}
	}
	i := s.pick(n)
	if i < len(builtin) {
		return Question{Kind: kind, Text: builtin[i]}, nil
	}
	r := custom[i-len(builtin)]
	return Question{Kind: kind, Text: r.Value.Text, ID: r.ID, Custom: true}, nil
}
