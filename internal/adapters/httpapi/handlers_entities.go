package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/oapi-codegen/nullable"

	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/lodging"
	"github.com/pixeltrip/tripboard/internal/app/patch"
	"github.com/pixeltrip/tripboard/internal/domain"
)

// Lodging

func (s *Server) listLodging(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	recs, err := s.Lodging.List(r.Context(), actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(recs))
}

func (s *Server) createLodging(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req CreateLodgingRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	canon := req
	canon.Link = strings.TrimSpace(canon.Link)
	canon.Title = domain.NormalizeHumanName(canon.Title)
	s.createIdempotent(w, r, actor, "/v1/lodging", canon, func() (any, error) {
		id, err := s.Lodging.Add(r.Context(), actor, lodging.AddInput{
			Link:        req.Link,
			Title:       req.Title,
			Description: req.Description,
			Price:       req.Price,
			Rating:      req.Rating,
			ReviewCount: req.ReviewCount,
			Bedrooms:    req.Bedrooms,
			Bathrooms:   req.Bathrooms,
			Guests:      req.Guests,
		})
		return CreatedResponse{Id: string(id)}, err
	})
}

func (s *Server) voteLodging(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req VoteRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	if err := s.Lodging.Vote(r.Context(), actor, id, domain.VoteKind(req.Vote)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) commentLodging(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	if err := s.Lodging.Comment(r.Context(), actor, id, req.Text); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteLodging(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.Lodging.Delete)
}

// Expenses

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	recs, err := s.Expenses.List(r.Context(), actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(recs))
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req CreateExpenseRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	split := make([]domain.ParticipantID, 0, len(req.SplitBetween))
	for _, id := range req.SplitBetween {
		split = append(split, domain.ParticipantID(strings.TrimSpace(id)))
	}
	canon := req
	canon.Description = domain.NormalizeHumanName(canon.Description)
	s.createIdempotent(w, r, actor, "/v1/expenses", canon, func() (any, error) {
		id, err := s.Expenses.Add(r.Context(), actor, expenses.AddInput{
			Description:  req.Description,
			Amount:       req.Amount,
			PaidBy:       domain.ParticipantID(strings.TrimSpace(req.PaidBy)),
			SplitBetween: split,
		})
		return CreatedResponse{Id: string(id)}, err
	})
}

func (s *Server) expenseBalances(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	bs, err := s.Expenses.Balances(r.Context(), actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[expenses.Balance]{Items: bs})
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.Expenses.Delete)
}

// Food

func (s *Server) foodBoard(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	b, err := s.Food.Board(r.Context(), actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createFood(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req CreateFoodRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	canon := req
	canon.Name = domain.NormalizeHumanName(canon.Name)
	s.createIdempotent(w, r, actor, "/v1/food", canon, func() (any, error) {
		id, err := s.Food.Add(r.Context(), actor, food.AddInput{
			Name:        req.Name,
			Description: req.Description,
			WantedBy:    req.WantedBy,
			Type:        domain.FoodType(req.Type),
		})
		return CreatedResponse{Id: string(id)}, err
	})
}

func (s *Server) updateFood(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req UpdateFoodRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	err := s.Food.Update(r.Context(), actor, id, food.UpdateInput{
		Completed: optionalFromNullable(req.Completed),
		Comment:   optionalFromNullable(req.Comment),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteFood(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.Food.Delete)
}

// Activities

func (s *Server) activityBoard(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	b, err := s.Activities.Board(r.Context(), actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req CreateActivityRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	canon := req
	canon.Name = domain.NormalizeHumanName(canon.Name)
	s.createIdempotent(w, r, actor, "/v1/activities", canon, func() (any, error) {
		id, err := s.Activities.Add(r.Context(), actor, activities.AddInput{
			Name:          req.Name,
			Location:      req.Location,
			PreferredDate: req.PreferredDate,
			Link:          req.Link,
			SuggestedBy:   req.SuggestedBy,
		})
		return CreatedResponse{Id: string(id)}, err
	})
}

func (s *Server) updateActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req UpdateActivityRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	err := s.Activities.Update(r.Context(), actor, id, activities.UpdateInput{
		Completed: optionalFromNullable(req.Completed),
		Confirmed: optionalFromNullable(req.Confirmed),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	s.deleteRecord(w, r, s.Activities.Delete)
}

// Game

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	kind, ok := questionKind(w, r)
	if !ok {
		return
	}
	recs, err := s.Game.List(r.Context(), actor, kind)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(recs))
}

func (s *Server) createQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	kind, ok := questionKind(w, r)
	if !ok {
		return
	}
	var req CreateQuestionRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	canon := struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	}{string(kind), domain.NormalizeHumanName(req.Text)}
	s.createIdempotent(w, r, actor, "/v1/game/{kind}/questions", canon, func() (any, error) {
		id, err := s.Game.Add(r.Context(), actor, kind, req.Text)
		return CreatedResponse{Id: string(id)}, err
	})
}

func (s *Server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	kind, ok := questionKind(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := s.Game.Delete(r.Context(), actor, kind, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) drawQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	kind, ok := questionKind(w, r)
	if !ok {
		return
	}
	q, err := s.Game.Draw(r.Context(), actor, kind)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// deleteRecord handles DELETE on an authored record. Deleting an absent record is a no-op.
func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, del func(context.Context, domain.Actor, domain.RecordID) error) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := del(r.Context(), actor, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalFromNullable[T any](n nullable.Nullable[T]) patch.Optional[T] {
	if !n.IsSpecified() {
		return patch.Unspecified[T]()
	}
	if n.IsNull() {
		return patch.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return patch.Unspecified[T]()
	}
	return patch.Some(v)
}
