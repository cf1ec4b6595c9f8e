package httpapi

import (
	"net/http"

	"github.com/pixeltrip/tripboard/internal/app/participants"
	"github.com/pixeltrip/tripboard/internal/domain"
)

func (s *Server) resolveInvite(w http.ResponseWriter, r *http.Request) {
	var req ResolveInviteRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	p, err := s.Participants.Preview(r.Context(), req.Code)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	resp := ResolveInviteResponse{
		TripGroup:   string(p.Resolution.TripGroup),
		Description: p.Resolution.Description,
		Returning:   participantsFromDomain(p.Returning),
	}
	if a := p.Resolution.Admin; a != nil {
		resp.Admin = &AdminIdentity{ParticipantId: string(a.ParticipantID), Name: a.Name, Avatar: a.Avatar}
	}
	writeJSON(w, http.StatusOK, resp)
}

// createSession joins the trip group and issues a session token. Joining is an upsert, so
// it needs no idempotency key.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	p, err := s.Participants.Join(r.Context(), participants.JoinInput{
		Code:          req.Code,
		Name:          req.Name,
		Avatar:        req.Avatar,
		ParticipantID: domain.ParticipantID(req.ParticipantId),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	token, exp, err := s.tokens.Issue(domain.ActorFor(p))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		Token:       token,
		ExpiresAt:   exp,
		TripGroup:   string(p.TripGroup),
		Participant: participantFromDomain(p),
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		TripGroup: string(actor.TripGroup),
		Participant: Participant{
			ParticipantId: string(actor.ParticipantID),
			Name:          actor.Name,
			Avatar:        actor.Avatar,
			IsAdmin:       actor.IsAdmin,
		},
	})
}
