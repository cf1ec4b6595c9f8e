package httpapi

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/platform/qrcode"
)

const maxQRCodeSize = 1024

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	ps, err := s.Participants.List(r.Context(), actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ParticipantsResponse{Participants: participantsFromDomain(ps)})
}

func (s *Server) removeParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathParam[string](w, r, "participantId")
	if !ok {
		return
	}
	if err := s.Participants.Remove(r.Context(), actor, domain.ParticipantID(id)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	title, err := s.Participants.Title(r.Context(), actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{TripGroup: string(actor.TripGroup), Title: title})
}

func (s *Server) renameTrip(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req RenameTripRequest
	if _, ok := readBody(w, r, &req); !ok {
		return
	}
	if err := s.Participants.Rename(r.Context(), actor, req.Title); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.getTrip(w, r)
}

// inviteQRCode renders the group's join link. Admin only, since it reveals the invite code.
func (s *Server) inviteQRCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin {
		writeError(w, r, http.StatusForbidden, "PERMISSION_DENIED", "only admins can share the invite code", nil)
		return
	}
	size := qrcode.DefaultSize
	if err := runtime.BindQueryParameter("form", true, false, "size", r.URL.Query(), &size); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid size", map[string]any{"reason": err.Error()})
		return
	}
	if size <= 0 || size > maxQRCodeSize {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "size must be between 1 and 1024", map[string]any{"field": "size"})
		return
	}
	code, ok := s.invites.InviteCodeFor(actor.TripGroup)
	if !ok {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "this trip group has no invite code", nil)
		return
	}
	png, err := qrcode.PNG(qrcode.JoinURL(s.publicURL, code), size)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
