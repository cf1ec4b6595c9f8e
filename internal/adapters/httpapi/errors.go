package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
)

func errorResponse(r *http.Request, code string, message string, details map[string]any) ErrorResponse {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	return er
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, errorResponse(r, code, message, details))
}

// writeAppError maps application errors to their status; anything else is a 500 and is logged.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Status >= http.StatusInternalServerError {
			s.log.Warn("request failed", zap.String("code", ae.Code), zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
		}
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	s.log.Error("unhandled error", zap.Error(err), zap.String("path", r.URL.Path), zap.String("request_id", middleware.GetReqID(r.Context())))
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
