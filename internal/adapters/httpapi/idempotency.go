package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// createIdempotent runs create and writes its result as 201. With an Idempotency-Key header:
// - a retry with the same actor, key, route and body replays the stored response
// - the same key with a different body is rejected with 409
func (s *Server) createIdempotent(w http.ResponseWriter, r *http.Request, actor domain.Actor, route string, canon any, create func() (any, error)) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" || s.idem == nil {
		resp, err := create()
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	ctx := r.Context()
	bodyHash, err := hashBody(canon)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:         idempotency.Key(key),
		TripGroup:   actor.TripGroup,
		Participant: actor.ParticipantID,
		Method:      r.Method,
		Route:       route,
		BodyHash:    "",
	}
	if meta, ok, err := s.idem.Get(ctx, metaFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		_ = s.idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.now(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.idem.Get(ctx, respFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	resp, err := create()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b = append(b, '\n')
	_ = s.idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  http.StatusCreated,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(b)
}

func hashBody(canon any) (string, error) {
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
