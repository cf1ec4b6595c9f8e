package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/game"
	"github.com/pixeltrip/tripboard/internal/app/lodging"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// StreamFrame is one server-to-client websocket message.
type StreamFrame struct {
	Type       string       `json:"type"`
	Collection string       `json:"collection"`
	Data       any          `json:"data,omitempty"`
	Error      *StreamError `json:"error,omitempty"`
}

type StreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type streamSource func(ctx context.Context, actor domain.Actor, onData func(any), onError func(error)) (docstore.Unsubscribe, error)

func source[T any](sub func(context.Context, domain.Actor, func(T), func(error)) (docstore.Unsubscribe, error), view func(T) any) streamSource {
	return func(ctx context.Context, actor domain.Actor, onData func(any), onError func(error)) (docstore.Unsubscribe, error) {
		return sub(ctx, actor, func(v T) { onData(view(v)) }, onError)
	}
}

// StreamCollections lists the names accepted by /v1/stream/{collection}.
var StreamCollections = []string{"participants", "trip", "lodging", "expenses", "food", "activities", "truths", "dares"}

func (s *Server) streamSources() map[string]streamSource {
	questions := func(kind domain.QuestionKind) streamSource {
		return source(func(ctx context.Context, a domain.Actor, onData func([]game.Record), onError func(error)) (docstore.Unsubscribe, error) {
			return s.Game.Subscribe(ctx, a, kind, onData, onError)
		}, func(recs []game.Record) any { return items(recs) })
	}
	return map[string]streamSource{
		"participants": source(s.Participants.Subscribe, func(ps []domain.Participant) any {
			return ParticipantsResponse{Participants: participantsFromDomain(ps)}
		}),
		"trip": func(ctx context.Context, a domain.Actor, onData func(any), onError func(error)) (docstore.Unsubscribe, error) {
			return s.Participants.SubscribeTitle(ctx, a, func(title string) {
				onData(TripResponse{TripGroup: string(a.TripGroup), Title: title})
			}, onError)
		},
		"lodging":    source(s.Lodging.Subscribe, func(recs []lodging.Record) any { return items(recs) }),
		"expenses":   source(s.Expenses.Subscribe, func(recs []expenses.Record) any { return items(recs) }),
		"food":       source(s.Food.Subscribe, func(b food.Board) any { return b }),
		"activities": source(s.Activities.Subscribe, func(b activities.Board) any { return b }),
		"truths":     questions(domain.QuestionTruth),
		"dares":      questions(domain.QuestionDare),
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.allowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin)
}

// stream pushes the latest snapshot of one collection over a websocket until either side
// closes. The subscription is released on every exit path.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	name, ok := pathParam[string](w, r, "collection")
	if !ok {
		return
	}
	src, ok := s.streamSources()[name]
	if !ok {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "unknown collection", map[string]any{"collection": name, "known": StreamCollections})
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	c := &streamConn{ws: ws, collection: name, latest: make(chan []byte, 1), log: s.log}
	unsub, err := src(ctx, actor, c.snapshot, c.fail)
	if err != nil {
		c.fail(err)
		c.flushAndClose()
		return
	}
	defer unsub()

	s.log.Debug("stream opened", zap.String("collection", name), zap.String("participant", string(actor.ParticipantID)))
	go c.readPump(cancel)
	c.writePump(ctx)
	s.log.Debug("stream closed", zap.String("collection", name), zap.String("participant", string(actor.ParticipantID)))
}

type streamConn struct {
	ws         *websocket.Conn
	collection string
	latest     chan []byte
	log        *zap.Logger
}

func (c *streamConn) snapshot(data any) {
	c.offer(StreamFrame{Type: "snapshot", Collection: c.collection, Data: data})
}

func (c *streamConn) fail(err error) {
	se := &StreamError{Code: apperr.CodeSyncFailure, Message: "trip data is temporarily unavailable"}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		se.Code, se.Message = ae.Code, ae.Message
	}
	c.offer(StreamFrame{Type: "error", Collection: c.collection, Error: se})
}

// offer replaces any frame not yet written, so a slow client only ever receives the newest.
func (c *streamConn) offer(f StreamFrame) {
	b, err := json.Marshal(f)
	if err != nil {
		c.log.Error("encode stream frame", zap.Error(err))
		return
	}
	for {
		select {
		case c.latest <- b:
			return
		default:
			select {
			case <-c.latest:
			default:
			}
		}
	}
}

// readPump discards client messages and keeps the read deadline fresh on pongs.
func (c *streamConn) readPump(cancel context.CancelFunc) {
	defer cancel()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("stream read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *streamConn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.latest:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("stream write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flushAndClose writes a pending frame, if any, and closes the connection.
func (c *streamConn) flushAndClose() {
	select {
	case frame := <-c.latest:
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.TextMessage, frame)
	default:
	}
	_ = c.ws.Close()
}
