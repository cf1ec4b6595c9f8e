package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one message of a stream. Data holds the raw view payload.
type Frame struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Watch streams collection snapshots to onFrame until ctx is done, the server closes the
// connection or onFrame returns an error. A context cancellation is not an error.
func (c *Client) Watch(ctx context.Context, collection string, onFrame func(Frame) error) error {
	wsURL, err := streamURL(c.baseURL, collection)
	if err != nil {
		return err
	}
	hdr := http.Header{}
	if c.token != "" {
		hdr.Set("Authorization", "Bearer "+c.token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment}
	conn, res, err := dialer.DialContext(ctx, wsURL, hdr)
	if err != nil {
		if res != nil {
			defer func() {
				_ = res.Body.Close()
			}()
			return decodeError(res)
		}
		return fmt.Errorf("error dialing ws: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if err := onFrame(f); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
}

// ErrStopWatching ends Watch without an error when returned from onFrame.
var ErrStopWatching = errors.New("stop watching")

func streamURL(baseURL, collection string) (string, error) {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/v1/stream/" + escape(collection), nil
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/v1/stream/" + escape(collection), nil
	default:
		return "", fmt.Errorf("server url must start with http:// or https:// (got %q)", baseURL)
	}
}
