package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

type lodgingFrame struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	Data       struct {
		Items []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"items"`
	} `json:"data"`
}

func dialStream(t *testing.T, srv *httptest.Server, collection, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream/" + collection + "?token=" + token
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", collection, err, status)
	}
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, v), string(msg))
}

func TestStream_PushesSnapshots(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	srv := httptest.NewServer(e.h)
	defer srv.Close()
	token, _ := e.join(t, testInvite, "Ana")

	ws := dialStream(t, srv, "lodging", token)

	var f lodgingFrame
	readFrame(t, ws, &f)
	assert.Equal(t, "snapshot", f.Type)
	assert.Equal(t, "lodging", f.Collection)
	assert.Empty(t, f.Data.Items)

	rec := e.do(t, http.MethodPost, "/v1/lodging", token, CreateLodgingRequest{Link: "https://stay.example", Title: "Cabin"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	readFrame(t, ws, &f)
	require.Len(t, f.Data.Items, 1)
	assert.Equal(t, "Cabin", f.Data.Items[0].Title)

	ref := docstore.Ref{Group: "SUMMER_HOUSE", Collection: domain.CollectionLodging}
	assert.Equal(t, 1, e.store.Subscribers(ref))
	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return e.store.Subscribers(ref) == 0 }, 5*time.Second, 10*time.Millisecond,
		"closing the socket must release the subscription")
}

func TestStream_TripTitle(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	srv := httptest.NewServer(e.h)
	defer srv.Close()
	token, _ := e.join(t, testAdmin, "")

	ws := dialStream(t, srv, "trip", token)
	defer ws.Close()

	var f struct {
		Data TripResponse `json:"data"`
	}
	readFrame(t, ws, &f)
	assert.Equal(t, domain.DefaultTripTitle, f.Data.Title)

	rec := e.do(t, http.MethodPut, "/v1/trip/title", token, RenameTripRequest{Title: "Lake"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	readFrame(t, ws, &f)
	assert.Equal(t, "Lake", f.Data.Title)
}

func TestStream_Rejections(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	srv := httptest.NewServer(e.h)
	defer srv.Close()
	token, _ := e.join(t, testInvite, "Ana")

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream/"
	_, resp, err := websocket.DefaultDialer.Dial(base+"lodging", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"nope?token="+token, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	rec := e.do(t, http.MethodGet, "/v1/lodging?token="+token, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "query tokens are only accepted on websocket upgrades")
}
