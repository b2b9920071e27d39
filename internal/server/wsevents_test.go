package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

// readSSEState returns the payload of the next "state" event.
func readSSEState(t *testing.T, rd *bufio.Reader) StateResponse {
	t.Helper()
	var event string
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "state":
			var st StateResponse
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st))
			return st
		}
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	token := env.start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/game/events?token="+token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	initial := readSSEState(t, rd)
	assert.Equal(t, hunt.StageAwaitingArrival, initial.Stage)

	w := env.do(t, http.MethodPost, "/api/game/arrive", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	next := readSSEState(t, rd)
	assert.Equal(t, hunt.StageAwaitingPuzzle, next.Stage)
	require.NotNil(t, next.Puzzle)
}

func TestEventsRequireToken(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/game/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGameWS(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	token := env.start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/game/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	read := func() StateResponse {
		t.Helper()
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, websocket.MessageText, typ)
		var st StateResponse
		require.NoError(t, json.Unmarshal(data, &st))
		return st
	}

	initial := read()
	assert.Equal(t, token, initial.SessionID)
	assert.Equal(t, hunt.StageAwaitingArrival, initial.Stage)

	w := env.do(t, http.MethodPost, "/api/game/arrive", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	next := read()
	assert.Equal(t, hunt.StageAwaitingPuzzle, next.Stage)

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestBrokerDropsSlowSubscribers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("s1")
	other := b.Subscribe("s2")

	for i := 0; i < 20; i++ {
		b.Publish("s1", map[string]int{"n": i})
	}
	assert.Len(t, ch, 16)
	assert.Empty(t, other)

	b.Unsubscribe("s1", ch)
	b.Publish("s1", "ignored")
	assert.Len(t, ch, 16)
}
