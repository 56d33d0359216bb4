package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/store"
)

func dialStream(t *testing.T, ts *httptest.Server, runID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/runs/" + runID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readStream(t *testing.T, conn *websocket.Conn) streamMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestRunStreamDeliversEvents(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	run := store.Run{ID: "run-stream", Status: store.RunRunning}
	require.NoError(t, s.Store.CreateRun(context.Background(), run))

	conn := dialStream(t, ts, run.ID)
	defer func() { _ = conn.Close() }()

	msg := readStream(t, conn)
	assert.Equal(t, "run.snapshot", msg.Type)

	s.Broker.Publish(run.ID, Event{Type: "run.done", Data: map[string]any{"cost": int64(45)}})

	msg = readStream(t, conn)
	require.Equal(t, "run.done", msg.Type)
	var data map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, float64(45), data["cost"])

	// Server closes the stream after the terminal event.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestRunStreamReplaysTerminalState(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	run := store.Run{ID: "run-done", Status: store.RunDone}
	require.NoError(t, s.Store.CreateRun(context.Background(), run))

	conn := dialStream(t, ts, run.ID)
	defer func() { _ = conn.Close() }()

	msg := readStream(t, conn)
	assert.Equal(t, "run.snapshot", msg.Type)
	var data map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, store.RunDone, data["status"])
}

func TestRunStreamUnknownRun(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/runs/missing/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
