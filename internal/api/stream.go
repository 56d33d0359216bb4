package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fleetopt/internal/store"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type streamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RunStreamHandler upgrades GET /v1/runs/{id}/stream to a websocket and
// forwards run events until the run finishes or the client goes away. A run
// that is already terminal gets its final state replayed immediately.
func (s *Server) RunStreamHandler(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	run, err := s.Store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	write := func(typ string, data any) error {
		b, _ := json.Marshal(data)
		return conn.WriteJSON(streamMessage{Type: typ, Data: b})
	}

	// Subscribe before the snapshot so no event falls between them.
	ch := s.Broker.Subscribe(runID)
	defer s.Broker.Unsubscribe(runID, ch)

	_ = write("run.snapshot", map[string]any{"runId": run.ID, "status": run.Status})
	if run.Status == store.RunDone || run.Status == store.RunFailed {
		return
	}

	// Drain client frames so pongs and close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt.Type, evt.Data); err != nil {
				return
			}
			if evt.Type == "run.done" || evt.Type == "run.failed" {
				return
			}
		}
	}
}
