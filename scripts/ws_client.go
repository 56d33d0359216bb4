// Package main runs a demo client: it submits an async solve run and follows
// its event stream over WebSocket.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type streamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Submit a tiny two-job problem.
	body := []byte(`{
		"problem": {
			"jobs": [
				{"id": 1, "location_index": 1},
				{"id": 2, "location_index": 2}
			],
			"vehicles": [{"id": 1, "start_index": 0, "end_index": 0}],
			"matrices": {"car": {"durations": [[0,10,20],[10,0,15],[20,15,0]]}}
		},
		"options": {"timeLimitMs": 500}
	}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", "operator")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s (%s)", created.ID, created.Status)

	// Follow the run's stream.
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + created.ID + "/stream"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m streamMessage
			if err := c.ReadJSON(&m); err != nil {
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Data))
			if m.Type == "run.done" || m.Type == "run.failed" {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Print("timed out waiting for run to finish")
	}
}
