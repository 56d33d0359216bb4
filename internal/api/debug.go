package api

import (
	"encoding/json"
	"net/http"
	"time"

	"fleetopt/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"port":             s.Cfg.Port,
			"authMode":         s.Cfg.Auth.Mode,
			"rateRps":          s.Cfg.Rate.RPS,
			"rateBurst":        s.Cfg.Rate.Burst,
			"solveThreads":     s.Cfg.Solve.Threads,
			"solveExploration": s.Cfg.Solve.ExplorationLevel,
			"solveTimeLimit":   s.Cfg.Solve.TimeLimit.String(),
			"hasDatabaseUrl":   s.Cfg.DatabaseURL != "",
			"hasRedisUrl":      s.Cfg.RedisURL != "",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
