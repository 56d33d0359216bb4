package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetopt/internal/api"
	"fleetopt/internal/config"
	"fleetopt/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Solving
	mux.HandleFunc("/v1/solve", srv.SolveHandler)
	mux.HandleFunc("/v1/runs", srv.RunsHandler)
	mux.HandleFunc("/v1/runs/", srv.RunByIDHandler) // includes /metrics and /stream

	// Health
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)

	// Observability
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debugz", srv.DebugJSON)

	addr := ":" + strconv.Itoa(cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(api.MetricsMiddleware(srv.RateLimitMiddleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	worker := srv.NewWebhookWorker()
	worker.Start()

	go func() {
		log.Printf("API listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}
