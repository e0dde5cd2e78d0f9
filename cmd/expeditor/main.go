package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"expeditor/internal/api"
	"expeditor/internal/config"
	"expeditor/internal/kitchen"
	"expeditor/internal/monitoring"
	"expeditor/internal/session"
)

var (
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	apiURL      = flag.String("api", "", "POS backend base URL (overrides config)")
	interval    = flag.Duration("interval", 0, "Polling interval (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *interval > 0 {
		cfg.Sync.Interval = *interval
	}
	if *metricsPort > 0 {
		cfg.MetricsConfig.Port = *metricsPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := session.NewStore(cfg.Session.TokenFile)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}

	client := api.NewClient(cfg.API.BaseURL, store)
	client.SetHTTPClient(&http.Client{Timeout: cfg.API.Timeout})
	client.OnAuthFailure(store.HandleAuthFailure)

	collector := monitoring.NewCollector()
	if cfg.MetricsConfig.Enabled {
		go startMetricsServer(collector, cfg.MetricsConfig.Port, cfg.MetricsConfig.Path)
	}

	loop := kitchen.NewLoop(client, cfg.Sync.Interval, collector)
	loop.Start(ctx)

	program := tea.NewProgram(initialModel(client, store, loop))
	store.OnExpired(func() {
		program.Send(sessionExpiredMsg{})
	})

	if _, err := program.Run(); err != nil {
		log.Printf("UI error: %v", err)
	}

	// Tear the loop down before exiting so an in-flight poll can't touch a
	// dead display.
	loop.Stop()
	done := make(chan struct{})
	go func() {
		loop.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Println("Timed out waiting for sync loop shutdown")
	}

	os.Exit(0)
}

func startMetricsServer(collector *monitoring.Collector, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, collector.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	log.Printf("Starting metrics server on port %d", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("Metrics server error: %v", err)
	}
}
