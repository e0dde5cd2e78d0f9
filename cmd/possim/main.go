package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expeditor/internal/simulator"
)

var (
	port   = flag.Int("port", 8080, "Simulator server port")
	dbPath = flag.String("db", "possim.db", "Path to the sqlite database")
	seed   = flag.Bool("seed", true, "Seed the database with sample orders")
)

func main() {
	flag.Parse()

	store, err := simulator.OpenStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	if *seed {
		if err := store.Seed(time.Now()); err != nil {
			log.Printf("Seed skipped: %v", err)
		}
	}

	sim := simulator.NewServer(store)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: sim.Router(),
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down simulator...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("POS simulator listening on port %d (db: %s)", *port, *dbPath)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
