package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/luca-ts/impostor-backend/internal/archive"
	"github.com/luca-ts/impostor-backend/internal/config"
	"github.com/luca-ts/impostor-backend/internal/game"
	"github.com/luca-ts/impostor-backend/internal/server"
	"github.com/luca-ts/impostor-backend/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[main] no .env file loaded: %v", err)
	}
	cfg := config.Load()

	words, err := utils.ReadWordCSV(cfg.WordsFile)
	if err != nil {
		log.Fatalf("[main] failed to load word list from %s: %v", cfg.WordsFile, err)
	}
	log.Printf("[main] loaded %d word pairs from %s", len(words), cfg.WordsFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var record game.RecordFunc
	if cfg.DatabaseURL != "" {
		store, err := archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[main] failed to open results archive: %v", err)
		}
		defer store.Close()
		record = store.RecordGame
	} else {
		log.Printf("[main] DATABASE_URL not set, results archive disabled")
	}

	engine := game.NewEngine(words, record)
	go engine.Run(ctx)

	srv := server.NewServer(cfg, engine)
	go func() {
		log.Printf("[main] listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}
