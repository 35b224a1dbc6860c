package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/api"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// One process per data directory. Badger would also object, but a
	// clear message beats a cryptic LOCK error.
	guard := flock.New(filepath.Join(cfg.StorageDir, "forseti.lock"))
	held, err := guard.TryLock()
	if err != nil {
		logger.Error("data dir lock failed", slog.Any("err", err))
		os.Exit(1)
	}
	if !held {
		logger.Error("data dir is in use by another forseti process",
			slog.String("dir", cfg.StorageDir))
		os.Exit(1)
	}
	defer guard.Unlock()

	srv, err := api.NewServer(cfg, logger)
	if err != nil {
		logger.Error("startup failed", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}
