package main

import (
	"context"

	"github.com/spf13/afero"

	"fotozip/internal/config"
	"fotozip/internal/logging"
	"fotozip/internal/server"
	"fotozip/internal/services"
)

func main() {
	logging.CreateLogger()

	cfg := config.LoadConfig()
	logging.Info("starting server",
		"port", cfg.ServerPort,
		"backend", cfg.StorageBackend,
		"dataDir", cfg.DataDir)

	store, err := newStore(cfg)
	if err != nil {
		logging.Fatal("failed to initialize storage", "error", err)
	}

	registry := services.NewSessionRegistry()
	uploads := services.NewUploadService(store)
	zips := services.NewDefaultZipService(store)
	media := services.NewGraphMediaFetcher(cfg.GraphAPIBaseURL, cfg.WhatsAppAPIToken)

	sweeper := services.NewRetentionSweeper(store, cfg.RetentionMaxAge, cfg.RetentionInterval)
	go sweeper.Run(context.Background())

	srv := server.New(cfg, store, registry, uploads, zips, media)
	router := srv.Router()

	logging.Info("server listening", "addr", ":"+cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		logging.Fatal("server stopped", "error", err)
	}
}

// newStore selects the blob store backend from configuration.
func newStore(cfg *config.Config) (services.BlobStore, error) {
	if cfg.StorageBackend == "minio" {
		return services.NewMinioStore(cfg)
	}
	return services.NewLocalStore(afero.NewOsFs(), cfg.DataDir)
}
