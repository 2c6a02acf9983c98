package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/adapters/directory"
	router "github.com/avail-chat/signaling/internal/adapters/http"
	wssignal "github.com/avail-chat/signaling/internal/adapters/signal"
	"github.com/avail-chat/signaling/internal/app"
	"github.com/avail-chat/signaling/internal/auth"
	"github.com/avail-chat/signaling/internal/config"
	"github.com/avail-chat/signaling/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret is required")
	}

	dir := directory.NewClient(cfg.DirectoryURL, cfg.DirectoryToken, cfg.DirectoryTO)

	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    core.NewRoomRegistry(),
		Members:  dir,
		Profiles: dir,
	}
	ctrl := wssignal.NewController(orch, auth.NewVerifier(cfg.Secret), cfg)

	r := router.SetupRouter(ctx, cfg, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
