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

	router "github.com/talkiehq/talkie/internal/adapters/http"
	"github.com/talkiehq/talkie/internal/auth"
	"github.com/talkiehq/talkie/internal/channel"
	"github.com/talkiehq/talkie/internal/config"
	"github.com/talkiehq/talkie/internal/hub"
	"github.com/talkiehq/talkie/internal/metrics"
	"github.com/talkiehq/talkie/internal/session"
	"github.com/talkiehq/talkie/internal/store"
	"github.com/talkiehq/talkie/internal/transmit"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	directory := channel.NewDirectory()
	seedDirectory(ctx, cfg, directory)

	h := &hub.Hub{
		Registry:   session.NewRegistry(),
		Directory:  directory,
		Arbiter:    transmit.NewArbiter(),
		Verifier:   auth.NewHTTPVerifier(cfg.AuthURL, cfg.AuthAnonKey),
		Metrics:    metrics.New(),
		AuthGrace:  cfg.AuthGrace,
		PingPeriod: cfg.PingPeriod,
	}
	go h.Run(ctx)

	r := router.SetupRouter(ctx, cfg, h)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("talkie server started")
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

// seedDirectory pulls the persisted channel list; any failure falls back to
// the built-in defaults so the server never starts with zero channels.
func seedDirectory(ctx context.Context, cfg *config.Config, directory *channel.Directory) {
	if cfg.ChannelsURL == "" {
		directory.Load(nil)
		return
	}
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	seeds, err := store.NewHTTPLoader(cfg.ChannelsURL).LoadChannels(loadCtx)
	if err != nil {
		log.Warn().Err(err).Msg("channel snapshot unavailable")
	}
	directory.Load(seeds)
}
