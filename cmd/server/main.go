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

	"diceroom/internal/adapters"
	router "diceroom/internal/adapters/http"
	"diceroom/internal/app"
	"diceroom/internal/canvas"
	"diceroom/internal/config"
	"diceroom/internal/domain"
	"diceroom/internal/highlight"
	"diceroom/internal/results"
	"diceroom/internal/roll"
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
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	rolls := roll.NewProcessor(roll.Limits{
		MaxPhysicalDice:     cfg.MaxPhysicalDice,
		MaxTotalDice:        cfg.MaxTotalDice,
		ComplexityThreshold: cfg.ComplexityThreshold,
	})
	canv := canvas.NewManager()
	res := results.NewManager()
	highlights := highlight.NewManager(highlight.Config{
		Duration:      cfg.HighlightDuration,
		MaxHighlights: cfg.MaxHighlights,
		SweepInterval: cfg.HighlightSweepInterval,
	}, res, canv)

	svc := app.NewService(domain.DefaultRoom, rolls, canv, res, highlights, app.NewRegistry())

	hub := adapters.NewHub()
	svc.SubscribePush(func(p app.Push) { hub.BroadcastJSON(p) })

	go highlights.Run(ctx)

	r := router.SetupRouter(ctx, cfg, svc, hub)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("diceroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}
