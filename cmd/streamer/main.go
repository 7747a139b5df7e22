package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/wsstream/internal/adapters/http"
	"github.com/dkeye/wsstream/internal/adapters/ws"
	"github.com/dkeye/wsstream/internal/config"
	"github.com/dkeye/wsstream/internal/stream"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return 1
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	uri, err := cfg.ParsedURL()
	if err != nil {
		log.Error().Err(err).Msg("invalid url")
		return 1
	}

	logger := log.Logger
	sess := stream.New(ws.Factory{Logger: &logger}, cfg.TransportOptions(), &logger)
	sess.OnOpened(func(context.Context) error {
		log.Info().Str("module", "main").Str("sid", sess.ID()).Msg("stream opened")
		return nil
	})
	sess.OnMessage(func(_ context.Context, text string) error {
		log.Info().Str("module", "main").Str("sid", sess.ID()).Str("text", text).Msg("message")
		return nil
	})
	sess.OnClosed(func(context.Context) error {
		log.Info().Str("module", "main").Str("sid", sess.ID()).Msg("stream closed")
		return nil
	})

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{
			Addr:    cfg.StatusAddr,
			Handler: router.SetupRouter(cfg, sess),
		}
		go func() {
			log.Info().Str("addr", cfg.StatusAddr).Msg("status server started")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("status server error")
			}
		}()
	}

	code := 0
	if err := sess.Stream(ctx, uri); err != nil {
		var ce *stream.ConnectError
		if errors.As(err, &ce) {
			log.Error().Err(err).Msg("stream failed")
		} else {
			log.Warn().Err(err).Msg("stream not started")
		}
		code = 1
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("status server forced to shutdown")
		}
	}
	log.Info().Msg("streamer exited")
	return code
}
