package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Jukebox/internal/adapters/http"
	"github.com/dkeye/Jukebox/internal/adapters/local"
	"github.com/dkeye/Jukebox/internal/adapters/rtc"
	wsignal "github.com/dkeye/Jukebox/internal/adapters/signal"
	"github.com/dkeye/Jukebox/internal/app"
	"github.com/dkeye/Jukebox/internal/app/command"
	"github.com/dkeye/Jukebox/internal/app/orch"
	"github.com/dkeye/Jukebox/internal/app/playback"
	"github.com/dkeye/Jukebox/internal/app/sfu"
	"github.com/dkeye/Jukebox/internal/audio"
	"github.com/dkeye/Jukebox/internal/catalog"
	"github.com/dkeye/Jukebox/internal/config"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/discovery"
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
	switch cfg.Mode {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "release":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	library, err := catalog.NewLibrary(cfg.LibraryDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to index library")
	}
	if cfg.WatchLibrary {
		if err := library.Watch(); err != nil {
			log.Error().Err(err).Msg("library watch disabled")
		}
	}
	defer library.Close()

	var (
		sink   core.Sink
		relays *sfu.RelayManager
	)
	switch cfg.Sink {
	case config.SinkLocal:
		sink = local.NewSink(ctx)
	default:
		relays = sfu.NewRelayManager()
		sink = rtc.NewSink(relays, cfg.OpusBitrate)
	}

	presence := app.NewPresence()
	notifier := &wsignal.RoomNotifier{Presence: presence, Policy: app.SimplePolicy{}}
	streamer := audio.NewStreamer(audio.StreamerConfig{HTTPTimeout: cfg.HTTPTimeout})
	sessions := playback.NewRegistry(ctx, streamer, notifier, playback.Config{ConnectTimeout: cfg.ConnectTimeout})

	o := &orch.Orchestrator{
		Presence: presence,
		Sessions: sessions,
		Resolver: library,
		Sink:     sink,
		Relays:   relays,
	}
	ctl := &wsignal.SignalWSController{
		Orch:       o,
		Commands:   &command.Dispatcher{Prefix: cfg.CommandPrefix, Player: o},
		Limiter:    wsignal.NewRateLimiter(cfg.RateLimit, cfg.RateInterval),
		WebRTC:     rtc.WebRTCConfig(cfg.StunURLs),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}

	r := router.SetupRouter(ctx, cfg, o, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("sink", cfg.Sink).Msg("Jukebox server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	var advertiser *discovery.Advertiser
	if cfg.MDNS {
		advertiser, err = discovery.Advertise(discovery.Config{ServiceName: cfg.ServiceName, Port: cfg.Port})
		if err != nil {
			log.Error().Err(err).Msg("mDNS advertisement disabled")
		}
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if err := advertiser.Shutdown(); err != nil {
		log.Error().Err(err).Msg("mDNS shutdown")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sessions.Shutdown()
	log.Info().Msg("Server exited gracefully")
}
