// Reactord is the bench daemon. It holds the TCP connection to the firmware
// bridge, decodes the mixed binary/text stream, and serves the HTTP API and
// WebSocket event feed that rctl and dashboards consume.
package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/reactorctl/internal/config"
	"github.com/danmuck/reactorctl/internal/monitor"
	"github.com/danmuck/reactorctl/internal/names"
	"github.com/danmuck/reactorctl/internal/observability"
	"github.com/danmuck/reactorctl/internal/server"
	"github.com/danmuck/reactorctl/internal/ws"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to reactord.toml")
	pflag.Parse()

	logger := observability.InitLogger("reactord")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
		log.Info().Str("path", *configPath).Msg("loaded config")
	}

	registry := names.NewRegistry()
	if cfg.NamesFile != "" {
		if err := registry.LoadFile(cfg.NamesFile); err != nil {
			log.Fatal().Err(err).Msg("failed to load names file")
		}
		log.Info().Str("path", cfg.NamesFile).Msg("loaded name table")
	}

	conn, err := net.Dial("tcp", cfg.BridgeAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.BridgeAddr).Msg("failed to reach bridge")
	}
	log.Info().Str("addr", cfg.BridgeAddr).Msg("connected to bridge")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	mon := monitor.New(conn, monitor.Options{
		Registry:    registry,
		Broadcaster: hub,
		EventBuffer: cfg.EventBuffer,
		Logger:      logger,
	})
	go func() {
		if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("bridge session ended")
		}
	}()

	srv := server.New(cfg.Name, cfg.Addr, cfg.CorsOrigins, cfg.APIToken, mon, hub)
	log.Info().Str("name", cfg.Name).Str("addr", cfg.Addr).Msg("reactord started")
	if err := srv.Serve(); err != nil {
		log.Fatal().Err(err).Msg("reactord stopped")
	}
}
