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
	"golang.org/x/sync/errgroup"

	router "github.com/studyhall/server/internal/adapters/http"
	ws "github.com/studyhall/server/internal/adapters/signal"
	"github.com/studyhall/server/internal/adapters/storage"
	"github.com/studyhall/server/internal/app"
	"github.com/studyhall/server/internal/app/orch"
	"github.com/studyhall/server/internal/auth"
	"github.com/studyhall/server/internal/config"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/identity"
)

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

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
	setupLogger(cfg)

	db, err := storage.Open(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("storage close")
		}
	}()

	rooms := storage.NewRoomRepository(db)
	messages := storage.NewMessageRepository(db, nil)
	users := storage.NewUserRepository(db)

	chain := identity.Chain{identity.NewLocal(users)}
	if cfg.Identity.BaseURL != "" {
		chain = append(chain, identity.NewRemote(cfg.Identity.BaseURL, cfg.Identity.Timeout))
	}
	names, err := identity.NewCached(chain, cfg.Identity.CacheTTL, cfg.Identity.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build identity cache")
	}
	defer names.Close()
	var resolver core.IdentityResolver = names

	// Properly wire orchestrator with room manager and policy.
	reg := app.NewRegistry()
	manager := app.NewRoomManager()
	o := &orch.Orchestrator{
		Registry:      reg,
		Rooms:         manager,
		Directory:     app.NewDirectory(rooms, messages, resolver, manager, reg, cfg.Identity.PlaceholderName),
		History:       app.NewHistory(messages, resolver, cfg.Identity.PlaceholderName, cfg.Chat.ReplayLimit),
		Policy:        app.SimplePolicy{},
		MaxMessageLen: cfg.Chat.MaxMessageLen,
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		Verifier: auth.NewVerifier(cfg.JWTSecret),
		Users:    users,
		Names:    names,
		Limiter:  ws.NewRoomRateLimiter(cfg.Chat.SendRPS, cfg.Chat.SendBurst),
		WS: ws.Options{
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
			PongWait:   cfg.PongWait,
			WriteWait:  cfg.WriteWait,
			SendBuffer: cfg.SendBuffer,
		},
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("studyhall server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("Server exited gracefully")
}
