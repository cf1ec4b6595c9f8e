package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/cmd/api/fx/servicesfx"
	"github.com/pixeltrip/tripboard/cmd/api/fx/storagefx"
	"github.com/pixeltrip/tripboard/internal/adapters/httpapi"
	"github.com/pixeltrip/tripboard/internal/app/identity"
	"github.com/pixeltrip/tripboard/internal/platform/auth/sessiontoken"
	platformclock "github.com/pixeltrip/tripboard/internal/platform/clock"
	"github.com/pixeltrip/tripboard/internal/platform/config"
	"github.com/pixeltrip/tripboard/internal/platform/logging"
	"github.com/pixeltrip/tripboard/internal/ports/out/clock"
	"github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
)

func main() {
	configFile := flag.String("config", os.Getenv("TRIPBOARD_CONFIG"), "path to a TOML config file")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger { return &fxevent.ZapLogger{Logger: logger.Named("fx")} }),
		fx.Supply(cfg, logger),
		fx.Provide(func() clock.Clock { return platformclock.NewSystemClock() }),
		storagefx.Module,
		servicesfx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)
	app.Run()
}

func ProvideRouter(
	cfg config.Config,
	svcs httpapi.Services,
	tokens *sessiontoken.Manager,
	resolver *identity.Resolver,
	idem idempotency.Store,
	clk clock.Clock,
	logger *zap.Logger,
) http.Handler {
	api := httpapi.NewServer(svcs, httpapi.ServerOptions{
		Tokens:         tokens,
		Invites:        resolver,
		Idem:           idem,
		Clock:          clk,
		PublicURL:      cfg.HTTP.PublicURL,
		Log:            logger.Named("httpapi"),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	return httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(tokens, svcs.Participants),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Log:            logger.Named("http"),
	})
}

func StartServer(lc fx.Lifecycle, cfg config.Config, handler http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			go func() {
				logger.Info("api listening", zap.String("addr", ln.Addr().String()), zap.String("storage", cfg.Storage))
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("serve", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down")
			return srv.Shutdown(ctx)
		},
	})
}
