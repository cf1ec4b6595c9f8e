package servicesfx

import (
	"crypto/rand"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/adapters/httpapi"
	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/expenses"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/app/game"
	"github.com/pixeltrip/tripboard/internal/app/identity"
	"github.com/pixeltrip/tripboard/internal/app/lodging"
	"github.com/pixeltrip/tripboard/internal/app/participants"
	"github.com/pixeltrip/tripboard/internal/platform/auth/sessiontoken"
	"github.com/pixeltrip/tripboard/internal/platform/config"
	"github.com/pixeltrip/tripboard/internal/ports/out/clock"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

var Module = fx.Provide(
	provideResolver,
	provideTokens,
	provideServices,
)

func provideResolver(cfg config.Config) (*identity.Resolver, error) {
	return identity.NewResolver(cfg.Invites, cfg.AdminCodes)
}

func provideTokens(cfg config.Config, clk clock.Clock, log *zap.Logger) (*sessiontoken.Manager, error) {
	secret := cfg.Auth.TokenSecret
	if len(secret) == 0 {
		// Only reachable in development; config validation rejects it elsewhere.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		log.Warn("auth.token_secret is empty; sessions will not survive a restart")
	}
	return sessiontoken.NewWithOptions(sessiontoken.Config{
		Secret: secret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	}, clk)
}

func provideServices(store docstore.Store, resolver *identity.Resolver, clk clock.Clock) httpapi.Services {
	people := participants.NewService(store, resolver, clk)
	return httpapi.Services{
		Participants: people,
		Lodging:      lodging.NewService(store, clk),
		Expenses:     expenses.NewService(store, people.Channel()),
		Food:         food.NewService(store),
		Activities:   activities.NewService(store),
		Game:         game.NewService(store),
	}
}
