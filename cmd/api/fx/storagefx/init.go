package storagefx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	memdocstore "github.com/pixeltrip/tripboard/internal/adapters/memory/docstore"
	memidempotency "github.com/pixeltrip/tripboard/internal/adapters/memory/idempotency"
	mongodocstore "github.com/pixeltrip/tripboard/internal/adapters/mongo/docstore"
	"github.com/pixeltrip/tripboard/internal/adapters/postgres"
	pgdocstore "github.com/pixeltrip/tripboard/internal/adapters/postgres/docstore"
	pgidempotency "github.com/pixeltrip/tripboard/internal/adapters/postgres/idempotency"
	"github.com/pixeltrip/tripboard/internal/platform/config"
	"github.com/pixeltrip/tripboard/internal/ports/out/clock"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
	"github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
)

const (
	connectTimeout = 15 * time.Second
	purgeInterval  = time.Hour
)

var Module = fx.Provide(provideStorage)

type Storage struct {
	fx.Out

	Docs docstore.Store
	Idem idempotency.Store
}

func provideStorage(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, log *zap.Logger) (Storage, error) {
	switch cfg.Storage {
	case config.BackendPostgres:
		return providePostgres(lc, cfg, log)
	case config.BackendMongo:
		return provideMongo(lc, cfg, log)
	default:
		log.Warn("using in-memory storage; data is lost on restart")
		return Storage{Docs: memdocstore.NewStore(clk), Idem: memidempotency.NewStoreWithTTL(idempotency.DefaultTTL)}, nil
	}
}

func providePostgres(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, postgres.PoolOptions{})
	if err != nil {
		return Storage{}, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return Storage{}, err
	}
	store := pgdocstore.NewStore(pool, log.Named("pgdocstore"))
	idem := pgidempotency.NewStore(pool)

	bgCtx, stop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if err := store.Listen(bgCtx); err != nil {
					log.Error("postgres listener stopped", zap.Error(err))
				}
			}()
			go func() {
				defer wg.Done()
				purgeIdempotency(bgCtx, idem, log)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stop()
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
			}
			pool.Close()
			return nil
		},
	})
	return Storage{Docs: store, Idem: idem}, nil
}

func purgeIdempotency(ctx context.Context, idem *pgidempotency.Store, log *zap.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := idem.Purge(ctx)
			if err != nil {
				log.Warn("purge idempotency keys", zap.Error(err))
				continue
			}
			log.Debug("purged idempotency keys", zap.Int64("rows", n))
		}
	}
}

func provideMongo(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongodocstore.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return Storage{}, err
	}
	store := mongodocstore.NewStore(client.Database(cfg.Mongo.Database), log.Named("mongodocstore"))
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return Storage{}, fmt.Errorf("mongo indexes: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := store.Watch(watchCtx); err != nil {
					log.Error("mongo change stream stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopWatch()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return client.Disconnect(ctx)
		},
	})
	// Idempotency records are short-lived and only replayed by the instance that served the
	// first attempt.
	return Storage{Docs: store, Idem: memidempotency.NewStoreWithTTL(idempotency.DefaultTTL)}, nil
}
