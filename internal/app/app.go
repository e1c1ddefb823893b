// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memelaunch/launchpad/internal/api"
	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/config"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/memelaunch/launchpad/internal/points"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/memory"
	"github.com/memelaunch/launchpad/internal/storage/postgres"
	"github.com/memelaunch/launchpad/internal/tokens"
)

const eventBufferSize = 256

// App owns every long-lived component of the launchpad process.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store    storage.Storage
	bus      *events.Bus
	provider *chain.Provider
	metrics  *api.Metrics
	shutdown *ShutdownHandler

	Pricer      *curve.Pricer
	Tokens      *tokens.Service
	Governance  *governance.Service
	Points      *points.Service
	Leaderboard *leaderboard.Service
}

// New connects storage, cache and chain and builds the services. Chain
// access is disabled when chain.rpc_url is empty.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		logger:   logger,
		metrics:  api.NewMetrics(),
		shutdown: NewShutdownHandler(logger),
	}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	pricer, err := curve.NewPricer(cfg.Curve)
	if err != nil {
		return nil, err
	}
	a.Pricer = pricer

	if err := a.openStorage(); err != nil {
		return nil, err
	}

	cache, err := a.openCache(ctx)
	if err != nil {
		return nil, err
	}

	reader, fees, err := a.openChain()
	if err != nil {
		return nil, err
	}

	a.bus = events.NewBus(logger, eventBufferSize)
	a.shutdown.AddFunc("event bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.bus.Shutdown(ctx)
	})

	a.Tokens = tokens.NewService(a.store, pricer, reader, fees, a.bus, logger)
	a.Governance = governance.NewService(a.store, cfg.AdminSet(), reader, fees, a.bus, cfg.Governance, logger)
	a.Points = points.NewService(a.store, reader, a.bus, logger)
	a.Leaderboard = leaderboard.NewService(a.store, cache, reader, a.bus, logger)

	a.Points.Subscribe(a.bus)
	a.metrics.Subscribe(a.bus)

	ok = true
	return a, nil
}

func (a *App) openStorage() error {
	switch a.cfg.Storage.Driver {
	case config.StoragePostgres:
		pg, err := postgres.NewStorage(a.cfg.Storage.PostgresURL, a.logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.RunMigrations(); err != nil {
			_ = pg.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.store = pg
	default:
		a.store = memory.New()
	}
	a.shutdown.Add("storage", a.store)
	a.logger.Info("Storage ready", zap.String("driver", a.cfg.Storage.Driver))
	return nil
}

func (a *App) openCache(ctx context.Context) (leaderboard.Cache, error) {
	rc := a.cfg.Redis
	if rc.Addr == "" {
		return leaderboard.NewMemoryCache(), nil
	}

	client := backend.NewClient(&backend.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	a.shutdown.Add("redis", client)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", rc.Addr, err)
	}
	a.logger.Info("Leaderboard cache connected", zap.String("addr", rc.Addr))
	return leaderboard.NewRedisCache(client, leaderboard.WithPrefix(rc.Prefix)), nil
}

// chainAccess is what the services need from the contract.
type chainAccess interface {
	chain.Reader
	chain.FeeVerifier
}

func (a *App) openChain() (chainAccess, chainAccess, error) {
	cc := a.cfg.Chain
	if cc.RPCURL == "" {
		a.logger.Warn("No RPC endpoint configured, chain features disabled")
		return chain.Offline{}, chain.Offline{}, nil
	}

	a.provider = chain.NewProvider(cc.RPCURL, cc.ChainID, a.logger)
	a.provider.SetDialTimeout(cc.DialTimeoutDuration())
	a.shutdown.AddFunc("chain provider", func() error {
		a.provider.Disconnect()
		return nil
	})

	client, err := chain.NewClient(chain.FromProvider(a.provider), cc.ClientOptions(), a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info("Chain client ready",
		zap.String("rpc", cc.RPCURL),
		zap.Int64("chain_id", cc.ChainID),
		zap.String("contract", client.ContractAddress()))
	return client, client, nil
}

// Services exposes the domain services to the HTTP layer.
func (a *App) Services() api.Services {
	return api.Services{
		Pricer:      a.Pricer,
		Tokens:      a.Tokens,
		Governance:  a.Governance,
		Points:      a.Points,
		Leaderboard: a.Leaderboard,
	}
}

// Run serves HTTP and refreshes the leaderboard until ctx is done.
func (a *App) Run(ctx context.Context) error {
	srv := api.NewServer(a.Services(), a.metrics, a.logger)
	sc := a.cfg.Server

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, sc.ListenAddr, sc.ReadTimeoutDuration(), sc.WriteTimeoutDuration())
	})
	if interval := a.cfg.LeaderboardInterval(); interval > 0 {
		g.Go(func() error {
			a.Leaderboard.Run(gctx, interval)
			return nil
		})
	}
	return g.Wait()
}

// Close releases every resource opened by New.
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()
	return a.shutdown.Shutdown(ctx)
}
