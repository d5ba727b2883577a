package cli

import (
	"context"
	"fmt"

	"github.com/example/route-scheduler/internal/application/scheduler"
	"github.com/example/route-scheduler/internal/application/usecases"
	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/infrastructure/config"
	"github.com/example/route-scheduler/internal/infrastructure/geocache"
	"github.com/example/route-scheduler/internal/infrastructure/geocode"
	"github.com/example/route-scheduler/internal/infrastructure/holdtoken"
	"github.com/example/route-scheduler/internal/infrastructure/logging"
	"github.com/example/route-scheduler/internal/infrastructure/memory"
	"github.com/example/route-scheduler/internal/infrastructure/postgres"
	"go.uber.org/zap"
)

// app holds the wired collaborators shared by every command.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    booking.Store
	oracle   *scheduler.Oracle
	engine   *scheduler.Engine
	bookings *usecases.Bookings
	closers  []func()
}

type appOptions struct {
	migrate bool
}

// loadApp reads configuration and builds the logger without touching any
// backing service.
func loadApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, closers: []func(){func() { _ = log.Sync() }}}, nil
}

// openApp connects the store, geocoder and cache picked by configuration.
func openApp(ctx context.Context, configFile string, opts appOptions) (*app, error) {
	a, err := loadApp(configFile)
	if err != nil {
		return nil, err
	}
	if err := a.wire(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, opts appOptions) error {
	policy, err := a.cfg.Policy()
	if err != nil {
		return err
	}

	if err := a.openStore(ctx, opts); err != nil {
		return err
	}
	oracle, err := a.openOracle(ctx)
	if err != nil {
		return err
	}
	a.oracle = oracle
	a.engine = scheduler.NewEngine(policy, a.store, oracle, a.log.Named("scheduler"))

	holds := holdtoken.NewSigner(a.cfg.HoldHashKey, a.cfg.HoldBlockKey, a.cfg.HoldTTL)
	a.bookings = usecases.NewBookings(a.engine, a.store, holds, a.log.Named("bookings"))
	return nil
}

func (a *app) openStore(ctx context.Context, opts appOptions) error {
	if a.cfg.DatabaseURL == "" {
		a.log.Warn("DATABASE_URL not set, bookings are kept in memory")
		a.store = memory.New()
		return nil
	}
	pool, err := postgres.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pool.Close)
	if err := postgres.Ping(ctx, pool); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if opts.migrate {
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		for _, name := range applied {
			a.log.Info("applied migration", zap.String("name", name))
		}
	}
	a.store = postgres.NewBookingRepo(pool)
	return nil
}

func (a *app) openOracle(ctx context.Context) (*scheduler.Oracle, error) {
	var (
		geocoder scheduler.Geocoder
		router   scheduler.Router
		cache    scheduler.Cache
	)

	switch {
	case a.cfg.GoogleAPIKey != "":
		g := geocode.NewGoogle(a.cfg.GoogleAPIKey, a.cfg.GeocodeQPS, a.cfg.GeocodeTimeout, a.log.Named("google"))
		geocoder = g
		if a.cfg.DistanceProvider == config.ProviderGoogle {
			router = g
		}
	case a.cfg.AddressBook != "":
		s, err := geocode.LoadAddressBook(a.cfg.AddressBook)
		if err != nil {
			return nil, err
		}
		a.log.Info("using address book", zap.String("path", a.cfg.AddressBook), zap.Int("addresses", s.Len()))
		geocoder = s
	default:
		a.log.Warn("no GOOGLE_API_KEY or ADDRESS_BOOK, only \"lat,lng\" addresses resolve")
		geocoder = geocode.NewStatic(nil)
	}

	if a.cfg.RedisAddr != "" {
		client := geocache.NewRedisClient(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		a.closers = append(a.closers, func() { _ = client.Close() })
		rc := geocache.NewRedis(client, a.cfg.GeocacheTTL)
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		cache = rc
	} else {
		mc := geocache.NewMemory(a.cfg.GeocacheTTL)
		a.closers = append(a.closers, mc.Close)
		cache = mc
	}

	return scheduler.NewOracle(geocoder, cache, router, a.log.Named("oracle")), nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
