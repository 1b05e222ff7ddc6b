// @title           OBA LifeHub API
// @version         1.0
// @description     Profiles, role capabilities and the LifeHub coin wallet.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/api"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/core/service"
	mongostore "github.com/obalifehub/lifehub/internal/infrastructure/db/mongo"
	pgstore "github.com/obalifehub/lifehub/internal/infrastructure/db/postgres"
	redisstore "github.com/obalifehub/lifehub/internal/infrastructure/db/redis"
	"github.com/obalifehub/lifehub/internal/infrastructure/email"
	opshttp "github.com/obalifehub/lifehub/internal/infrastructure/http"
	"github.com/obalifehub/lifehub/internal/infrastructure/http/handlers"
	"github.com/obalifehub/lifehub/internal/infrastructure/queue"
	"github.com/obalifehub/lifehub/internal/pkg/config"
	"github.com/obalifehub/lifehub/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// stores is the persistence backend selected by STORE_DRIVER.
type stores struct {
	identities ports.IdentityRepository
	profiles   ports.ProfileRepository
	ledger     ports.LedgerRepository
	catalog    ports.CatalogRepository
	feed       ports.ProfileChangeFeed
	check      handlers.Check
	close      func()
}

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "lifehub",
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found; relying on existing environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer st.close()

	checks := []handlers.Check{st.check}

	// Redis only guards the ledger; without it writes run unlocked.
	var (
		locker service.UserLocker
		idem   service.IdempotencyStore
	)
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, ledger locking disabled")
	} else {
		defer rdb.Close()
		locker = redisstore.NewUserLocker(rdb)
		idem = redisstore.NewIdempotencyStore(rdb, cfg.Ledger.IdempotencyTTL)
		checks = append(checks, handlers.Check{Name: "redis", Ping: redisstore.Ping(rdb)})
	}

	notifier, err := email.NewSESNotifier(ctx, email.Config{
		Enabled:   cfg.Email.Enabled,
		Region:    cfg.Email.Region,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	}, logger.Component("email"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure email")
	}

	auth := service.NewAuthService(st.identities, cfg.JWTSecret, cfg.TokenTTL)
	registry := service.NewSessionRegistry(auth, st.profiles, notifier, logger.Component("sessions")).WithRevokedTTL(cfg.TokenTTL)
	registry.StartSweeper(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTTL)

	ledger := service.NewLedgerService(st.ledger, st.catalog, st.profiles, locker, idem, cfg.Ledger.LockTTL, logger.Component("ledger"))
	catalog := service.NewCatalogService(st.catalog)

	dispatcher := queue.NewDispatcher(cfg.Dispatcher.Workers, registry, logger.Component("dispatcher"))
	dispatcher.Start(ctx)
	go runFeed(ctx, st.feed, dispatcher, logger.Component("profile-feed"))

	apiServer := api.NewRouter(api.Deps{
		Sessions:  registry,
		Tokens:    auth,
		Ledger:    ledger,
		Catalog:   catalog,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})
	opsServer := opshttp.NewOpsRouter(checks...)

	go serve(apiServer, ":"+cfg.Port, "api", log)
	go serve(opsServer, ":"+cfg.OpsPort, "ops", log)

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for name, e := range map[string]*echo.Echo{"api": apiServer, "ops": opsServer} {
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("server", name).Msg("graceful shutdown failed")
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		return &stores{
			identities: pgstore.NewIdentityRepository(db),
			profiles:   pgstore.NewProfileRepository(db),
			ledger:     pgstore.NewLedgerRepository(db),
			catalog:    pgstore.NewCatalogRepository(db),
			feed:       pgstore.NewProfileListener(db),
			check:      handlers.Check{Name: "postgres", Ping: db.Ping},
			close:      db.Close,
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &stores{
			identities: mongostore.NewIdentityRepository(db),
			profiles:   mongostore.NewProfileRepository(db),
			ledger:     mongostore.NewLedgerRepository(client, db),
			catalog:    mongostore.NewCatalogRepository(db),
			feed:       mongostore.NewProfileWatcher(db),
			check: handlers.Check{Name: "mongo", Ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			}},
			close: func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}
}

// runFeed keeps the change feed attached, reconnecting with backoff until
// ctx is cancelled.
func runFeed(ctx context.Context, feed ports.ProfileChangeFeed, d *queue.Dispatcher, log zerolog.Logger) {
	backoff := time.Second
	for {
		err := feed.Run(ctx, d.Sink(ctx))
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Dur("retry_in", backoff).Msg("profile change feed stopped")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func serve(e *echo.Echo, addr, name string, log zerolog.Logger) {
	log.Info().Str("server", name).Str("addr", addr).Msg("listening")
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Str("server", name).Msg("server error")
	}
}
