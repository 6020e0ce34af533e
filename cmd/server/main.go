package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-content-admin/diagnostics"
	"github.com/jrsteele09/go-content-admin/gateway/gatewayfake"
	"github.com/jrsteele09/go-content-admin/gateway/identity"
	"github.com/jrsteele09/go-content-admin/gateway/objectstore"
	"github.com/jrsteele09/go-content-admin/gateway/pgtables"
	"github.com/jrsteele09/go-content-admin/internal/config"
	"github.com/jrsteele09/go-content-admin/metrics"
	"github.com/jrsteele09/go-content-admin/preferences"
	"github.com/jrsteele09/go-content-admin/resource"
	"github.com/jrsteele09/go-content-admin/server"
	"github.com/jrsteele09/go-content-admin/sessions"
	"github.com/jrsteele09/go-content-admin/sessions/redisrepo"
	fakesessionrepo "github.com/jrsteele09/go-content-admin/sessions/repofakes"
	"github.com/jrsteele09/go-content-admin/upload"
	"github.com/jrsteele09/go-content-admin/users"
	"github.com/jrsteele09/go-content-admin/users/pgrepo"
	fakeuserrepo "github.com/jrsteele09/go-content-admin/users/repofake"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	sweepInterval   = time.Minute
	storageRoute    = "/storage"
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	c := config.New()
	setupLogging(c.GetEnv())

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// backends are the gateway implementations chosen by GATEWAY_MODE
type backends struct {
	deps     server.Deps
	users    users.Repo
	sessions sessions.Repo
	storage  http.Handler // set in memory mode, serves uploaded objects
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	catalog := resource.DefaultCatalog()
	b, err := connect(ctx, c, catalog)
	if err != nil {
		return err
	}
	defer b.close()

	idp, err := identity.NewService(b.users, b.sessions, []byte(c.GetJWTSecret()),
		identity.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
		identity.WithIssuer(c.GetBaseURL()),
	)
	if err != nil {
		return fmt.Errorf("identity.NewService: %w", err)
	}
	b.deps.Auth = idp
	b.deps.Catalog = catalog

	if _, err := server.Bootstrap(ctx, b.users, c); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	srv, err := server.New(c, b.deps)
	if err != nil {
		return err
	}
	if b.storage != nil {
		srv.RegisterRouteHandler("GET "+storageRoute+"/", http.StripPrefix(storageRoute, b.storage))
	}

	go idp.RunSweeper(ctx, sweepInterval)
	go sweepConsoles(ctx, srv, c.GetMaxConsoleAge())

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

// connect builds the gateway backends. Memory mode keeps everything in process.
func connect(ctx context.Context, c config.Config, catalog resource.Catalog) (*backends, error) {
	b := &backends{}

	switch c.GetGatewayMode() {
	case config.GatewayModeMemory:
		storage := gatewayfake.NewFakeStorage(c.GetBaseURL() + storageRoute)
		tables := gatewayfake.NewFakeTables(catalog.Tables()...)
		b.users = fakeuserrepo.NewFakeUserRepo()
		b.sessions = fakesessionrepo.NewFakeSessionRepo()
		b.storage = storage
		b.deps = server.Deps{
			Tables:  metrics.InstrumentTables(tables),
			Storage: metrics.InstrumentStorage(storage),
			Diagnostics: diagnostics.NewRunner(c.GetDiagnosticsTimeout(),
				diagnostics.PingCheck("database", tables),
				diagnostics.PingCheck("storage", storage),
			),
		}
		log.Info().Msg("Using in-memory gateway")
		return b, nil

	case config.GatewayModeRemote:
		pool, err := pgtables.Connect(ctx, c.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		userRepo := pgrepo.New(pool)
		if err := userRepo.Migrate(ctx); err != nil {
			b.close()
			return nil, fmt.Errorf("migrate users: %w", err)
		}
		b.users = userRepo

		redisOpts, err := redis.ParseURL(c.GetRedisURL())
		if err != nil {
			b.close()
			return nil, fmt.Errorf("redis.ParseURL: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		sessionRepo := redisrepo.New(redisClient)
		b.sessions = sessionRepo

		store, err := objectstore.New(objectstore.Options{
			Endpoint:  c.GetStorageEndpoint(),
			AccessKey: c.GetStorageAccessKey(),
			SecretKey: c.GetStorageSecretKey(),
			Region:    c.GetStorageRegion(),
			UseSSL:    c.GetStorageUseSSL(),
			PublicURL: c.GetStoragePublicURL(),
		})
		if err != nil {
			b.close()
			return nil, err
		}
		var buckets []string
		for _, p := range upload.DefaultPolicies() {
			buckets = append(buckets, p.Bucket)
		}
		if err := store.EnsureBuckets(ctx, buckets...); err != nil {
			b.close()
			return nil, fmt.Errorf("ensure buckets: %w", err)
		}

		tables := pgtables.New(pool, catalog.Tables()...)
		b.deps = server.Deps{
			Tables:      metrics.InstrumentTables(tables),
			Storage:     metrics.InstrumentStorage(store),
			Preferences: preferences.NewRedisStore(redisClient),
			Diagnostics: diagnostics.NewRunner(c.GetDiagnosticsTimeout(),
				diagnostics.PingCheck("database", tables),
				diagnostics.PingCheck("storage", store),
				diagnostics.PingCheck("sessions", sessionRepo),
			),
		}
		log.Info().Str("storage", c.GetStorageEndpoint()).Msg("Using remote gateway")
		return b, nil

	default:
		return nil, fmt.Errorf("unknown gateway mode %q", c.GetGatewayMode())
	}
}

func sweepConsoles(ctx context.Context, srv *server.Server, maxIdle time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.Consoles().Sweep(maxIdle); n > 0 {
				log.Debug().Int("consoles", n).Msg("swept idle consoles")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
