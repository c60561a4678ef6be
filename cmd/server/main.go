// Command server runs the MyWay listings site.
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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/config"
	"github.com/iliyamo/myway/internal/database"
	"github.com/iliyamo/myway/internal/handler"
	"github.com/iliyamo/myway/internal/logging"
	"github.com/iliyamo/myway/internal/middleware"
	"github.com/iliyamo/myway/internal/repository"
	"github.com/iliyamo/myway/internal/router"
	"github.com/iliyamo/myway/internal/service"
	"github.com/iliyamo/myway/internal/session"
	"github.com/iliyamo/myway/internal/upload"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "myway",
		Short:         "Rooms, boarding houses and properties near institutions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Migrate the schema and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Bring the schema up to date and print what changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), cmd)
		},
	})
	return root
}

func migrate(ctx context.Context, cmd *cobra.Command) error {
	cfg := config.LoadDatabase()
	log, err := logging.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, dialect, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	report, err := database.NewMigrator(db, dialect, log).Migrate(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tables created: %d %v\n", len(report.Created), report.Created)
	fmt.Fprintf(out, "columns added:  %d %v\n", len(report.Applied), report.Applied)
	for _, f := range report.Failed {
		fmt.Fprintf(out, "skipped: %v\n", f)
	}
	return nil
}

func serve(ctx context.Context) error {
	cfg := config.Load()
	log, err := logging.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, dialect, err := database.Open(cfg)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if _, err := database.NewMigrator(db, dialect, log).Migrate(ctx); err != nil {
		log.Fatal("migrate schema", zap.Error(err))
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable; rate limiting and caching disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	images, err := upload.New(cfg.UploadDir, cfg.ImageMaxWidth, cfg.ImageQuality, cfg.ImageTimeout, log.Named("upload"))
	if err != nil {
		log.Fatal("upload dir", zap.Error(err))
	}

	listingRepo := repository.NewListingRepo(db)
	schoolRepo := repository.NewSchoolRepo(db)
	landlordRepo := repository.NewLandlordRepo(db)
	events := service.NewPublisher(cfg.AMQPURL, log.Named("events"))
	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)

	identity := service.NewIdentity(landlordRepo, cfg.AdminPassphrase, cfg.BcryptCost, log.Named("identity"))
	listings := service.NewListings(listingRepo, landlordRepo, images, cfg.MaxUploadFiles, events, log.Named("listings"))
	engagement := service.NewEngagement(listingRepo, cfg.ContactHost, cfg.CountryCode, cfg.SiteName, events, log.Named("engagement"))

	cacheCfg := config.LoadCacheConfig()
	admin := handler.NewAdminHandler(listings, listingRepo, schoolRepo, log)
	admin.SchoolsChanged = func(ctx context.Context) {
		if err := middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix); err != nil {
			log.Warn("purge school cache", zap.Error(err))
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", 25*max(cfg.MaxUploadFiles, 1))))

	router.Register(e, router.Deps{
		Public:    handler.NewPublicHandler(listingRepo, schoolRepo, engagement, log),
		Auth:      handler.NewAuthHandler(identity, sessions, log),
		Listings:  handler.NewListingHandler(listings, listingRepo, log),
		Admin:     admin,
		Sessions:  sessions,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     cacheCfg,
		UploadDir: cfg.UploadDir,
		Log:       log,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("version", cfg.Version), zap.String("env", cfg.Env), zap.String("db", string(dialect)))
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
