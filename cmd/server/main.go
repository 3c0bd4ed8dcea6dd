// Command slushbook-server starts the Slushbook HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"github.com/and161185/slushbook/internal/config"
	"github.com/and161185/slushbook/internal/geo"
	"github.com/and161185/slushbook/internal/limiter"
	"github.com/and161185/slushbook/internal/logging"
	"github.com/and161185/slushbook/internal/migrate"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
	"github.com/and161185/slushbook/internal/repository/postgres"
	"github.com/and161185/slushbook/internal/runner"
	httpserver "github.com/and161185/slushbook/internal/server/http"
	"github.com/and161185/slushbook/internal/service"
	"github.com/and161185/slushbook/internal/translate"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and supervises the HTTP server and the
// translation router until a signal arrives.
func main() {
	cfgPath := flag.String("config", "", "config file (YAML); defaults to $"+config.PathEnvVar)
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if *dev {
		cfg.Log.Development = true
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("pgxpool: %w", err)
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	recipeRepo := postgres.NewRecipeRepo(db)
	ingredientRepo := postgres.NewIngredientRepo(db)

	pol, err := policy.New(limiter.NewPG(db.Pool))
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	// Translation pipeline
	wmLogger := translate.NewZapLogger(logger)
	pubSub := translate.NewPubSub(wmLogger)
	defer func() { _ = pubSub.Close() }()
	consumer := translate.NewConsumer(
		recipeRepo,
		translate.NewHTTPTranslator(cfg.Translator.Endpoint, cfg.Translator.Timeout),
		cfg.Translator.Timeout,
		logger,
	)

	langs := make([]model.Lang, 0, len(cfg.Translator.Languages))
	for _, l := range cfg.Translator.Languages {
		if lang, ok := model.ParseLang(l); ok {
			langs = append(langs, lang)
		}
	}

	// Services
	svc := httpserver.Services{
		Auth: service.NewAuthService(userRepo, []byte(cfg.Auth.JWTKey), cfg.Auth.AccessTTL),
		Recipes: service.NewRecipeService(recipeRepo, ingredientRepo, pol, translate.NewQueue(pubSub), service.RecipeConfig{
			Languages: langs,
			MaxLimit:  cfg.Listing.MaxLimit,
		}, logger),
		Ingredients: service.NewIngredientService(ingredientRepo, pol),
		Users:       service.NewUserService(userRepo, pol),
		Transfer:    service.NewTransferService(recipeRepo, pol, logger),
	}

	locator := geo.New(geo.Config{
		Endpoint:       cfg.Geo.Endpoint,
		Timeout:        cfg.Geo.Timeout,
		DefaultCountry: cfg.Geo.DefaultCountry,
	}, logger)

	api := httpserver.New(svc, locator, httpserver.Config{
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sup := runner.New("slushbook", cfg.Server.ShutdownTimeout, logger)
	sup.Add(runner.NewHTTPService(srv, cfg.Server.ShutdownTimeout))
	sup.Add(runner.NewRouterService(func() (*message.Router, error) {
		return translate.NewRouter(pubSub, consumer, wmLogger)
	}))

	logger.Info("listening", zap.String("addr", cfg.Server.Addr))
	return sup.Serve(ctx)
}
