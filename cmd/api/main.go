package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/linkedin-analyzer/internal/application"
	appai "github.com/bryanwahyu/linkedin-analyzer/internal/application/ai"
	appresumes "github.com/bryanwahyu/linkedin-analyzer/internal/application/resumes"
	"github.com/bryanwahyu/linkedin-analyzer/internal/config"
	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/resume"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/linkedin-analyzer/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/linkedin-analyzer/internal/infra/db/postgres"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/events"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/extractor"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/httpserver"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/storage"
	"github.com/bryanwahyu/linkedin-analyzer/internal/logger"
	"github.com/bryanwahyu/linkedin-analyzer/internal/middleware"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not load .env")
	}

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logrus.WithError(err).Fatal("config load error")
	}
	logger.Init(cfg.Log.Level)
	log := logger.Component("main")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return fmt.Errorf("resolve api key: %w", err)
	}
	if apiKey == "" {
		log.Warn("GROQ_API_KEY not configured; analyses will report the missing key")
	}

	client := openai.NewClient(apiKey, openai.Options{
		BaseURL:     cfg.Groq.BaseURL,
		Model:       cfg.Groq.Model,
		Temperature: cfg.Groq.Temperature,
		Timeout:     cfg.Groq.Timeout,
	})

	svc := &appresumes.Service{
		Extractor: extractor.New(logger.Component("extractor")),
		Analyzer:  appai.NewService(client, logger.Component("analyzer")),
		Clock:     application.SystemClock{},
		Log:       logger.Component("resumes"),
	}
	checkers := map[string]middleware.HealthChecker{
		"groq": middleware.CredentialChecker{Present: apiKey != ""},
	}

	db, repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		svc.Repo = repo
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		log.WithField("driver", cfg.Database.Driver).Info("analysis history enabled")
	}

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		svc.Archive = archive
		log.WithField("provider", cfg.Storage.Provider).Info("upload archive enabled")
	}

	publisher, closePublisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer closePublisher()
		svc.Publisher = publisher
		log.WithField("provider", cfg.Events.Provider).Info("analysis events enabled")
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	defer limiter.Stop()

	handler := httpserver.NewRouter(svc, httpserver.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
		RateLimiter:    limiter,
		RefillRate:     cfg.Server.RateLimit.RefillRate,
		Health:         checkers,
		Log:            logger.Component("http"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openRepository(ctx context.Context, cfg *config.Config) (*sql.DB, analyst.Repository, error) {
	switch cfg.Database.Driver {
	case "":
		return nil, nil, nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("mysql migrate: %w", err)
		}
		return db, mysqlp.NewAnalystRepository(db), nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := pgp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return db, pgp.NewAnalystRepository(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openArchive(ctx context.Context, cfg *config.Config) (resume.Archive, error) {
	s := cfg.Storage
	switch s.Provider {
	case "":
		return nil, nil
	case "minio":
		store, err := storage.New(ctx, s.Endpoint, s.Region, s.BucketName, s.AccessKey, s.SecretKey, s.UseSSL)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		return store, nil
	case "s3", "r2":
		store, err := storage.NewS3(ctx, s.Endpoint, s.Region, s.BucketName, s.AccessKey, s.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("s3 init: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", s.Provider)
	}
}

func openPublisher(cfg *config.Config) (analyst.Publisher, func() error, error) {
	e := cfg.Events
	switch e.Provider {
	case "":
		return nil, nil, nil
	case "rabbitmq":
		p, err := events.DialRabbit(e.RabbitMQURL, e.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "kafka":
		if len(e.KafkaBrokers) == 0 {
			return nil, nil, errors.New("events.kafkaBrokers is empty")
		}
		p := events.NewKafka(e.KafkaBrokers, e.Topic)
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown events provider %q", e.Provider)
	}
}
