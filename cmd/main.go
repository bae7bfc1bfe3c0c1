package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sharedrive/internal/auth"
	"sharedrive/internal/config"
	"sharedrive/internal/handler"
	"sharedrive/internal/logging"
	"sharedrive/internal/mail"
	"sharedrive/internal/media"
	"sharedrive/internal/repository"
	"sharedrive/internal/repository/memory"
	"sharedrive/internal/repository/mongostore"
	"sharedrive/internal/service"
	"sharedrive/internal/service/s3"
)

type stores struct {
	users service.UserStore
	files service.FileStore
	close func()
}

func openStores(ctx context.Context, cfg *config.Config, logger logging.Logger) (*stores, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := repository.Connect(ctx, cfg.Database, logger, 5, 5*time.Second)
		if err != nil {
			return nil, err
		}
		if err := repository.RunMigrations(cfg.Database, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &stores{
			users: repository.NewUserRepository(db),
			files: repository.NewFileRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					logger.Error(context.Background(), "error closing database connection", "error", err)
				}
			},
		}, nil

	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.Database.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Database.MongoDatabase)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &stores{
			users: mongostore.NewUserRepository(db),
			files: mongostore.NewFileRepository(db),
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Error(context.Background(), "error disconnecting from mongo", "error", err)
				}
			},
		}, nil

	default:
		logger.Warn(ctx, "using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &stores{users: store.Users(), files: store.Files(), close: func() {}}, nil
	}
}

func newMailer(cfg config.MailConfig, logger logging.Logger) (mail.Sender, error) {
	if cfg.Host == "" {
		return mail.NewLogSender(logger), nil
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		Username:          cfg.Username,
		Password:          cfg.Password,
		From:              cfg.From,
		OAuthClientID:     cfg.OAuthClientID,
		OAuthClientSecret: cfg.OAuthClientSecret,
		OAuthRefreshToken: cfg.OAuthRefreshToken,
	}, logger)
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.Auth.TokenSecret == "" {
		logger.Warn(ctx, "token secret is not configured, signup and login will fail")
	}
	tokens := auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	codec, err := auth.NewConfirmationCipher(cfg.Confirmation.Algorithm, cfg.Confirmation.SecretKey, cfg.Confirmation.IV)
	if err != nil {
		return fmt.Errorf("confirmation cipher: %w", err)
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	dict, err := media.LoadDictionary(cfg.Media.DictionaryPath, cfg.Media.MaxEditDistance)
	if err != nil {
		return err
	}
	logger.Info(ctx, "dictionary loaded", "words", dict.Len())

	images, err := newImageTransformer(cfg.Media)
	if err != nil {
		return fmt.Errorf("image transformer: %w", err)
	}
	pipeline := media.NewPipeline(images, media.NewSpellCorrector(dict, cfg.Media.SuggestionLimit, logger), logger)

	stager, err := media.NewStager(cfg.Storage.StagingDir)
	if err != nil {
		return err
	}

	var mirror s3.Storage
	if cfg.S3.Enabled {
		client, err := s3.NewClient(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		mirror = client
	}

	userService := service.NewUserService(st.users, tokens, codec, mailer, cfg.Server.APIURL, cfg.Auth.BcryptCost, logger)
	fileService := service.NewFileService(st.files, pipeline, mirror, service.FileServiceOptions{
		StagingDir:   cfg.Storage.StagingDir,
		PublicURL:    cfg.Server.PublicURL,
		PublicPrefix: cfg.Storage.PublicPrefix,
	}, logger)

	router := handler.NewRouter(handler.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StagingDir:     cfg.Storage.StagingDir,
		PublicPrefix:   cfg.Storage.PublicPrefix,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
	},
		handler.NewUserHandler(userService, logger),
		handler.NewFileHandler(fileService, stager, logger),
		tokens,
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting HTTP server", "port", cfg.Server.Port, "store", cfg.Database.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP server forced to shutdown", "error", err)
	}

	// Image transforms outlive their requests.
	pipeline.Wait()

	logger.Info(context.Background(), "server exited properly")
	return nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(context.Background(), "server stopped", "error", err)
		stop()
		os.Exit(1)
	}
}
