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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/libris-io/identity/auth"
	"github.com/libris-io/identity/internal/config"
	"github.com/libris-io/identity/server"
	"github.com/libris-io/identity/token"
	"github.com/libris-io/identity/token/refresh"
	refreshrepomongo "github.com/libris-io/identity/token/refresh/repomongo"
	userrepomongo "github.com/libris-io/identity/users/repomongo"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()
	setupLogging(cfg.GetEnv())
	displayAppname(cfg.GetAppName())

	signingKey := cfg.GetSigningKey()
	if len(signingKey) == 0 {
		return errors.New("TOKEN_SIGNING_KEY must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.GetMongoURI()))
	if err != nil {
		return fmt.Errorf("mongo.Connect: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo.Ping: %w", err)
	}

	sessionService, err := buildSessionService(ctx, client.Database(cfg.GetMongoDatabase()), cfg, signingKey)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: server.New(cfg, sessionService)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func buildSessionService(ctx context.Context, db *mongo.Database, cfg config.Config, signingKey []byte) (*auth.Service, error) {
	userRepo := userrepomongo.NewMongoUserRepo(db, cfg.GetLockoutThreshold(), cfg.GetLockoutWindow())

	refreshRepo := refreshrepomongo.NewMongoRefreshTokenRepo(db)
	if err := refreshRepo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	rotation, err := refresh.NewManager(refreshRepo, cfg.GetRefreshTokenLifetime(),
		refresh.WithSafetyMargin(cfg.GetRotationSafetyMargin()),
		refresh.WithIDByteLength(cfg.GetRefreshTokenByteLength()))
	if err != nil {
		return nil, err
	}

	minterOptions := []token.MinterOption{}
	if encryptionKey := cfg.GetEncryptionKey(); len(encryptionKey) > 0 {
		encrypter, err := token.NewEncrypter(encryptionKey)
		if err != nil {
			return nil, err
		}
		minterOptions = append(minterOptions, token.WithEncrypter(encrypter))
	}

	minter, err := token.NewMinter(token.NewSecretSigner(signingKey),
		cfg.GetBaseURL(), cfg.GetAudience(), cfg.GetAccessTokenLifetime(), minterOptions...)
	if err != nil {
		return nil, err
	}

	return auth.NewService(userRepo, rotation, minter)
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
