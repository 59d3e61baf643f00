// Package server wires the auth engines, storage and transports together
// and runs them until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/auth"
	"github.com/dmitrijs2005/jazzyauth/internal/server/config"
	"github.com/dmitrijs2005/jazzyauth/internal/server/keylock"
	"github.com/dmitrijs2005/jazzyauth/internal/server/notify"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/jazzyauth/internal/server/services"
	"github.com/dmitrijs2005/jazzyauth/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	gs "github.com/dmitrijs2005/jazzyauth/internal/server/grpc"
	hs "github.com/dmitrijs2005/jazzyauth/internal/server/http"
)

const serviceName = "jazzyauth"

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	dispatcher *notify.Dispatcher
	tokens     *services.TokenService
	handler    *hs.Handler
	tracing    func(context.Context) error
}

// newLocker picks the Redis locker when an address is configured so that
// several instances share per-email locks.
func newLocker(c *config.Config) (keylock.Locker, *redis.Client) {
	if c.RedisAddr == "" {
		return keylock.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	return keylock.NewRedis(client, "", c.LockTTL), client
}

func newSender(c *config.Config, logger logging.Logger) notify.Sender {
	if c.SMTPHost == "" {
		return notify.NewLogSender(logger)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	tracing, err := telemetry.Setup(ctx, serviceName, c.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		_ = tracing(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		_ = tracing(ctx)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	locker, rdb := newLocker(c)
	dispatcher := notify.NewDispatcher(newSender(c, logger), logger, c.NotifyQueueSize)

	app := &App{
		config:     c,
		logger:     logger,
		db:         db,
		redis:      rdb,
		dispatcher: dispatcher,
		tracing:    tracing,
	}

	database := dbx.SQLDatabase{DB: db}
	hasher := auth.NewPasswordHasher(bcrypt.DefaultCost)
	codec := auth.NewTokenCodec(c.SecretKey)

	otp := services.NewOTPService(database, m, c, locker, dispatcher, logger.With("module", "otp"))
	tokens := services.NewTokenService(database, m, c, codec, logger.With("module", "tokens"))
	creds, err := services.NewCredentialService(database, m, c, hasher, tokens, otp, locker, dispatcher, logger.With("module", "credentials"))
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("credential service init error: %w", err)
	}
	clients := services.NewClientService(database, m, hasher, codec, tokens, logger.With("module", "clients"))
	users := services.NewUserService(database, m, logger.With("module", "users"))
	products := services.NewProductService(database, m, logger.With("module", "products"))

	app.tokens = tokens
	app.handler = hs.NewHandler(hs.Engines{
		OTP:         otp,
		Credentials: creds,
		Tokens:      tokens,
		Clients:     clients,
		Users:       users,
		Products:    products,
	}, logger.With("module", "http"), app.ready)

	return app, nil
}

// ready reports whether the backing stores answer.
func (app *App) ready(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s, err := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.ready, 10*time.Second)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := hs.NewServer(app.config.HTTPAddr, hs.NewRouter(app.handler, app.logger.With("module", "http")))

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// close releases everything NewApp acquired. Queued mail is drained first.
func (app *App) close(ctx context.Context) {
	app.dispatcher.Close()
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.tracing(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "telemetry shutdown", "error", err)
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.tokens.RunReaper(ctx, app.config.ReaperInterval)
	}()

	wg.Wait()

	app.close(context.Background())
	app.logger.Info(context.Background(), "App stopped")
}
