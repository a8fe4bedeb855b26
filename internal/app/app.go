package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/satriadi/otpgate/internal/otp/outbound/sms"
	"github.com/satriadi/otpgate/internal/pkg/clock"
	"github.com/satriadi/otpgate/internal/pkg/config"
	"github.com/satriadi/otpgate/internal/pkg/goroutine"
	"github.com/satriadi/otpgate/internal/pkg/hash"
	"github.com/satriadi/otpgate/internal/pkg/idempotency"
	"github.com/satriadi/otpgate/internal/pkg/instrument"
	"github.com/satriadi/otpgate/internal/pkg/messaging"
	"github.com/satriadi/otpgate/internal/pkg/otpcode"
	"github.com/satriadi/otpgate/internal/pkg/router"
	"github.com/satriadi/otpgate/internal/pkg/uid"
	"github.com/satriadi/otpgate/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	argon2id  hash.Hash
	bcrypt    hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	codegen   otpcode.Generator

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	messaging messaging.Messaging
	sms       *sms.Gateway

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initSMS()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
