package otp

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/satriadi/otpgate/internal/otp/inbound"
	"github.com/satriadi/otpgate/internal/otp/outbound/db"
	"github.com/satriadi/otpgate/internal/otp/outbound/mq"
	"github.com/satriadi/otpgate/internal/otp/outbound/sms"
	"github.com/satriadi/otpgate/internal/otp/outbound/store"
	"github.com/satriadi/otpgate/internal/otp/usecase"
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

type Dependency struct {
	DBConn        *pgxpool.Pool              `validate:"required"`
	CacheConn     *redis.Client              `validate:"required"`
	Goroutine     *goroutine.Manager         `validate:"required"`
	Router        *router.Router             `validate:"required"`
	Idempotency   idempotency.Idempotency    `validate:"required"`
	Messaging     messaging.Messaging        `validate:"required"`
	SMSGateway    *sms.Gateway               `validate:"required"`
	Config        config.Config              `validate:"required"`
	Instrument    instrument.Instrumentation `validate:"required"`
	HMAC          hash.Hash                  `validate:"required"`
	Bcrypt        hash.Hash                  `validate:"required"`
	Argon2ID      hash.Hash                  `validate:"required"`
	CodeGenerator otpcode.Generator          `validate:"required"`
	UID           uid.NumberID               `validate:"required"`
	Clock         clock.Clocker              `validate:"required"`
	Validator     validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoStore := store.NewStore(dep.CacheConn, dep.Instrument)
	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	// Credential hashing is driver-selectable so existing account bases keep
	// verifying while new hashes migrate.
	password := dep.Bcrypt
	if dep.Config.GetString("hash.password.driver") == "argon2id" {
		password = dep.Argon2ID
	}

	uc := usecase.New(usecase.Dependency{
		RepoStore:     repoStore,
		RepoDB:        repoDB,
		RepoMessaging: repoMsg,
		SMS:           dep.SMSGateway,
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		Password:      password,
		CodeGenerator: dep.CodeGenerator,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
