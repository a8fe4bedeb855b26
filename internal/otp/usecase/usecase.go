package usecase

import (
	"context"
	"time"

	"github.com/satriadi/otpgate/internal/otp/entity"
	"github.com/satriadi/otpgate/internal/pkg/clock"
	"github.com/satriadi/otpgate/internal/pkg/config"
	"github.com/satriadi/otpgate/internal/pkg/goroutine"
	"github.com/satriadi/otpgate/internal/pkg/hash"
	"github.com/satriadi/otpgate/internal/pkg/idempotency"
	"github.com/satriadi/otpgate/internal/pkg/instrument"
	"github.com/satriadi/otpgate/internal/pkg/otpcode"
	"github.com/satriadi/otpgate/internal/pkg/uid"
	"github.com/satriadi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type OTPIssuedEvent struct {
	PhoneKey  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type PasswordResetCompletedEvent struct {
	AccountID int64
	PhoneKey  string
	ResetAt   time.Time
}

type repoMessaging interface {
	PublishOTPIssued(ctx context.Context, msg OTPIssuedEvent) error
	PublishPasswordResetCompleted(ctx context.Context, msg PasswordResetCompletedEvent) error
}

type repoStore interface {
	Upsert(ctx context.Context, key string, rec entity.OTPRecord) error
	Get(ctx context.Context, key string) (*entity.OTPRecord, error)
	Delete(ctx context.Context, key string) error
}

type repoDB interface {
	GetAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
	CreateAccount(ctx context.Context, id int64, email, phone, hashedPassword string) error
	UpdateCredential(ctx context.Context, id int64, hashedPassword string) error
}

type smsGateway interface {
	Send(ctx context.Context, phone, code string) error
}

type Usecase struct {
	repoStore     repoStore
	repoDB        repoDB
	repoMessaging repoMessaging
	sms           smsGateway
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	password      hash.Hash
	codegen       otpcode.Generator
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoStore     repoStore
	RepoDB        repoDB
	RepoMessaging repoMessaging
	SMS           smsGateway
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Password      hash.Hash
	CodeGenerator otpcode.Generator
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoStore:     dep.RepoStore,
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		sms:           dep.SMS,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		password:      dep.Password,
		codegen:       dep.CodeGenerator,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

const defaultTTL = 5 * time.Minute

func (s *Usecase) ttl() time.Duration {
	if d := s.cfg.GetMinute("modules.otp.ttl_minutes"); d > 0 {
		return d
	}
	return defaultTTL
}

func (s *Usecase) identityDomain() string {
	if d := s.cfg.GetString("modules.otp.identity_domain"); d != "" {
		return d
	}
	return "phone.local"
}
