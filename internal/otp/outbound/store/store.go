package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/satriadi/otpgate/internal/otp/entity"
	"github.com/satriadi/otpgate/internal/pkg/goerror"
	"github.com/satriadi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix = "otp:"

	fieldCodeHash  = "code_hash"
	fieldExpiresAt = "expires_at"
	fieldCreatedAt = "created_at"

	// expirySlack keeps the redis key alive slightly past the record's own
	// expiresAt so a late read still observes the expired record and can
	// report Expired instead of NotFound.
	expirySlack = time.Minute
)

// Store persists OTP records in redis, one hash per phone key.
type Store struct {
	client *redis.Client
	ins    instrument.Instrumentation
}

func NewStore(client *redis.Client, ins instrument.Instrumentation) *Store {
	return &Store{client: client, ins: ins}
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.outbound.store").Start(ctx, name)
}

func (s *Store) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Upsert writes the record for key, overwriting any existing one. The redis
// key expires shortly after the record itself so stale entries do not
// accumulate without a sweeper.
func (s *Store) Upsert(ctx context.Context, key string, rec entity.OTPRecord) (err error) {
	ctx, span := s.startSpan(ctx, "Upsert")
	defer func() { s.endSpan(span, err) }()

	ttl := rec.ExpiresAt.Sub(rec.CreatedAt) + expirySlack

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyPrefix+key)
	pipe.HSet(ctx, keyPrefix+key, map[string]any{
		fieldCodeHash:  rec.CodeHash,
		fieldExpiresAt: rec.ExpiresAt.UnixMilli(),
		fieldCreatedAt: rec.CreatedAt.UnixMilli(),
	})
	pipe.Expire(ctx, keyPrefix+key, ttl)

	if _, err = pipe.Exec(ctx); err != nil {
		return err
	}
	return nil
}

// Get reads the record for key. Returns goerror.ErrNotFound when no record
// exists, which callers surface as "OTP not found or already used".
func (s *Store) Get(ctx context.Context, key string) (_ *entity.OTPRecord, err error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer func() { s.endSpan(span, err) }()

	values, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, goerror.ErrNotFound
	}

	expiresAt, err := strconv.ParseInt(values[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, err
	}
	createdAt, err := strconv.ParseInt(values[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, err
	}

	return &entity.OTPRecord{
		CodeHash:  values[fieldCodeHash],
		ExpiresAt: time.UnixMilli(expiresAt),
		CreatedAt: time.UnixMilli(createdAt),
	}, nil
}

// Delete removes the record for key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	return s.client.Del(ctx, keyPrefix+key).Err()
}
