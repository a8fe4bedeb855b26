package usecase

import (
	"context"
	"log/slog"

	"github.com/satriadi/otpgate/internal/otp/entity"
	"github.com/satriadi/otpgate/internal/pkg/goerror"
)

type RequestOTPInput struct {
	Phone string `validate:"required,phone"`
}

// RequestOTP issues a fresh code for the phone number: generate, hash, store
// with TTL, then deliver out-of-band. A new request overwrites any live code
// for the same phone key.
func (s *Usecase) RequestOTP(ctx context.Context, in RequestOTPInput) error {
	ctx, span := s.startSpan(ctx, "RequestOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	phoneKey, err := entity.NormalizePhone(in.Phone)
	if err != nil {
		return goerror.NewInvalidInput(err)
	}

	code, err := s.codegen.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	now := s.clock.Now()
	rec := entity.OTPRecord{
		CodeHash:  string(codeHash),
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}

	if err := s.repoStore.Upsert(ctx, phoneKey, rec); err != nil {
		slog.ErrorContext(ctx, "failed to store otp record", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	// The record stays if delivery fails. The client recovers by requesting a
	// new code, which overwrites this one.
	if err := s.sms.Send(ctx, in.Phone, code); err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishOTPIssued(ctx, OTPIssuedEvent{
			PhoneKey:  phoneKey,
			ExpiresAt: rec.ExpiresAt,
			IssuedAt:  rec.CreatedAt,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish otp issued", "phone_key", phoneKey, "error", err)
		}
		return nil
	})

	return nil
}
