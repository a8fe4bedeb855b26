package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/satriadi/otpgate/internal/otp/entity"
	"github.com/satriadi/otpgate/internal/pkg/goerror"
)

// Outward messages. NotFound deliberately does not reveal whether a code was
// ever requested for the phone number.
const (
	msgOTPNotFound = "OTP not found or already used"
	msgOTPExpired  = "OTP expired"
	msgOTPInvalid  = "Invalid OTP"
)

type VerifyOTPInput struct {
	Phone string `validate:"required,phone"`
	OTP   string `validate:"required,otp"`
}

// VerifyOTP checks a submitted code without consuming it. The record stays in
// place on success, so the reset flow can still burn it afterwards.
func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) error {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	phoneKey, err := entity.NormalizePhone(in.Phone)
	if err != nil {
		return goerror.NewInvalidInput(err)
	}

	if _, err := s.checkCode(ctx, phoneKey, in.OTP); err != nil {
		return err
	}

	return nil
}

// checkCode reads the record for phoneKey and validates the submitted code
// against it. Expired records are deleted on sight; a mismatch leaves the
// record untouched so the caller may retry within the TTL window.
func (s *Usecase) checkCode(ctx context.Context, phoneKey, code string) (*entity.OTPRecord, error) {
	rec, err := s.repoStore.Get(ctx, phoneKey)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "no live otp record", "phone_key", phoneKey)
		return nil, goerror.NewBusiness(msgOTPNotFound, goerror.CodeInvalidInput)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to read otp record", "phone_key", phoneKey, "error", err)
		return nil, goerror.NewServer(err)
	}

	if rec.IsExpired(s.clock.Now()) {
		if err := s.repoStore.Delete(ctx, phoneKey); err != nil {
			slog.ErrorContext(ctx, "failed to delete expired otp record", "phone_key", phoneKey, "error", err)
			return nil, goerror.NewServer(err)
		}
		slog.WarnContext(ctx, "otp record expired", "phone_key", phoneKey)
		return nil, goerror.NewBusiness(msgOTPExpired, goerror.CodeInvalidInput)
	}

	if !s.hmac.Verify(rec.CodeHash, code) {
		slog.WarnContext(ctx, "otp code mismatch", "phone_key", phoneKey)
		return nil, goerror.NewBusiness(msgOTPInvalid, goerror.CodeInvalidInput)
	}

	return rec, nil
}
