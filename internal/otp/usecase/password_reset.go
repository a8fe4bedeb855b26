package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/satriadi/otpgate/internal/otp/entity"
	"github.com/satriadi/otpgate/internal/pkg/goerror"
	"github.com/satriadi/otpgate/internal/pkg/idempotency"
)

type ResetPasswordInput struct {
	Phone       string `validate:"required,phone"`
	OTP         string `validate:"required,otp"`
	NewPassword string `validate:"required,password"`
}

// ResetPassword consumes a valid code and sets a new credential on the
// identity store. The record is deleted strictly before the identity mutation
// runs, so the code is burned even if the mutation fails downstream.
func (s *Usecase) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	ctx, span := s.startSpan(ctx, "ResetPassword")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	phoneKey, err := entity.NormalizePhone(in.Phone)
	if err != nil {
		return goerror.NewInvalidInput(err)
	}

	rec, err := s.checkCode(ctx, phoneKey, in.OTP)
	if err != nil {
		return err
	}

	if err := s.repoStore.Delete(ctx, phoneKey); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp record", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	newHash, err := s.password.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	var accountID int64
	idempKey := "pwdreset:" + phoneKey + ":" + rec.CodeHash
	err = s.idemp.Exec(ctx, idempKey, func(ctx context.Context) error {
		id, uerr := s.upsertCredential(ctx, phoneKey, string(newHash))
		accountID = id
		return uerr
	}, idempotency.WithLockDuration(time.Minute), idempotency.WithStateTTL(s.ttl()))

	if errors.Is(err, idempotency.ErrAlreadyCompleted) {
		return nil
	}
	if errors.Is(err, idempotency.ErrAlreadyInProgress) || errors.Is(err, idempotency.ErrAlreadyFailed) {
		slog.WarnContext(ctx, "duplicate reset attempt for a consumed code", "phone_key", phoneKey)
		return goerror.NewBusiness(msgOTPNotFound, goerror.CodeInvalidInput)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to update identity credential", "phone_key", phoneKey, "error", err)
		return goerror.NewServer(err)
	}

	resetAt := s.clock.Now()
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishPasswordResetCompleted(ctx, PasswordResetCompletedEvent{
			AccountID: accountID,
			PhoneKey:  phoneKey,
			ResetAt:   resetAt,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish password reset completed", "phone_key", phoneKey, "error", err)
		}
		return nil
	})

	return nil
}

// upsertCredential ensures an account exists for the derived synthetic email
// and sets its credential to the new hash.
func (s *Usecase) upsertCredential(ctx context.Context, phoneKey, newHash string) (int64, error) {
	email := entity.SyntheticEmail(phoneKey, s.identityDomain())

	acc, err := s.repoDB.GetAccountByEmail(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		id := s.uid.Generate()

		return id, s.repoDB.CreateAccount(ctx, id, email, phoneKey, newHash)
	}
	if err != nil {
		return 0, err
	}

	return acc.ID, s.repoDB.UpdateCredential(ctx, acc.ID, newHash)
}
