package db

import (
	"context"

	"github.com/satriadi/otpgate/internal/otp/entity"
	"github.com/satriadi/otpgate/internal/pkg/goerror"
)

const getAccountByEmailQuery = `
SELECT id, email, phone, password, updated_at
FROM accounts
WHERE email = $1 AND deleted_at IS NULL
`

func (s *DB) GetAccountByEmail(ctx context.Context, email string) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByEmail")
	defer func() { s.endSpan(span, err) }()

	var acc entity.Account
	err = s.conn.QueryRow(ctx, getAccountByEmailQuery, email).
		Scan(&acc.ID, &acc.Email, &acc.Phone, &acc.Password, &acc.UpdatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &acc, nil
}

const createAccountQuery = `
INSERT INTO accounts (id, email, phone, password)
VALUES ($1, $2, $3, $4)
`

func (s *DB) CreateAccount(ctx context.Context, id int64, email, phone, hashedPassword string) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAccount")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, createAccountQuery, id, email, phone, hashedPassword)
	if err != nil {
		return s.mapError(err)
	}

	return nil
}

const updateCredentialQuery = `
UPDATE accounts
SET password = $2, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL
`

func (s *DB) UpdateCredential(ctx context.Context, id int64, hashedPassword string) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateCredential")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, updateCredentialQuery, id, hashedPassword)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
