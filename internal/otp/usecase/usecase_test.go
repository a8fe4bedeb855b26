package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satriadi/otpgate/internal/otp/entity"
	"github.com/satriadi/otpgate/internal/pkg/clock"
	"github.com/satriadi/otpgate/internal/pkg/config"
	"github.com/satriadi/otpgate/internal/pkg/goerror"
	"github.com/satriadi/otpgate/internal/pkg/goroutine"
	"github.com/satriadi/otpgate/internal/pkg/hash"
	"github.com/satriadi/otpgate/internal/pkg/idempotency"
	"github.com/satriadi/otpgate/internal/pkg/instrument"
	"github.com/satriadi/otpgate/internal/pkg/uid"
	"github.com/satriadi/otpgate/internal/pkg/validator"
)

type fakeStore struct {
	recs      map[string]entity.OTPRecord
	upsertErr error
	getErr    error
	deleteErr error

	// onGet runs once before the next read, to interleave another
	// operation between a read and the delete that follows it.
	onGet func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]entity.OTPRecord{}}
}

func (f *fakeStore) Upsert(_ context.Context, key string, rec entity.OTPRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.recs[key] = rec
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) (*entity.OTPRecord, error) {
	if hook := f.onGet; hook != nil {
		f.onGet = nil
		hook()
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.recs[key]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.recs, key)
	return nil
}

type fakeDB struct {
	accounts  map[string]*entity.Account
	getErr    error
	createErr error
	updateErr error
	updates   int
	creates   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{accounts: map[string]*entity.Account{}}
}

func (f *fakeDB) GetAccountByEmail(_ context.Context, email string) (*entity.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	acc, ok := f.accounts[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeDB) CreateAccount(_ context.Context, id int64, email, phone, hashedPassword string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.creates++
	f.accounts[email] = &entity.Account{ID: id, Email: email, Phone: phone, Password: hashedPassword}
	return nil
}

func (f *fakeDB) UpdateCredential(_ context.Context, id int64, hashedPassword string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, acc := range f.accounts {
		if acc.ID == id {
			acc.Password = hashedPassword
			f.updates++
			return nil
		}
	}
	return goerror.ErrNotFound
}

type fakeMessaging struct {
	issued []OTPIssuedEvent
	resets []PasswordResetCompletedEvent
}

func (f *fakeMessaging) PublishOTPIssued(_ context.Context, msg OTPIssuedEvent) error {
	f.issued = append(f.issued, msg)
	return nil
}

func (f *fakeMessaging) PublishPasswordResetCompleted(_ context.Context, msg PasswordResetCompletedEvent) error {
	f.resets = append(f.resets, msg)
	return nil
}

type fakeSMS struct {
	sentTo    []string
	sentCodes []string
	err       error
}

func (f *fakeSMS) Send(_ context.Context, phone, code string) error {
	if f.err != nil {
		return f.err
	}
	f.sentTo = append(f.sentTo, phone)
	f.sentCodes = append(f.sentCodes, code)
	return nil
}

type fakeCodeGen struct {
	codes []string
	next  int
	err   error
}

func (f *fakeCodeGen) Generate() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	code := f.codes[f.next%len(f.codes)]
	f.next++
	return code, nil
}

type fakeIdemp struct {
	states map[string]idempotency.State
}

func newFakeIdemp() *fakeIdemp {
	return &fakeIdemp{states: map[string]idempotency.State{}}
}

func (f *fakeIdemp) Acquire(_ context.Context, key string, _ time.Duration) (idempotency.State, error) {
	state, ok := f.states[key]
	if !ok {
		f.states[key] = idempotency.StateInProgress
		return idempotency.StateNone, nil
	}
	return state, nil
}

func (f *fakeIdemp) MarkCompleted(_ context.Context, key string, _ time.Duration) error {
	f.states[key] = idempotency.StateCompleted
	return nil
}

func (f *fakeIdemp) MarkFailed(_ context.Context, key string, _ time.Duration) error {
	f.states[key] = idempotency.StateFailed
	return nil
}

func (f *fakeIdemp) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	state, err := f.Acquire(ctx, key, 0)
	if err != nil {
		return err
	}
	switch state {
	case idempotency.StateInProgress:
		return idempotency.ErrAlreadyInProgress
	case idempotency.StateCompleted:
		return idempotency.ErrAlreadyCompleted
	case idempotency.StateFailed:
		return idempotency.ErrAlreadyFailed
	}

	if err := fn(ctx); err != nil {
		_ = f.MarkFailed(ctx, key, 0)
		return err
	}
	return f.MarkCompleted(ctx, key, 0)
}

type fixtures struct {
	store     *fakeStore
	db        *fakeDB
	mq        *fakeMessaging
	sms       *fakeSMS
	codegen   *fakeCodeGen
	clock     *clock.FixedClocker
	goroutine *goroutine.Manager
}

const testConfig = `
modules:
  otp:
    ttl_minutes: 5
    identity_domain: phone.example.com
`

func newTestUsecase(t *testing.T) (*Usecase, *fixtures) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	snow, err := uid.NewSnowflake()
	if err != nil {
		t.Fatalf("failed to build snowflake: %v", err)
	}

	fx := &fixtures{
		store:     newFakeStore(),
		db:        newFakeDB(),
		mq:        &fakeMessaging{},
		sms:       &fakeSMS{},
		codegen:   &fakeCodeGen{codes: []string{"482915", "730264"}},
		clock:     &clock.FixedClocker{T: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		goroutine: goroutine.NewManager(4),
	}

	uc := New(Dependency{
		RepoStore:     fx.store,
		RepoDB:        fx.db,
		RepoMessaging: fx.mq,
		SMS:           fx.sms,
		Idempotency:   newFakeIdemp(),
		Validator:     v10,
		Config:        cfg,
		HMAC:          hash.NewHMACSHA256("test-secret"),
		Password:      hash.NewBcrypt(4, ""),
		CodeGenerator: fx.codegen,
		UID:           snow,
		Clock:         fx.clock,
		Instrument:    instrument.NewNoop(),
		Goroutine:     fx.goroutine,
	})

	return uc, fx
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a goerror", err)
	}
	return gerr.StatusCode()
}

func messageOf(t *testing.T, err error) string {
	t.Helper()
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a goerror", err)
	}
	return gerr.Msg()
}

func TestRequestOTPThenVerify(t *testing.T) {
	uc, fx := newTestUsecase(t)
	ctx := context.Background()

	// Arrange / Act
	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "+91 98765-43210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	// Assert: plaintext delivered to the raw number, record stored under the key.
	if len(fx.sms.sentCodes) != 1 || fx.sms.sentCodes[0] != "482915" {
		t.Fatalf("delivered codes = %v, want the generated code", fx.sms.sentCodes)
	}
	if fx.sms.sentTo[0] != "+91 98765-43210" {
		t.Fatalf("delivered to %q, want the raw submitted number", fx.sms.sentTo[0])
	}
	rec, ok := fx.store.recs["9876543210"]
	if !ok {
		t.Fatal("record not stored under normalized key")
	}
	if rec.CodeHash == "482915" {
		t.Fatal("plaintext code must never be persisted")
	}
	if got, want := rec.ExpiresAt, fx.clock.T.Add(5*time.Minute); !got.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", got, want)
	}

	// A differently formatted rendition of the same number verifies.
	if err := uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "482915"}); err != nil {
		t.Fatalf("VerifyOTP() unexpected error: %v", err)
	}

	// Verify is non-consuming: the record is still there.
	if _, ok := fx.store.recs["9876543210"]; !ok {
		t.Fatal("verify must not consume the record")
	}

	if err := fx.goroutine.Wait(); err != nil {
		t.Fatalf("background work failed: %v", err)
	}
	if len(fx.mq.issued) != 1 || fx.mq.issued[0].PhoneKey != "9876543210" {
		t.Fatalf("issued events = %+v, want one for the phone key", fx.mq.issued)
	}
}

func TestRequestOTPMissingPhone(t *testing.T) {
	uc, _ := newTestUsecase(t)

	err := uc.RequestOTP(context.Background(), RequestOTPInput{})
	if err == nil {
		t.Fatal("RequestOTP() with empty phone should fail")
	}
	if got := statusOf(t, err); got != 400 {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestRequestOTPDeliveryFailureKeepsRecord(t *testing.T) {
	uc, fx := newTestUsecase(t)
	fx.sms.err = errors.New("gateway down")

	err := uc.RequestOTP(context.Background(), RequestOTPInput{Phone: "9876543210"})
	if err == nil {
		t.Fatal("RequestOTP() should surface delivery failure")
	}
	if got := statusOf(t, err); got != 500 {
		t.Fatalf("status = %d, want 500", got)
	}

	// The store write is not rolled back on delivery failure.
	if _, ok := fx.store.recs["9876543210"]; !ok {
		t.Fatal("record should remain after delivery failure")
	}
}

func TestRequestOTPStoreFailure(t *testing.T) {
	uc, fx := newTestUsecase(t)
	fx.store.upsertErr = errors.New("store unavailable")

	err := uc.RequestOTP(context.Background(), RequestOTPInput{Phone: "9876543210"})
	if err == nil {
		t.Fatal("RequestOTP() should surface store failure")
	}
	if got := statusOf(t, err); got != 500 {
		t.Fatalf("status = %d, want 500", got)
	}
	if len(fx.sms.sentCodes) != 0 {
		t.Fatal("no delivery should happen when the store write fails")
	}
}

func TestVerifyOTPNotFound(t *testing.T) {
	uc, _ := newTestUsecase(t)

	err := uc.VerifyOTP(context.Background(), VerifyOTPInput{Phone: "9876543210", OTP: "482915"})
	if err == nil {
		t.Fatal("VerifyOTP() without a record should fail")
	}
	if got := messageOf(t, err); got != "OTP not found or already used" {
		t.Fatalf("message = %q, want conflated not-found message", got)
	}
	if got := statusOf(t, err); got != 400 {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestVerifyOTPMismatchRetainsRecord(t *testing.T) {
	uc, _ := newTestUsecase(t)
	ctx := context.Background()

	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	err := uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "000000"})
	if err == nil {
		t.Fatal("VerifyOTP() with wrong code should fail")
	}
	if got := messageOf(t, err); got != "Invalid OTP" {
		t.Fatalf("message = %q, want mismatch message", got)
	}

	// Record survives a mismatch; the correct code still verifies.
	if err := uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "482915"}); err != nil {
		t.Fatalf("correct code after mismatch should verify: %v", err)
	}
}

func TestVerifyOTPExpiredDeletesRecord(t *testing.T) {
	uc, fx := newTestUsecase(t)
	ctx := context.Background()

	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	fx.clock.T = fx.clock.T.Add(5*time.Minute + time.Second)

	err := uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "482915"})
	if err == nil {
		t.Fatal("VerifyOTP() after TTL should fail")
	}
	if got := messageOf(t, err); got != "OTP expired" {
		t.Fatalf("message = %q, want expiry message", got)
	}

	if _, ok := fx.store.recs["9876543210"]; ok {
		t.Fatal("expired record should be deleted on detection")
	}

	// A second attempt now reports the conflated not-found.
	err = uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "482915"})
	if got := messageOf(t, err); got != "OTP not found or already used" {
		t.Fatalf("message = %q, want conflated not-found message", got)
	}
}

func TestResendOverwritesPriorCode(t *testing.T) {
	uc, _ := newTestUsecase(t)
	ctx := context.Background()

	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("first RequestOTP() unexpected error: %v", err)
	}
	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("second RequestOTP() unexpected error: %v", err)
	}

	// First code no longer verifies, second does.
	if err := uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "482915"}); err == nil {
		t.Fatal("first code should be invalidated by resend")
	}
	if err := uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "730264"}); err != nil {
		t.Fatalf("second code should verify: %v", err)
	}
}

func TestResetPasswordCreatesAccount(t *testing.T) {
	uc, fx := newTestUsecase(t)
	ctx := context.Background()

	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	in := ResetPasswordInput{Phone: "9876543210", OTP: "482915", NewPassword: "fresh-secret-1"}
	if err := uc.ResetPassword(ctx, in); err != nil {
		t.Fatalf("ResetPassword() unexpected error: %v", err)
	}

	// Record consumed.
	if _, ok := fx.store.recs["9876543210"]; ok {
		t.Fatal("reset must consume the otp record")
	}

	// Account created under the synthetic email with a hashed credential.
	acc, ok := fx.db.accounts["9876543210@phone.example.com"]
	if !ok {
		t.Fatal("account not created for synthetic email")
	}
	if acc.Password == "fresh-secret-1" {
		t.Fatal("credential must be stored hashed")
	}
	if !hash.NewBcrypt(4, "").Verify(acc.Password, "fresh-secret-1") {
		t.Fatal("stored credential does not verify against the new password")
	}

	// Same code cannot be consumed twice.
	err := uc.ResetPassword(ctx, in)
	if got := messageOf(t, err); got != "OTP not found or already used" {
		t.Fatalf("second consume message = %q, want conflated not-found", got)
	}

	if err := fx.goroutine.Wait(); err != nil {
		t.Fatalf("background work failed: %v", err)
	}
	if len(fx.mq.resets) != 1 || fx.mq.resets[0].AccountID != acc.ID {
		t.Fatalf("reset events = %+v, want one for the account", fx.mq.resets)
	}
}

func TestResetPasswordUpdatesExistingAccount(t *testing.T) {
	uc, fx := newTestUsecase(t)
	ctx := context.Background()

	fx.db.accounts["9876543210@phone.example.com"] = &entity.Account{
		ID:       7,
		Email:    "9876543210@phone.example.com",
		Phone:    "9876543210",
		Password: "old-hash",
	}
	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	if err := uc.ResetPassword(ctx, ResetPasswordInput{
		Phone: "9876543210", OTP: "482915", NewPassword: "fresh-secret-2",
	}); err != nil {
		t.Fatalf("ResetPassword() unexpected error: %v", err)
	}

	if fx.db.creates != 0 {
		t.Fatal("existing account must be updated, not recreated")
	}
	if fx.db.updates != 1 {
		t.Fatalf("updates = %d, want 1", fx.db.updates)
	}
}

func TestResetPasswordWrongCodeRetainsRecord(t *testing.T) {
	uc, fx := newTestUsecase(t)
	ctx := context.Background()

	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	err := uc.ResetPassword(ctx, ResetPasswordInput{
		Phone: "9876543210", OTP: "000000", NewPassword: "fresh-secret-3",
	})
	if got := messageOf(t, err); got != "Invalid OTP" {
		t.Fatalf("message = %q, want mismatch message", got)
	}

	if _, ok := fx.store.recs["9876543210"]; !ok {
		t.Fatal("mismatch must not consume the record")
	}

	// The correct code still works afterwards.
	if err := uc.ResetPassword(ctx, ResetPasswordInput{
		Phone: "9876543210", OTP: "482915", NewPassword: "fresh-secret-3",
	}); err != nil {
		t.Fatalf("correct code after mismatch should reset: %v", err)
	}
}

func TestResetPasswordBurnsCodeOnIdentityFailure(t *testing.T) {
	uc, fx := newTestUsecase(t)
	ctx := context.Background()
	fx.db.getErr = errors.New("identity store down")

	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	err := uc.ResetPassword(ctx, ResetPasswordInput{
		Phone: "9876543210", OTP: "482915", NewPassword: "fresh-secret-4",
	})
	if err == nil {
		t.Fatal("ResetPassword() should surface identity store failure")
	}
	if got := statusOf(t, err); got != 500 {
		t.Fatalf("status = %d, want 500", got)
	}

	// The code is burned before the identity mutation runs.
	if _, ok := fx.store.recs["9876543210"]; ok {
		t.Fatal("record should be consumed even when the downstream mutation fails")
	}

	// Retrying with the burned code reports not-found.
	fx.db.getErr = nil
	err = uc.ResetPassword(ctx, ResetPasswordInput{
		Phone: "9876543210", OTP: "482915", NewPassword: "fresh-secret-4",
	})
	if got := messageOf(t, err); got != "OTP not found or already used" {
		t.Fatalf("retry message = %q, want conflated not-found", got)
	}
}

// A verify that lands between a consume's code check and its delete still
// succeeds; that read-then-delete window is accepted behavior. What may not
// happen twice is the credential mutation, which the idempotency tracker
// serializes under the consumed code's key.
func TestVerifyInsideConsumeWindow(t *testing.T) {
	uc, fx := newTestUsecase(t)
	ctx := context.Background()

	if err := uc.RequestOTP(ctx, RequestOTPInput{Phone: "9876543210"}); err != nil {
		t.Fatalf("RequestOTP() unexpected error: %v", err)
	}

	verifyErr := errors.New("not run")
	fx.store.onGet = func() {
		verifyErr = uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "482915"})
	}

	in := ResetPasswordInput{Phone: "9876543210", OTP: "482915", NewPassword: "fresh-secret-5"}
	if err := uc.ResetPassword(ctx, in); err != nil {
		t.Fatalf("ResetPassword() unexpected error: %v", err)
	}

	if verifyErr != nil {
		t.Fatalf("verify inside the consume window = %v, want success before the delete lands", verifyErr)
	}

	// Once the consume lands the code is gone for every caller.
	err := uc.VerifyOTP(ctx, VerifyOTPInput{Phone: "9876543210", OTP: "482915"})
	if got := messageOf(t, err); got != "OTP not found or already used" {
		t.Fatalf("verify after consume message = %q, want conflated not-found", got)
	}

	// A duplicate consume of the same code cannot rerun the mutation.
	_ = uc.ResetPassword(ctx, in)
	if fx.db.creates != 1 || fx.db.updates != 0 {
		t.Fatalf("creates = %d, updates = %d, want exactly one mutation", fx.db.creates, fx.db.updates)
	}
}
