package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/satriadi/otpgate/internal/otp/usecase"
	"github.com/satriadi/otpgate/internal/pkg/config"
	"github.com/satriadi/otpgate/internal/pkg/goerror"
	"github.com/satriadi/otpgate/internal/pkg/instrument"
	"github.com/satriadi/otpgate/internal/pkg/router"
	"github.com/satriadi/otpgate/internal/pkg/uid"
)

type fakeUsecase struct {
	requestErr error
	verifyErr  error
	resetErr   error

	lastRequest usecase.RequestOTPInput
	lastVerify  usecase.VerifyOTPInput
	lastReset   usecase.ResetPasswordInput
}

func (f *fakeUsecase) RequestOTP(_ context.Context, in usecase.RequestOTPInput) error {
	f.lastRequest = in
	return f.requestErr
}

func (f *fakeUsecase) VerifyOTP(_ context.Context, in usecase.VerifyOTPInput) error {
	f.lastVerify = in
	return f.verifyErr
}

func (f *fakeUsecase) ResetPassword(_ context.Context, in usecase.ResetPasswordInput) error {
	f.lastReset = in
	return f.resetErr
}

const routerConfig = `
app:
  maintenance:
    endpoints: ""
instrument:
  log_mask_fields: "phone,otp,new_password"
`

func newTestServer(t *testing.T) (*httptest.Server, *fakeUsecase) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(routerConfig))
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	rt := router.NewRouter(router.Config{
		Config:     cfg,
		UUID:       uid.NewUUID(),
		Instrument: instrument.NewNoop(),
	})

	fus := &fakeUsecase{}
	RegisterHTTPEndpoint(rt, fus)

	srv := httptest.NewServer(rt)
	t.Cleanup(srv.Close)

	return srv, fus
}

func doJSON(t *testing.T, srv *httptest.Server, path, payload string) (int, map[string]json.RawMessage) {
	t.Helper()

	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return resp.StatusCode, body
}

func messageField(t *testing.T, body map[string]json.RawMessage) string {
	t.Helper()

	var msg string
	if err := json.Unmarshal(body["message"], &msg); err != nil {
		t.Fatalf("failed to decode message field: %v", err)
	}
	return msg
}

func TestSendOTP(t *testing.T) {
	srv, fus := newTestServer(t)

	status, body := doJSON(t, srv, "/api/v1/otp/send", `{"phone":"+91 98765-43210"}`)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if got := messageField(t, body); got != "OTP sent successfully" {
		t.Fatalf("message = %q", got)
	}
	if fus.lastRequest.Phone != "+91 98765-43210" {
		t.Fatalf("phone passed through = %q", fus.lastRequest.Phone)
	}
}

func TestSendOTPLegacyPath(t *testing.T) {
	srv, fus := newTestServer(t)

	status, _ := doJSON(t, srv, "/send-otp", `{"phone":"9876543210"}`)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if fus.lastRequest.Phone != "9876543210" {
		t.Fatalf("phone passed through = %q", fus.lastRequest.Phone)
	}
}

func TestSendOTPMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := doJSON(t, srv, "/api/v1/otp/send", `{"phone":`)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestVerifyOTP(t *testing.T) {
	srv, fus := newTestServer(t)

	status, body := doJSON(t, srv, "/api/v1/otp/verify", `{"phone":"9876543210","otp":"482915"}`)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if got := messageField(t, body); got != "OTP verified successfully" {
		t.Fatalf("message = %q", got)
	}

	var data struct {
		Verified bool `json:"verified"`
	}
	if err := json.Unmarshal(body["data"], &data); err != nil {
		t.Fatalf("failed to decode data field: %v", err)
	}
	if !data.Verified {
		t.Fatal("expected verified true")
	}
	if fus.lastVerify.OTP != "482915" {
		t.Fatalf("otp passed through = %q", fus.lastVerify.OTP)
	}
}

func TestVerifyOTPBusinessError(t *testing.T) {
	srv, fus := newTestServer(t)
	fus.verifyErr = goerror.NewBusiness("OTP not found or already used", goerror.CodeInvalidInput)

	status, body := doJSON(t, srv, "/verify-otp", `{"phone":"9876543210","otp":"000000"}`)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if got := messageField(t, body); got != "OTP not found or already used" {
		t.Fatalf("message = %q", got)
	}
}

func TestResetPassword(t *testing.T) {
	srv, fus := newTestServer(t)

	status, body := doJSON(t, srv, "/api/v1/otp/password/reset",
		`{"phone":"9876543210","otp":"482915","new_password":"N3wPassword!"}`)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if got := messageField(t, body); got != "Password has been reset successfully" {
		t.Fatalf("message = %q", got)
	}
	if fus.lastReset.NewPassword != "N3wPassword!" {
		t.Fatalf("new password passed through = %q", fus.lastReset.NewPassword)
	}
}

func TestResetPasswordServerError(t *testing.T) {
	srv, fus := newTestServer(t)
	fus.resetErr = goerror.NewServer(context.DeadlineExceeded)

	status, _ := doJSON(t, srv, "/reset-password",
		`{"phone":"9876543210","otp":"482915","new_password":"N3wPassword!"}`)

	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", status, http.StatusInternalServerError)
	}
}
