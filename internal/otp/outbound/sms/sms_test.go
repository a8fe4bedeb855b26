package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/satriadi/otpgate/internal/pkg/instrument"
)

func TestGatewaySend(t *testing.T) {
	var gotAuth string
	var gotBody sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := NewGateway(Config{
		BaseURL: srv.URL,
		APIKey:  "secret-key",
		Sender:  "OTPGATE",
		Timeout: time.Second,
	}, instrument.NewNoop())

	if err := gw.Send(context.Background(), "+919876543210", "482915"); err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotBody.To != "+919876543210" {
		t.Fatalf("request To = %q, want destination number", gotBody.To)
	}
	if !strings.Contains(gotBody.Message, "482915") {
		t.Fatalf("request message %q does not carry the code", gotBody.Message)
	}
}

func TestGatewaySendGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewGateway(Config{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second}, instrument.NewNoop())

	err := gw.Send(context.Background(), "9876543210", "123456")
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("Send() error = %v, want ErrDelivery", err)
	}
}

func TestGatewaySendConnectionRefused(t *testing.T) {
	gw := NewGateway(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", Timeout: time.Second}, instrument.NewNoop())

	err := gw.Send(context.Background(), "9876543210", "123456")
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("Send() error = %v, want ErrDelivery", err)
	}
}
