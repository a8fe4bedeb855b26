package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/satriadi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
)

// ErrDelivery indicates the gateway rejected or failed the send.
var ErrDelivery = errors.New("sms: delivery failed")

// Config configures the gateway client.
type Config struct {
	// BaseURL is the gateway endpoint, e.g. https://sms.example.com.
	BaseURL string
	// APIKey authenticates requests to the gateway.
	APIKey string
	// Sender is the sender id attached to outgoing messages.
	Sender string
	// Template is the message body; the code replaces a single %s verb.
	Template string
	// Timeout bounds a single send call.
	Timeout time.Duration
}

// Gateway delivers plaintext OTP codes over an HTTP SMS provider.
type Gateway struct {
	cfg    Config
	client *http.Client
	ins    instrument.Instrumentation
}

func NewGateway(cfg Config, ins instrument.Instrumentation) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.Template == "" {
		cfg.Template = "Your verification code is %s"
	}

	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		ins:    ins,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

// Send delivers the code to the destination number. The code travels only in
// the request body, never in logs or spans.
func (g *Gateway) Send(ctx context.Context, phone, code string) (err error) {
	ctx, span := g.ins.Tracer("otp.outbound.sms").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(sendRequest{
		To:      phone,
		Sender:  g.cfg.Sender,
		Message: fmt.Sprintf(g.cfg.Template, code),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned status %d", ErrDelivery, resp.StatusCode)
	}

	return nil
}
