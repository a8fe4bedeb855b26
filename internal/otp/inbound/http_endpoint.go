package inbound

import (
	"github.com/satriadi/otpgate/internal/otp/usecase"
	"github.com/satriadi/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for the OTP lifecycle and the
// OTP-gated password reset.
type HTTPEndpoint struct {
	uc uc
}

// SendOTP issues a fresh code for a phone number and delivers it via SMS.
func (h *HTTPEndpoint) SendOTP(r *router.Request) (any, error) {
	var req SendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RequestOTP(r.Context(), usecase.RequestOTPInput{
		Phone: req.Phone,
	}); err != nil {
		return nil, err
	}

	return SendOTPResponse{}, nil
}

// VerifyOTP checks a submitted code without consuming it.
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		Phone: req.Phone,
		OTP:   req.OTP,
	}); err != nil {
		return nil, err
	}

	return VerifyOTPResponse{Verified: true}, nil
}

// ResetPassword consumes a valid code and sets a new credential.
func (h *HTTPEndpoint) ResetPassword(r *router.Request) (any, error) {
	var req ResetPasswordRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ResetPassword(r.Context(), usecase.ResetPasswordInput{
		Phone:       req.Phone,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return ResetPasswordResponse{}, nil
}
