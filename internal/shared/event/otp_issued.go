package event

const OTPIssuedDestination string = "otp_issued"

type OTPIssuedMessage struct {
	PhoneKey  string `json:"phone_key"`
	ExpiresAt int64  `json:"expires_at"`
	IssuedAt  int64  `json:"issued_at"`
}
