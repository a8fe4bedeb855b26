package event

const PasswordResetCompletedDestination string = "password_reset_completed"

type PasswordResetCompletedMessage struct {
	AccountID int64  `json:"account_id"`
	PhoneKey  string `json:"phone_key"`
	ResetAt   int64  `json:"reset_at"`
}
