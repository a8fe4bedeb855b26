package app

import (
	"log/slog"
	"os"

	"github.com/satriadi/otpgate/internal/otp"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.otp.enabled") {
		err := otp.New(otp.Dependency{
			DBConn:        a.dbConn,
			CacheConn:     a.cacheConn,
			Goroutine:     a.goroutine,
			Router:        a.router,
			Idempotency:   a.idemp,
			Messaging:     a.messaging,
			SMSGateway:    a.sms,
			Config:        a.config,
			Instrument:    a.ins,
			HMAC:          a.hmac,
			Bcrypt:        a.bcrypt,
			Argon2ID:      a.argon2id,
			CodeGenerator: a.codegen,
			UID:           a.uid,
			Clock:         a.clock,
			Validator:     a.validator,
		})
		if err != nil {
			slog.Error("failed to init module otp", "error", err)
			os.Exit(1)
		}
	}
}
