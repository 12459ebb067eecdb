// Package twofactor implements a complete TOTP second-factor subsystem:
// secret provisioning, window-tolerant code verification, replay prevention,
// rate limiting, and single-use backup codes, composed behind one Service.
//
// The building blocks live in pkg/ and are usable on their own:
//
//   - pkg/otp       - RFC 4226/6238 code computation and provisioning URIs
//   - pkg/secrets   - account-scoped AES-256-GCM encryption of stored material
//   - pkg/store     - encrypted key-value persistence (memory, Redis, Postgres)
//   - pkg/backup    - single-use recovery codes with atomic consumption
//   - pkg/replay    - used-code tracking across the verification window
//   - pkg/ratelimit - sliding-window attempt budget per account
//   - pkg/audit     - fire-and-forget security event sink
//   - pkg/qrcode    - provisioning QR rendering
//
// The Service is an explicit component: construct it once with New and pass
// it by reference. Operations for the same account are serialized internally,
// so concurrent verifications cannot lose rate-limiter or backup-code
// updates; different accounts proceed in parallel.
//
// # Usage
//
//	cfg, err := twofactor.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := twofactor.New(cfg, store.NewMemoryStore())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	enrollment, err := svc.Enroll(ctx, "acct-42", "alice@example.com")
//	// show enrollment.URI as a QR code and enrollment.BackupCodes once
//
//	result, err := svc.VerifyCode(ctx, "acct-42", "123456")
//	switch {
//	case err == nil:
//	    // second factor satisfied via result.Method
//	case errors.Is(err, twofactor.ErrRateLimited):
//	    // deny and surface result.RemainingAttempts
//	}
package twofactor
