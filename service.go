package twofactor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/veilauth/twofactor/pkg/audit"
	"github.com/veilauth/twofactor/pkg/backup"
	"github.com/veilauth/twofactor/pkg/otp"
	"github.com/veilauth/twofactor/pkg/qrcode"
	"github.com/veilauth/twofactor/pkg/ratelimit"
	"github.com/veilauth/twofactor/pkg/replay"
	"github.com/veilauth/twofactor/pkg/secrets"
	"github.com/veilauth/twofactor/pkg/store"
)

// Audit event names emitted at each decision point of the flow.
const (
	EventSecretGenerated   = "secret generated"
	EventDisabled          = "two-factor disabled"
	EventBackupRegenerated = "backup codes regenerated"
	EventVerifySucceeded   = "verification succeeded"
	EventBackupCodeUsed    = "backup code used"
	EventVerifyFailed      = "verification failed"
	EventRateLimited       = "rate limited"
	EventReplayAttempt     = "replay attempt"
	EventInfraFailure      = "infrastructure failure"
)

// Method identifies which credential satisfied a verification.
type Method string

const (
	MethodTOTP   Method = "totp"
	MethodBackup Method = "backup_code"
)

const secretKeyPrefix = "secret:"

// Enrollment is the result of enrolling an account: material to show the
// user exactly once.
type Enrollment struct {
	Secret      string   // Base32 shared secret, for manual entry
	URI         string   // otpauth:// provisioning URI, for QR display
	BackupCodes []string // Ten single-use recovery codes
}

// Result is the uniform outcome of VerifyCode.
type Result struct {
	Success           bool
	Method            Method // Which credential matched; empty on failure
	RemainingAttempts int    // Attempt budget left in the current window
}

// Service composes secret provisioning, code verification, replay
// prevention, rate limiting, and backup-code fallback behind a single
// verification entry point. Construct one instance and pass it by
// reference; it keeps no process-wide state.
type Service struct {
	cfg     Config
	otpCfg  otp.Config
	appKey  []byte
	store   store.Store
	backup  *backup.Manager
	replay  replay.Guard
	limiter *ratelimit.SlidingWindow
	audit   audit.Logger
	locks   *keyedMutex
	now     func() time.Time
}

// Option configures a Service.
type Option func(*serviceDeps)

type serviceDeps struct {
	replayGuard  replay.Guard
	limiterStore ratelimit.Store
	auditLogger  audit.Logger
	now          func() time.Time
}

// WithReplayGuard replaces the default in-memory replay guard, e.g. with the
// Redis-backed one for multi-node deployments.
func WithReplayGuard(g replay.Guard) Option {
	return func(d *serviceDeps) { d.replayGuard = g }
}

// WithRateLimitStore replaces the default in-memory attempt store.
func WithRateLimitStore(s ratelimit.Store) Option {
	return func(d *serviceDeps) { d.limiterStore = s }
}

// WithAuditLogger replaces the default slog-backed audit sink.
func WithAuditLogger(l audit.Logger) Option {
	return func(d *serviceDeps) { d.auditLogger = l }
}

// WithClock replaces the time source. Used by tests to pin the current
// time step.
func WithClock(now func() time.Time) Option {
	return func(d *serviceDeps) { d.now = now }
}

// New creates a Service on the given credential store.
func New(cfg Config, s store.Store, opts ...Option) (*Service, error) {
	if s == nil {
		return nil, ErrStoreRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.OTP = cfg.OTP.GetDefaults()

	appKey, err := secrets.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	deps := serviceDeps{now: time.Now}
	for _, opt := range opts {
		opt(&deps)
	}

	if deps.replayGuard == nil {
		deps.replayGuard, err = replay.NewMemoryGuard(cfg.OTP.ReplayWindow())
		if err != nil {
			return nil, err
		}
	}
	if deps.limiterStore == nil {
		deps.limiterStore = ratelimit.NewMemoryStore()
	}
	if deps.auditLogger == nil {
		deps.auditLogger = audit.NewLogger(audit.NewSlogStorage(nil))
	}

	limiter, err := ratelimit.NewSlidingWindow(deps.limiterStore, cfg.MaxAttempts, cfg.AttemptWindow)
	if err != nil {
		return nil, err
	}

	backupMgr, err := backup.NewManager(s, appKey)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:     cfg,
		otpCfg:  cfg.OTP,
		appKey:  appKey,
		store:   s,
		backup:  backupMgr,
		replay:  deps.replayGuard,
		limiter: limiter,
		audit:   deps.auditLogger,
		locks:   newKeyedMutex(),
		now:     deps.now,
	}, nil
}

// Enroll creates the account's shared secret and backup codes, persists both
// encrypted, and returns the one-time display material. An existing
// enrollment is replaced.
func (s *Service) Enroll(ctx context.Context, accountID, accountLabel string) (*Enrollment, error) {
	if accountID == "" {
		return nil, ErrAccountIDRequired
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	secret, err := otp.GenerateSecret()
	if err != nil {
		return nil, s.provisioningFailure(ctx, accountID, err)
	}

	encrypted, err := secrets.EncryptString(s.appKey, accountID, secret)
	if err != nil {
		return nil, s.provisioningFailure(ctx, accountID, err)
	}

	if err := s.store.Set(ctx, secretKeyPrefix+accountID, encrypted); err != nil {
		return nil, s.provisioningFailure(ctx, accountID, err)
	}

	uri, err := otp.BuildURI(otp.URIParams{
		Secret:      secret,
		AccountName: accountLabel,
		Issuer:      s.cfg.Issuer,
		Algorithm:   s.otpCfg.Algorithm,
		Digits:      s.otpCfg.Digits,
		Period:      s.otpCfg.Period,
	})
	if err != nil {
		return nil, s.provisioningFailure(ctx, accountID, err)
	}

	codes, err := s.backup.Generate(ctx, accountID)
	if err != nil {
		return nil, s.provisioningFailure(ctx, accountID, err)
	}

	s.audit.Log(ctx, accountID, EventSecretGenerated)

	return &Enrollment{Secret: secret, URI: uri, BackupCodes: codes}, nil
}

// Disable removes the account's secret, backup codes, attempt records, and
// used-token records. Idempotent: disabling an account that was never
// enrolled succeeds.
func (s *Service) Disable(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrAccountIDRequired
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	if err := s.store.Delete(ctx, secretKeyPrefix+accountID); err != nil {
		return s.storageFailure(ctx, accountID, err)
	}
	if err := s.backup.Delete(ctx, accountID); err != nil {
		return s.storageFailure(ctx, accountID, err)
	}
	if err := s.limiter.Reset(ctx, accountID); err != nil {
		return s.storageFailure(ctx, accountID, err)
	}
	if err := s.replay.Clear(ctx, accountID); err != nil {
		return s.storageFailure(ctx, accountID, err)
	}

	s.audit.Log(ctx, accountID, EventDisabled)
	return nil
}

// Enrolled reports whether the account has a live secret.
func (s *Service) Enrolled(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, ErrAccountIDRequired
	}

	_, err := s.store.Get(ctx, secretKeyPrefix+accountID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.storageFailure(ctx, accountID, err)
	}
	return true, nil
}

// RegenerateBackupCodes replaces the account's backup codes with ten fresh
// ones and returns them for one-time display. Fails if the account is not
// enrolled.
func (s *Service) RegenerateBackupCodes(ctx context.Context, accountID string) ([]string, error) {
	if accountID == "" {
		return nil, ErrAccountIDRequired
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	if _, err := s.loadSecret(ctx, accountID); err != nil {
		return nil, err
	}

	codes, err := s.backup.Generate(ctx, accountID)
	if err != nil {
		return nil, s.provisioningFailure(ctx, accountID, err)
	}

	s.audit.Log(ctx, accountID, EventBackupRegenerated)
	return codes, nil
}

// ProvisioningQR renders the enrollment URI as a PNG QR code of the given
// size in pixels. Size 0 picks a sensible default.
func (s *Service) ProvisioningQR(uri string, size int) ([]byte, error) {
	return qrcode.Generate(uri, size)
}

// BackupCodesRemaining returns how many unused backup codes the account has.
// Zero signals the caller should prompt regeneration.
func (s *Service) BackupCodesRemaining(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, ErrAccountIDRequired
	}

	n, err := s.backup.Remaining(ctx, accountID)
	if err != nil {
		return 0, s.storageFailure(ctx, accountID, err)
	}
	return n, nil
}

// VerifyCode runs the full verification state machine for a submitted code:
// rate limit, format check, replay guard, TOTP window verification, and
// backup-code fallback. On failure the returned error wraps exactly one of
// the package sentinels and the Result carries the remaining attempt budget.
func (s *Service) VerifyCode(ctx context.Context, accountID, candidate string) (Result, error) {
	if accountID == "" {
		return Result{}, ErrAccountIDRequired
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	now := s.now()
	candidate = strings.TrimSpace(candidate)

	// 1. Attempt budget
	limit, err := s.limiter.Check(ctx, accountID, now)
	if err != nil {
		return Result{}, s.storageFailure(ctx, accountID, err)
	}
	if !limit.Allowed {
		s.audit.Log(ctx, accountID, EventRateLimited, audit.WithSeverity(audit.SeverityWarn))
		return Result{RemainingAttempts: 0}, ErrRateLimited
	}

	// 2. Format: a candidate is either a TOTP code or a backup code; anything
	// else is rejected before any crypto work, but still counts as a guess.
	isTOTP := otp.ValidCandidate(candidate, s.otpCfg.Digits)
	isBackup := validBackupFormat(candidate)
	if !isTOTP && !isBackup {
		return s.fail(ctx, accountID, now, ErrBadFormat)
	}

	// 3. Enrollment state. Absence is not a guess, so no attempt is recorded.
	secret, err := s.loadSecret(ctx, accountID)
	if err != nil {
		return Result{RemainingAttempts: limit.Remaining}, err
	}

	if isTOTP {
		// 4. Replay guard
		used, err := s.replay.IsUsed(ctx, accountID, candidate, now)
		if err != nil {
			return Result{}, s.storageFailure(ctx, accountID, err)
		}
		if used {
			s.audit.Log(ctx, accountID, EventReplayAttempt, audit.WithSeverity(audit.SeverityWarn))
			return s.fail(ctx, accountID, now, ErrReplayed)
		}

		// 5. Window-tolerant TOTP verification
		ok, err := otp.Verify(secret, candidate, now, s.otpCfg)
		if err != nil {
			return Result{}, s.storageFailure(ctx, accountID, err)
		}
		if ok {
			if err := s.replay.MarkUsed(ctx, accountID, candidate, now); err != nil {
				return Result{}, s.storageFailure(ctx, accountID, err)
			}
			if err := s.limiter.Reset(ctx, accountID); err != nil {
				return Result{}, s.storageFailure(ctx, accountID, err)
			}
			s.audit.Log(ctx, accountID, EventVerifySucceeded, audit.WithMetadata("method", string(MethodTOTP)))
			return Result{Success: true, Method: MethodTOTP, RemainingAttempts: s.cfg.MaxAttempts}, nil
		}
	}

	// 6. Backup-code fallback. Consumption removes the code permanently, so
	// the replay guard has nothing to track here. A recovered user gets a
	// fresh attempt budget, same as a TOTP success.
	if isBackup {
		ok, err := s.backup.VerifyAndConsume(ctx, accountID, candidate)
		if err != nil {
			return Result{}, s.storageFailure(ctx, accountID, err)
		}
		if ok {
			if err := s.limiter.Reset(ctx, accountID); err != nil {
				return Result{}, s.storageFailure(ctx, accountID, err)
			}
			s.audit.Log(ctx, accountID, EventBackupCodeUsed, audit.WithMetadata("method", string(MethodBackup)))
			return Result{Success: true, Method: MethodBackup, RemainingAttempts: s.cfg.MaxAttempts}, nil
		}
	}

	// 7. No credential matched
	return s.fail(ctx, accountID, now, ErrInvalidCode)
}

// fail records a failed attempt and wraps reason into the uniform result.
func (s *Service) fail(ctx context.Context, accountID string, now time.Time, reason error) (Result, error) {
	limit, err := s.limiter.RecordFailure(ctx, accountID, now)
	if err != nil {
		return Result{}, s.storageFailure(ctx, accountID, err)
	}

	s.audit.Log(ctx, accountID, EventVerifyFailed, audit.WithMetadata("reason", reason.Error()))
	return Result{RemainingAttempts: limit.Remaining}, reason
}

// loadSecret fetches and decrypts the account's shared secret, mapping
// absence to ErrNotEnrolled and anything else to ErrStorage.
func (s *Service) loadSecret(ctx context.Context, accountID string) (string, error) {
	encrypted, err := s.store.Get(ctx, secretKeyPrefix+accountID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotEnrolled
	}
	if err != nil {
		return "", s.storageFailure(ctx, accountID, err)
	}

	secret, err := secrets.DecryptString(s.appKey, accountID, encrypted)
	if err != nil {
		return "", s.storageFailure(ctx, accountID, err)
	}
	return secret, nil
}

// storageFailure wraps an infrastructure error and raises the distinct audit
// alert that separates infra problems from user errors.
func (s *Service) storageFailure(ctx context.Context, accountID string, err error) error {
	s.audit.Log(ctx, accountID, EventInfraFailure, audit.WithError(err))
	return errors.Join(ErrStorage, err)
}

// provisioningFailure wraps an enrollment-time error as ErrProvisioning with
// the infrastructure audit alert.
func (s *Service) provisioningFailure(ctx context.Context, accountID string, err error) error {
	s.audit.Log(ctx, accountID, EventInfraFailure, audit.WithError(err))
	return errors.Join(ErrProvisioning, err)
}

// validBackupFormat reports whether candidate has the shape of a backup
// code: exactly eight characters from [0-9A-Z], case-insensitive.
func validBackupFormat(candidate string) bool {
	if len(candidate) != backup.CodeLength {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
