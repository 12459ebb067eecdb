package twofactor_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	twofactor "github.com/veilauth/twofactor"
	"github.com/veilauth/twofactor/pkg/audit"
	"github.com/veilauth/twofactor/pkg/otp"
	"github.com/veilauth/twofactor/pkg/secrets"
	"github.com/veilauth/twofactor/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1700000000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(ctx context.Context, accountID, action string, opts ...audit.EventOption) {
	event := audit.Event{AccountID: accountID, Action: action, Severity: audit.SeverityInfo}
	for _, opt := range opts {
		opt(&event)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, len(r.events))
	for i, e := range r.events {
		actions[i] = e.Action
	}
	return actions
}

// failingStore simulates an unreachable backend.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, error) {
	return "", store.ErrUnavailable
}
func (failingStore) Set(ctx context.Context, key, value string) error { return store.ErrUnavailable }
func (failingStore) Delete(ctx context.Context, key string) error     { return store.ErrUnavailable }

func testConfig(t *testing.T) twofactor.Config {
	t.Helper()

	key, err := secrets.GenerateEncodedKey()
	require.NoError(t, err)

	return twofactor.Config{
		Issuer:        "Acme",
		EncryptionKey: key,
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
	}
}

func newTestService(t *testing.T) (*twofactor.Service, *testClock, *recordingAudit) {
	t.Helper()

	clock := newTestClock()
	sink := &recordingAudit{}
	svc, err := twofactor.New(testConfig(t), store.NewMemoryStore(),
		twofactor.WithClock(clock.Now),
		twofactor.WithAuditLogger(sink),
	)
	require.NoError(t, err)
	return svc, clock, sink
}

// currentCode computes the TOTP code the authenticator app would show.
func currentCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := otp.ComputeCode(secret, otp.TimeStep(at, otp.DefaultPeriod), otp.AlgorithmSHA1, otp.DefaultDigits)
	require.NoError(t, err)
	return code
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := twofactor.New(testConfig(t), nil)
	assert.ErrorIs(t, err, twofactor.ErrStoreRequired)

	cfg := testConfig(t)
	cfg.Issuer = ""
	_, err = twofactor.New(cfg, store.NewMemoryStore())
	assert.ErrorIs(t, err, otp.ErrMissingIssuer)

	cfg = testConfig(t)
	cfg.EncryptionKey = "not base64 !!!"
	_, err = twofactor.New(cfg, store.NewMemoryStore())
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)

	cfg = testConfig(t)
	cfg.MaxAttempts = 0
	_, err = twofactor.New(cfg, store.NewMemoryStore())
	assert.ErrorIs(t, err, twofactor.ErrInvalidMaxAttempts)
}

func TestEnroll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, sink := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	assert.Regexp(t, otp.ValidSecretRegex, enrollment.Secret)
	assert.True(t, strings.HasPrefix(enrollment.URI, "otpauth://totp/Acme:alice@example.com?"))
	assert.Contains(t, enrollment.URI, "secret="+enrollment.Secret)
	assert.Contains(t, enrollment.URI, "issuer=Acme")
	assert.Contains(t, enrollment.URI, "algorithm=SHA1")
	assert.Contains(t, enrollment.URI, "digits=6")
	assert.Contains(t, enrollment.URI, "period=30")
	assert.Len(t, enrollment.BackupCodes, 10)

	enrolled, err := svc.Enrolled(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, enrolled)

	remaining, err := svc.BackupCodesRemaining(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	assert.Contains(t, sink.actions(), twofactor.EventSecretGenerated)
}

func TestEnrollStorageFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, err := twofactor.New(testConfig(t), failingStore{})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, "acct-1", "alice@example.com")
	assert.ErrorIs(t, err, twofactor.ErrProvisioning)
}

func TestProvisioningQR(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	png, err := svc.ProvisioningQR(enrollment.URI, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	_, err = svc.ProvisioningQR("", 0)
	assert.Error(t, err)
}

func TestVerifyCodeTOTPSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, sink := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	code := currentCode(t, enrollment.Secret, clock.Now())
	result, err := svc.VerifyCode(ctx, "acct-1", code)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, twofactor.MethodTOTP, result.Method)
	assert.Equal(t, 5, result.RemainingAttempts)
	assert.Contains(t, sink.actions(), twofactor.EventVerifySucceeded)
}

func TestVerifyCodeReplayBlocked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, sink := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	code := currentCode(t, enrollment.Secret, clock.Now())
	_, err = svc.VerifyCode(ctx, "acct-1", code)
	require.NoError(t, err)

	// Immediate replay of the accepted code is rejected
	result, err := svc.VerifyCode(ctx, "acct-1", code)
	assert.ErrorIs(t, err, twofactor.ErrReplayed)
	assert.False(t, result.Success)
	assert.Contains(t, sink.actions(), twofactor.EventReplayAttempt)

	// Once the code has aged out of the validity window it is no longer
	// tracked, but it also no longer verifies
	clock.Advance(2 * time.Minute)
	_, err = svc.VerifyCode(ctx, "acct-1", code)
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
}

func TestVerifyCodeWithClockSkew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, _ := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	// Code from the previous time step still verifies (tolerance 1)
	stale := currentCode(t, enrollment.Secret, clock.Now().Add(-30*time.Second))
	result, err := svc.VerifyCode(ctx, "acct-1", stale)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Two steps out is beyond tolerance
	svcB, clockB, _ := newTestService(t)
	enrollmentB, err := svcB.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)
	tooOld := currentCode(t, enrollmentB.Secret, clockB.Now().Add(-90*time.Second))
	_, err = svcB.VerifyCode(ctx, "acct-1", tooOld)
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
}

func TestVerifyCodeBackupFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, sink := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	c1 := enrollment.BackupCodes[0]
	result, err := svc.VerifyCode(ctx, "acct-1", c1)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, twofactor.MethodBackup, result.Method)
	assert.Contains(t, sink.actions(), twofactor.EventBackupCodeUsed)

	remaining, err := svc.BackupCodesRemaining(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)

	// A consumed backup code never verifies again
	result, err = svc.VerifyCode(ctx, "acct-1", c1)
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
	assert.False(t, result.Success)

	remaining, err = svc.BackupCodesRemaining(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)
}

func TestVerifyCodeScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, _ := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	// TOTP success leaves backup codes untouched
	code := currentCode(t, enrollment.Secret, clock.Now())
	result, err := svc.VerifyCode(ctx, "u1", code)
	require.NoError(t, err)
	assert.True(t, result.Success)

	remaining, err := svc.BackupCodesRemaining(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	// Replaying the same call fails
	_, err = svc.VerifyCode(ctx, "u1", code)
	assert.ErrorIs(t, err, twofactor.ErrReplayed)

	// First backup code succeeds once, then never again
	_, err = svc.VerifyCode(ctx, "u1", enrollment.BackupCodes[0])
	require.NoError(t, err)
	remaining, err = svc.BackupCodesRemaining(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)

	_, err = svc.VerifyCode(ctx, "u1", enrollment.BackupCodes[0])
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
	remaining, err = svc.BackupCodesRemaining(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)
}

func TestVerifyCodeRateLimited(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, sink := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "u2", "u2@example.com")
	require.NoError(t, err)

	// Five wrong guesses exhaust the budget
	for i := 0; i < 5; i++ {
		result, err := svc.VerifyCode(ctx, "u2", "000000")
		assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
		assert.Equal(t, 5-i-1, result.RemainingAttempts)
	}

	// The sixth call is denied even with the objectively correct code
	code := currentCode(t, enrollment.Secret, clock.Now())
	result, err := svc.VerifyCode(ctx, "u2", code)
	assert.ErrorIs(t, err, twofactor.ErrRateLimited)
	assert.Zero(t, result.RemainingAttempts)
	assert.Contains(t, sink.actions(), twofactor.EventRateLimited)

	// After the window rolls off, a correct code succeeds again
	clock.Advance(15*time.Minute + time.Second)
	code = currentCode(t, enrollment.Secret, clock.Now())
	result, err = svc.VerifyCode(ctx, "u2", code)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestVerifyCodeSuccessResetsAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, _ := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.VerifyCode(ctx, "acct-1", "000000")
		assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
	}

	code := currentCode(t, enrollment.Secret, clock.Now())
	_, err = svc.VerifyCode(ctx, "acct-1", code)
	require.NoError(t, err)

	// Budget is back to full: five more wrong guesses are possible
	for i := 0; i < 5; i++ {
		result, err := svc.VerifyCode(ctx, "acct-1", "111111")
		assert.ErrorIs(t, err, twofactor.ErrInvalidCode, "attempt %d", i)
		assert.Equal(t, 5-i-1, result.RemainingAttempts)
	}
}

func TestVerifyCodeBackupSuccessResetsAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.VerifyCode(ctx, "acct-1", "000000")
		assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
	}

	result, err := svc.VerifyCode(ctx, "acct-1", enrollment.BackupCodes[0])
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 5, result.RemainingAttempts)
}

func TestVerifyCodeBadFormat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	// Neither TOTP-shaped nor backup-shaped; counts as an attempt
	result, err := svc.VerifyCode(ctx, "acct-1", "abc")
	assert.ErrorIs(t, err, twofactor.ErrBadFormat)
	assert.Equal(t, 4, result.RemainingAttempts)

	result, err = svc.VerifyCode(ctx, "acct-1", "12345!")
	assert.ErrorIs(t, err, twofactor.ErrBadFormat)
	assert.Equal(t, 3, result.RemainingAttempts)
}

func TestVerifyCodeNotEnrolled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.VerifyCode(ctx, "nobody", "123456")
	assert.ErrorIs(t, err, twofactor.ErrNotEnrolled)

	// Enrollment state is a fact, not a guess: no attempt recorded
	for i := 0; i < 10; i++ {
		_, err = svc.VerifyCode(ctx, "nobody", "123456")
		assert.ErrorIs(t, err, twofactor.ErrNotEnrolled)
		assert.NotErrorIs(t, err, twofactor.ErrRateLimited)
	}
}

func TestVerifyCodeStorageFailureDistinct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &recordingAudit{}
	svc, err := twofactor.New(testConfig(t), failingStore{},
		twofactor.WithAuditLogger(sink),
	)
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, "acct-1", "123456")
	assert.ErrorIs(t, err, twofactor.ErrStorage)
	assert.NotErrorIs(t, err, twofactor.ErrNotEnrolled)
	assert.Contains(t, sink.actions(), twofactor.EventInfraFailure)
}

func TestDisable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, sink := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Disable(ctx, "acct-1"))
	assert.Contains(t, sink.actions(), twofactor.EventDisabled)

	enrolled, err := svc.Enrolled(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, enrolled)

	// Secret is gone: the previously valid code now reports not enrolled
	code := currentCode(t, enrollment.Secret, clock.Now())
	_, err = svc.VerifyCode(ctx, "acct-1", code)
	assert.ErrorIs(t, err, twofactor.ErrNotEnrolled)

	// Backup codes are gone too
	remaining, err := svc.BackupCodesRemaining(ctx, "acct-1")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	// Idempotent
	require.NoError(t, svc.Disable(ctx, "acct-1"))
	require.NoError(t, svc.Disable(ctx, "never-enrolled"))
}

func TestDisableClearsAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, _ := newTestService(t)

	_, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.VerifyCode(ctx, "acct-1", "000000")
		assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
	}

	require.NoError(t, svc.Disable(ctx, "acct-1"))

	// Re-enrollment starts with a clean slate
	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	code := currentCode(t, enrollment.Secret, clock.Now())
	result, err := svc.VerifyCode(ctx, "acct-1", code)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRegenerateBackupCodes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, sink := newTestService(t)

	enrollment, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	// Consume one code, then regenerate
	_, err = svc.VerifyCode(ctx, "acct-1", enrollment.BackupCodes[0])
	require.NoError(t, err)

	fresh, err := svc.RegenerateBackupCodes(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, fresh, 10)
	assert.Contains(t, sink.actions(), twofactor.EventBackupRegenerated)

	remaining, err := svc.BackupCodesRemaining(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	// Codes from the old set no longer verify
	_, err = svc.VerifyCode(ctx, "acct-1", enrollment.BackupCodes[1])
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)

	// Regeneration requires enrollment
	_, err = svc.RegenerateBackupCodes(ctx, "nobody")
	assert.ErrorIs(t, err, twofactor.ErrNotEnrolled)
}

func TestReEnrollReplacesSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, _ := newTestService(t)

	first, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)
	second, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	// Only the new secret verifies
	_, err = svc.VerifyCode(ctx, "acct-1", currentCode(t, first.Secret, clock.Now()))
	assert.ErrorIs(t, err, twofactor.ErrInvalidCode)

	result, err := svc.VerifyCode(ctx, "acct-1", currentCode(t, second.Secret, clock.Now()))
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestConcurrentFailuresCountExactly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Enroll(ctx, "acct-1", "alice@example.com")
	require.NoError(t, err)

	// Per-account serialization: concurrent wrong guesses must not lose
	// attempt-counter updates
	var wg sync.WaitGroup
	var mu sync.Mutex
	var rateLimited, invalid int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyCode(ctx, "acct-1", "000000")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, twofactor.ErrRateLimited):
				rateLimited++
			case errors.Is(err, twofactor.ErrInvalidCode):
				invalid++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, invalid)
	assert.Equal(t, 3, rateLimited)
}

func TestAccountsAreIndependent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, clock, _ := newTestService(t)

	a, err := svc.Enroll(ctx, "acct-a", "a@example.com")
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, "acct-b", "b@example.com")
	require.NoError(t, err)

	// Exhaust acct-b's budget; acct-a is unaffected
	for i := 0; i < 5; i++ {
		_, err := svc.VerifyCode(ctx, "acct-b", "000000")
		assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
	}
	_, err = svc.VerifyCode(ctx, "acct-b", "000000")
	assert.ErrorIs(t, err, twofactor.ErrRateLimited)

	result, err := svc.VerifyCode(ctx, "acct-a", currentCode(t, a.Secret, clock.Now()))
	require.NoError(t, err)
	assert.True(t, result.Success)
}
