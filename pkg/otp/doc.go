// Package otp implements the HOTP (RFC 4226) and TOTP (RFC 6238) one-time
// password algorithms used as the code engine of the two-factor subsystem.
//
// The package is stateless: everything is a pure function of a Base32 secret,
// a moment in time, and a Config. Secret generation, otpauth:// provisioning
// URI construction, single-step code computation (ComputeCode), and
// window-tolerant verification (Verify) all live here. Persistence,
// rate limiting, and replay tracking are the concern of sibling packages.
//
// Verify evaluates the current time step first and then offsets of ascending
// magnitude up to the configured tolerance, so a code is accepted with the least
// possible clock skew. Malformed candidates (wrong length, non-numeric) are
// rejected before any HMAC computation.
//
// # Usage
//
//	secret, _ := otp.GenerateSecret()
//
//	uri, _ := otp.BuildURI(otp.URIParams{
//	    Secret:      secret,
//	    AccountName: "alice@example.com",
//	    Issuer:      "Acme",
//	})
//
//	ok, _ := otp.Verify(secret, "123456", time.Now(), otp.Config{})
//
// # See Also
//
//   - RFC 4226 – HMAC-Based One-Time Password (HOTP) Algorithm
//   - RFC 6238 – Time-Based One-Time Password (TOTP) Algorithm
package otp
