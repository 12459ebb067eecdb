// Package qrcode renders provisioning URIs as QR codes for enrollment
// screens.
package qrcode
