package otp

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"
)

// Algorithm identifies the HMAC hash used for code computation. SHA1 is the
// RFC 6238 default and the only value most authenticator apps support; SHA256
// and SHA512 are accepted for deployments that require them.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

// ParseAlgorithm converts a case-insensitive algorithm name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToUpper(strings.TrimSpace(name))) {
	case AlgorithmSHA1:
		return AlgorithmSHA1, nil
	case AlgorithmSHA256:
		return AlgorithmSHA256, nil
	case AlgorithmSHA512:
		return AlgorithmSHA512, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAlgorithm, name)
	}
}

// Hash returns the hash constructor for the algorithm.
func (a Algorithm) Hash() (func() hash.Hash, error) {
	switch a {
	case AlgorithmSHA1:
		return sha1.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, string(a))
	}
}
