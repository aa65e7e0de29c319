// Package signature implements webhook payload authentication for each
// provider's signing scheme.
//
// GitHub signs each delivery with an HMAC-SHA1 over the raw request body,
// keyed by the per-project webhook secret. Travis signs the form-encoded
// payload field with the account-wide RSA key published on its config
// endpoint. The two trust models are intentionally different and must not
// be unified.
package signature

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/alexcrichton/bors2/internal/domain"
)

// GitHubSignature computes the signature GitHub sends in X-Hub-Signature:
// "sha1=" followed by the hex HMAC-SHA1 of body under secret.
func GitHubSignature(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyGitHub checks a GitHub delivery signature against the raw body.
// The comparison is constant-time.
func VerifyGitHub(secret string, body []byte, signature string) error {
	expected := GitHubSignature(secret, body)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("github hmac mismatch: %w", domain.ErrInvalidSignature)
	}
	return nil
}

// ParsePublicKey parses a PEM-encoded RSA public key as served by the
// Travis config endpoint. Both PKIX ("PUBLIC KEY") and PKCS#1
// ("RSA PUBLIC KEY") encodings are accepted.
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in public key: %w", domain.ErrDecode)
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", domain.ErrDecode)
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA: %w", pub, domain.ErrDecode)
	}
	return rsaKey, nil
}

// VerifyTravis checks a detached RSA-SHA1 signature over the payload
// field of a Travis delivery.
func VerifyTravis(key *rsa.PublicKey, payload, sig []byte) error {
	digest := sha1.Sum(payload)
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA1, digest[:], sig); err != nil {
		return fmt.Errorf("travis signature mismatch: %w", domain.ErrInvalidSignature)
	}
	return nil
}
