// Package webhook authenticates inbound execution requests by a keyed hash
// over the exact raw body bytes.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrMissingSignature = errors.New("missing X-Signature header")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Verifier checks HMAC-SHA256 signatures against a shared secret. With no
// secret configured every request passes; that mode exists for first-time
// bring-up and is announced at startup, not a production default.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return &Verifier{}
	}
	return &Verifier{secret: []byte(secret)}
}

// Enabled reports whether a shared secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Verify checks the hex-encoded signature over rawBody. Comparison is
// constant-time. Absent and mismatched signatures are both rejected when a
// secret is configured.
func (v *Verifier) Verify(rawBody []byte, providedSig string) error {
	if !v.Enabled() {
		return nil
	}
	if providedSig == "" {
		return ErrMissingSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(providedSig)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature a caller would attach for rawBody. Used by
// tests and by operators generating probe requests.
func (v *Verifier) Sign(rawBody []byte) string {
	if !v.Enabled() {
		return ""
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
