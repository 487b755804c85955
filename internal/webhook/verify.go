// Package webhook is the authenticated ingress for asynchronous partner
// status updates. Verification fails closed: a missing secret or an unknown
// partner rejects the request before any payload parsing happens.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"uniapply/internal/common/errors"
)

// verifier checks a raw request body against the partner-supplied signature
// using the shared secret.
type verifier func(body []byte, signature, secret string) error

// verifiers is the per-partner signature scheme table.
var verifiers = map[string]verifier{
	"uct":          verifyHMACSHA256Hex,
	"wits":         verifyHMACSHA1Base64,
	"stellenbosch": verifySignedToken,
}

// defaultSignatureHeaders maps each partner to the header its webhooks carry
// the signature in, used when the partner record does not override it.
var defaultSignatureHeaders = map[string]string{
	"uct":          "X-Signature",
	"wits":         "X-Hub-Signature",
	"stellenbosch": "Authorization",
}

// verifyHMACSHA256Hex checks a hex-encoded HMAC-SHA256 digest of the body.
// Comparison is constant time.
func verifyHMACSHA256Hex(body []byte, signature, secret string) error {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("signature is not valid hex: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// verifyHMACSHA1Base64 checks a base64-encoded HMAC-SHA1 digest of the body.
func verifyHMACSHA1Base64(body []byte, signature, secret string) error {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// verifySignedToken checks an HS256-signed token carried in the signature
// header. The body is covered by the token itself, not digested separately.
func verifySignedToken(_ []byte, signature, secret string) error {
	token := strings.TrimPrefix(signature, "Bearer ")

	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("token verification failed: %w", err)
	}
	return nil
}

// Verify checks the signature of an inbound webhook request body for a
// partner. An unknown partner or an empty secret is a configuration error;
// a failed check is a signature error. Callers map those to 500 and 401
// respectively.
func Verify(partnerCode string, body []byte, signature, secret string) error {
	verify, ok := verifiers[strings.ToLower(partnerCode)]
	if !ok {
		return errors.NewConfigurationError(
			fmt.Sprintf("no webhook verifier registered for partner '%s'", partnerCode), "")
	}
	if secret == "" {
		return errors.NewConfigurationError(
			fmt.Sprintf("webhook secret not configured for partner '%s'", partnerCode), "")
	}
	if err := verify(body, signature, secret); err != nil {
		return errors.NewSignatureError(partnerCode, err.Error())
	}
	return nil
}

// SignatureHeader returns the header a partner's webhook signature arrives
// in, preferring the configured override.
func SignatureHeader(partnerCode, configured string) string {
	if configured != "" {
		return configured
	}
	if header, ok := defaultSignatureHeaders[strings.ToLower(partnerCode)]; ok {
		return header
	}
	return "X-Signature"
}
