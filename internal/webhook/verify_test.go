package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniapply/internal/common/errors"
)

func signSHA256Hex(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signSHA1Base64(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signToken(t *testing.T, secret string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "sun",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyUCTSignature(t *testing.T) {
	body := []byte(`{"applicationNumber":"UCT123","status":"ACCEPTED"}`)

	assert.NoError(t, Verify("uct", body, signSHA256Hex(body, "secret"), "secret"))

	err := Verify("uct", body, signSHA256Hex(body, "wrong-secret"), "secret")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSignature))

	err = Verify("uct", body, "not-hex!", "secret")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSignature))
}

func TestVerifyWitsSignature(t *testing.T) {
	body := []byte(`{"applicationReference":"WITS-1","currentStatus":"OFFER_MADE"}`)

	assert.NoError(t, Verify("wits", body, signSHA1Base64(body, "secret"), "secret"))

	err := Verify("wits", body, signSHA1Base64(body, "other"), "secret")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSignature))
}

func TestVerifyStellenboschToken(t *testing.T) {
	body := []byte(`{"aansoekNommer":"SU-1","status":"AANVAAR"}`)

	assert.NoError(t, Verify("stellenbosch", body, signToken(t, "secret"), "secret"))
	assert.NoError(t, Verify("stellenbosch", body, "Bearer "+signToken(t, "secret"), "secret"))

	err := Verify("stellenbosch", body, signToken(t, "other"), "secret")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSignature))
}

func TestVerifyFailsClosed(t *testing.T) {
	body := []byte(`{}`)

	err := Verify("unknown-university", body, "sig", "secret")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfiguration))

	err = Verify("uct", body, signSHA256Hex(body, ""), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfiguration),
		"missing secret must be a configuration failure, not a signature pass")
}

func TestSignatureHeaderDefaults(t *testing.T) {
	assert.Equal(t, "X-Signature", SignatureHeader("uct", ""))
	assert.Equal(t, "X-Hub-Signature", SignatureHeader("wits", ""))
	assert.Equal(t, "Authorization", SignatureHeader("stellenbosch", ""))
	assert.Equal(t, "X-Custom", SignatureHeader("uct", "X-Custom"))
}
