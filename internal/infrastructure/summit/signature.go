package summit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "Summit-Signature"

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks header against the HMAC of the exact raw body. It never
// succeeds without both a secret and a signature.
func Verify(header string, body []byte, secret string) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(header))
}

// Verifier binds Verify to a configured secret.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(header string, body []byte) bool {
	return Verify(header, body, v.secret)
}
