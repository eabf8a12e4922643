package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier validates that a claimed payment completion was authorized
// by the gateway. The signature is HMAC-SHA256 over
// "orderRef|paymentRef" keyed with the shared secret, hex-encoded.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign computes the expected signature for the given references.
func (v *Verifier) Sign(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether claimed matches the expected signature. The
// comparison is constant-time; never replace it with ==.
func (v *Verifier) Verify(orderRef, paymentRef, claimed string) bool {
	expected := v.Sign(orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(claimed))
}
