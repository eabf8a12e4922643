package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyMatchesExpectedHMAC(t *testing.T) {
	v := NewVerifier("shared-secret")

	mac := hmac.New(sha256.New, []byte("shared-secret"))
	mac.Write([]byte("order_1|pay_1"))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, v.Sign("order_1", "pay_1"))
	assert.True(t, v.Verify("order_1", "pay_1", expected))
}

func TestVerifyRejectsAnyMutation(t *testing.T) {
	v := NewVerifier("shared-secret")
	sig := v.Sign("order_1", "pay_1")

	// Flip every nibble of the hex signature one at a time.
	for i := range sig {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if string(mutated) == sig {
			continue
		}
		assert.False(t, v.Verify("order_1", "pay_1", string(mutated)), "mutation at %d accepted", i)
	}
}

func TestVerifyRejectsWrongInputs(t *testing.T) {
	v := NewVerifier("shared-secret")
	sig := v.Sign("order_1", "pay_1")

	assert.False(t, v.Verify("order_2", "pay_1", sig))
	assert.False(t, v.Verify("order_1", "pay_2", sig))
	assert.False(t, v.Verify("order_1", "pay_1", ""))

	other := NewVerifier("other-secret")
	assert.False(t, other.Verify("order_1", "pay_1", sig))
}

func TestSignIsDeterministic(t *testing.T) {
	v := NewVerifier("shared-secret")
	require.Equal(t, v.Sign("a", "b"), v.Sign("a", "b"))

	// The separator binds the two references; shifting characters
	// across it must change the signature.
	assert.NotEqual(t, v.Sign("ab", "c"), v.Sign("a", "bc"))
}
