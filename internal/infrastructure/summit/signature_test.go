package summit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

var webhookBody = []byte(`{"reference":"R1","status":"commit"}`)

func TestVerify_ValidSignature(t *testing.T) {
	sig := Sign(webhookBody, testSecret)

	assert.Len(t, sig, 64)
	assert.True(t, Verify(sig, webhookBody, testSecret))
}

func TestVerify_EmptyHeader(t *testing.T) {
	assert.False(t, Verify("", webhookBody, testSecret))
	assert.False(t, Verify("   ", webhookBody, testSecret))
}

func TestVerify_EmptySecret(t *testing.T) {
	sig := Sign(webhookBody, "")
	assert.False(t, Verify(sig, webhookBody, ""))
}

func TestVerify_FlippedBodyByte(t *testing.T) {
	sig := Sign(webhookBody, testSecret)

	for i := range webhookBody {
		tampered := append([]byte(nil), webhookBody...)
		tampered[i] ^= 0x01
		assert.False(t, Verify(sig, tampered, testSecret), "byte %d flipped", i)
	}
}

func TestVerify_FlippedSignatureByte(t *testing.T) {
	sig := []byte(Sign(webhookBody, testSecret))

	for i := range sig {
		tampered := append([]byte(nil), sig...)
		if tampered[i] == '0' {
			tampered[i] = '1'
		} else {
			tampered[i] = '0'
		}
		assert.False(t, Verify(string(tampered), webhookBody, testSecret), "byte %d flipped", i)
	}
}

func TestVerify_ReserializedBodyRejected(t *testing.T) {
	sig := Sign(webhookBody, testSecret)
	reordered := []byte(`{"status":"commit","reference":"R1"}`)

	assert.False(t, Verify(sig, reordered, testSecret))
}

func TestVerify_WrongSecret(t *testing.T) {
	sig := Sign(webhookBody, "other")
	assert.False(t, Verify(sig, webhookBody, testSecret))
}

func TestVerifier(t *testing.T) {
	v := NewVerifier(testSecret)
	assert.True(t, v.Verify(Sign(webhookBody, testSecret), webhookBody))
	assert.False(t, v.Verify("deadbeef", webhookBody))
}
