package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func TestVerifySignature_Valid(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()

	header := Sign(payload, testSecret, now)
	err := VerifySignature(payload, header, testSecret, DefaultTolerance, now)

	assert.NoError(t, err)
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	err := VerifySignature([]byte(`{}`), "", testSecret, DefaultTolerance, time.Now())

	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerifySignature_MissingSecret(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, time.Now())

	err := VerifySignature(payload, header, "", DefaultTolerance, time.Now())

	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := Sign(payload, "whsec_other_secret", now)
	err := VerifySignature(payload, header, testSecret, DefaultTolerance, now)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","amount_total":1000}`)
	now := time.Now()
	header := Sign(payload, testSecret, now)

	// A single flipped byte must invalidate the signature.
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = '9'

	err := VerifySignature(tampered, header, testSecret, DefaultTolerance, now)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_ExpiredTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := Sign(payload, testSecret, now.Add(-10*time.Minute))
	err := VerifySignature(payload, header, testSecret, DefaultTolerance, now)

	assert.ErrorIs(t, err, ErrSignatureExpired)
}

func TestVerifySignature_FutureTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := Sign(payload, testSecret, now.Add(10*time.Minute))
	err := VerifySignature(payload, header, testSecret, DefaultTolerance, now)

	assert.ErrorIs(t, err, ErrSignatureExpired)
}

func TestVerifySignature_WithinTolerance(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := Sign(payload, testSecret, now.Add(-4*time.Minute))
	err := VerifySignature(payload, header, testSecret, DefaultTolerance, now)

	assert.NoError(t, err)
}

func TestVerifySignature_SecretRotation(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	// During rotation the provider sends one v1 per active secret; any
	// single match must verify.
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(),
		computeSignature(payload, "whsec_old", now.Unix()),
		computeSignature(payload, testSecret, now.Unix()))

	err := VerifySignature(payload, header, testSecret, DefaultTolerance, now)

	assert.NoError(t, err)
}

func TestVerifySignature_MalformedHeader(t *testing.T) {
	payload := []byte(`{}`)

	for _, header := range []string{
		"garbage",
		"t=abc,v1=deadbeef",
		"t=12345",
		"v1=deadbeef",
	} {
		err := VerifySignature(payload, header, testSecret, DefaultTolerance, time.Now())
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}

func TestSign_HeaderShape(t *testing.T) {
	now := time.Unix(1700000000, 0)
	header := Sign([]byte("body"), testSecret, now)

	require.Contains(t, header, "t=1700000000,v1=")
	assert.Len(t, header, len("t=1700000000,v1=")+64)
}
