package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the provider's signature over the raw request
// body. Verification happens before the body is parsed as JSON.
const SignatureHeader = "Payment-Signature"

// DefaultTolerance bounds how old a signed timestamp may be before the
// delivery is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("signature verification failed")
	ErrSignatureExpired = errors.New("signature timestamp outside tolerance")
	ErrMissingSecret    = errors.New("webhook secret is not configured")
)

// Sign computes the provider's signature header value for a payload:
// "t=<unix>,v1=<hex hmac-sha256 of '<unix>.<payload>'>". Exposed so tests
// and tooling can produce valid deliveries.
func Sign(payload []byte, secret string, ts time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), computeSignature(payload, secret, ts.Unix()))
}

// VerifySignature checks header against the raw payload bytes. The
// comparison is constant-time and the signed timestamp must fall within
// tolerance of now.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if header == "" {
		return ErrMissingSignature
	}

	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Unix() - ts
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > tolerance {
		return ErrSignatureExpired
	}

	expected := computeSignature(payload, secret, ts)
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func computeSignature(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// parseSignatureHeader splits "t=...,v1=...,v1=..." into the timestamp and
// candidate signatures. Multiple v1 entries occur during secret rotation.
func parseSignatureHeader(header string) (int64, []string, error) {
	var ts int64 = -1
	var sigs []string

	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, v)
		}
	}

	if ts < 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}
	return ts, sigs, nil
}
