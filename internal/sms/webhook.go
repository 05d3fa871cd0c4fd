package sms

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Webhook signature headers sent by the provider.
const (
	SignatureHeader = "X-Textbelt-Signature"
	TimestampHeader = "X-Textbelt-Timestamp"
)

// maxTimestampSkew is how far a webhook timestamp may drift from local
// time before the delivery is rejected outright.
const maxTimestampSkew = 900 * time.Second

// VerifySignature checks the provider's webhook signature: a hex HMAC-SHA256
// over the timestamp string concatenated with the raw payload bytes, keyed
// by the shared secret. Comparison is constant time.
func VerifySignature(secret, timestamp, signature string, payload []byte) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// TimestampFresh reports whether the unix-seconds timestamp string is within
// the allowed skew of now.
func TimestampFresh(timestamp string, now time.Time) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	diff := now.Sub(time.Unix(ts, 0))
	if diff < 0 {
		diff = -diff
	}
	return diff <= maxTimestampSkew
}
