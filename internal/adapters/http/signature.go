package http

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

// SignatureHeader carries the platform's webhook signature.
const SignatureHeader = "x-retell-signature"

// SignatureTolerance is how far a signature timestamp may drift from the server clock.
const SignatureTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrBadSignature     = errors.New("invalid signature")
	ErrStaleSignature   = errors.New("signature timestamp outside tolerance")
)

// Sign returns the header value for body at time at: v=<unix ms>,d=<hex digest>.
// The digest is HMAC-SHA256 over the body followed by the decimal timestamp.
func Sign(secret string, body []byte, at time.Time) string {
	ms := strconv.FormatInt(at.UnixMilli(), 10)
	return "v=" + ms + ",d=" + digest(secret, body, ms)
}

func digest(secret string, body []byte, ms string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte(ms))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header against body.
func Verify(secret string, body []byte, header string, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}
	var ms, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch k {
		case "v":
			ms = v
		case "d":
			sig = v
		}
	}
	if ms == "" || sig == "" {
		return fmt.Errorf("%w: malformed header", ErrBadSignature)
	}

	ts, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrBadSignature)
	}
	if d := now.Sub(time.UnixMilli(ts)); d > SignatureTolerance || d < -SignatureTolerance {
		return ErrStaleSignature
	}

	want := digest(secret, body, ms)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(sig))) {
		return ErrBadSignature
	}
	return nil
}
