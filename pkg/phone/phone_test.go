package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4085551234", "+14085551234"},
		{"(408) 555-1234", "+14085551234"},
		{"1-408-555-1234", "+14085551234"},
		{"+1 408 555 1234", "+14085551234"},
		{"", ""},
		{"408", "+1408"},
		{"+44 20 7946 0958", "+442079460958"},
		{"   ", ""},
		{"ext.", ""},
		{"555-1234", "+15551234"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeE164(tt.in))
		})
	}
}

func TestNormalizeE164With(t *testing.T) {
	assert.Equal(t, "+447946095812", NormalizeE164With("7946095812", "+44"))
}

func TestValidateE164(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"+14085551234", true},
		{"+442079460958", true},
		{"+1408", false},
		{"+140855512345", false},
		{"14085551234", false},
		{"+0123456", false},
		{"", false},
		{"+1234567890123456", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ok, reason := ValidateE164(tt.in)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestValidateE164_NANPLength(t *testing.T) {
	_, reason := ValidateE164("+1408")
	assert.Contains(t, reason, "10 digits after +1")
}

func TestCheck(t *testing.T) {
	r := Check("408")
	assert.Equal(t, Result{Original: "408", Normalized: "+1408", Valid: false, Reason: r.Reason}, r)
	assert.NotEmpty(t, r.Reason)

	assert.True(t, Check("(408) 555-1234").Valid)
}

func TestLast10(t *testing.T) {
	assert.Equal(t, "4085551234", Last10("+1 (408) 555-1234"))
	assert.Equal(t, "5551234", Last10("555-1234"))
}
