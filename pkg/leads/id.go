package leads

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a lead ID of the form LEAD-YYYYMMDD-XXXXXXXX.
func NewID(at time.Time) string {
	return "LEAD-" + at.UTC().Format("20060102") + "-" + shortUUID()
}

// NewConfirmation returns a booking confirmation number of the form APT-XXXXXXXX.
func NewConfirmation() string {
	return "APT-" + shortUUID()
}

func shortUUID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
