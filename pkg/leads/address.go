package leads

import (
	"regexp"
	"strings"
)

// Address is a US postal address split into lead fields.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

var stateZip = regexp.MustCompile(`^([A-Za-z]{2})(?:\s+(\d{5}(?:-\d{4})?))?$`)

// ParseAddress splits "street, city, ST 12345". Parts it cannot recognize stay
// in Street, so nothing the caller said is lost.
func ParseAddress(s string) Address {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return Address{Street: strings.TrimSpace(s)}
	}

	last := parts[len(parts)-1]
	m := stateZip.FindStringSubmatch(last)
	if m == nil {
		return Address{Street: strings.TrimSpace(s)}
	}
	return Address{
		Street: strings.Join(parts[:len(parts)-2], ", "),
		City:   parts[len(parts)-2],
		State:  strings.ToUpper(m[1]),
		Zip:    m[2],
	}
}
