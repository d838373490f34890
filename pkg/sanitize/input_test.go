package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimits_PerSource(t *testing.T) {
	tests := []struct {
		name    string
		clean   func(field, value string) (string, error)
		size    int
		wantErr bool
	}{
		{"cell at limit", Cell, MaxCellSize, false},
		{"cell over limit", Cell, MaxCellSize + 1, true},
		{"variable longer than any cell", Variable, MaxCellSize + 1, false},
		{"variable at limit", Variable, MaxVariableSize, false},
		{"variable over limit", Variable, MaxVariableSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.clean("Notes", strings.Repeat("a", tt.size))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLimits_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxCellSize, "8")
	_, err := Cell("Address", "123456789")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = Variable("caller_name", "123456789")
	assert.NoError(t, err, "the cell override leaves call variables alone")

	t.Setenv(EnvMaxVariableSize, "4")
	_, err = Variable("caller_name", "Dana")
	assert.NoError(t, err)
	_, err = Variable("caller_name", "Dana R")
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestFieldError_NamesField(t *testing.T) {
	_, err := Cell("Business Name", "bad \xff byte")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
	assert.Equal(t, "Business Name: input contains invalid UTF-8 sequences", err.Error())

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, SourceCell, fe.Source)
	assert.Equal(t, "Business Name", fe.Field)

	_, err = Variable("caller_email", strings.Repeat("x", MaxVariableSize+1))
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, SourceVariable, fe.Source)
	assert.Equal(t, "caller_email", fe.Field)
}

func TestCell_StripsUnsafeRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "Green Valley Landscaping", "Green Valley Landscaping"},
		{"Multiline Address", "123 Main St\nSpringfield\tIL", "123 Main St\nSpringfield\tIL"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Byte Order Mark", "\ufeffAcme", "Acme"},
		{"Bidi Override", "Acme \u202egnipacsdnaL\u202c", "Acme gnipacsdnaL"},
		{"Accents Kept", "Peña Jardinería", "Peña Jardinería"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cell("Business Name", tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
