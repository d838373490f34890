package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		bindings map[string]string
		want     string
	}{
		{"plain", "Hello there", nil, "Hello there"},
		{"variable", "Hi {{name}}!", map[string]string{"name": "Sam"}, "Hi Sam!"},
		{"unset variable renders empty", "Hi {{name}}!", nil, "Hi !"},
		{"spaces inside tag", "Hi {{ name }}", map[string]string{"name": "Sam"}, "Hi Sam"},
		{"section set", "Hi{{#name}}, {{name}}{{/name}}.", map[string]string{"name": "Sam"}, "Hi, Sam."},
		{"section unset", "Hi{{#name}}, {{name}}{{/name}}.", nil, "Hi."},
		{"empty string is unset", "{{#name}}x{{/name}}", map[string]string{"name": ""}, ""},
		{"inverted unset", "{{^type}}your business{{/type}}", nil, "your business"},
		{"inverted set", "{{^type}}your business{{/type}}", map[string]string{"type": "hvac"}, ""},
		{
			"section and inverted",
			"your {{#type}}{{type}}{{/type}}{{^type}}business{{/type}}",
			map[string]string{"type": "hvac"},
			"your hvac",
		},
		{
			"nested",
			"{{#a}}A{{#b}}B{{/b}}{{^b}}-{{/b}}{{/a}}",
			map[string]string{"a": "1"},
			"A-",
		},
		{"single braces pass through", "{ not a tag }", nil, "{ not a tag }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.text, tt.bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  int
	}{
		{"unterminated", "Hi {{name", 3},
		{"empty tag", "Hi {{}}", 3},
		{"unclosed section", "{{#a}}text", 0},
		{"stray close", "text{{/a}}", 4},
		{"mismatched close", "{{#a}}{{#b}}{{/a}}{{/b}}", 12},
		{"bad name", "{{na me}}", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.text, nil)
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.pos, se.Pos)
		})
	}
}

func TestReferences(t *testing.T) {
	text := "Hi {{#owner}}{{owner}}{{/owner}} about {{service}}{{^zip}}, where?{{/zip}}"
	refs, err := References(text)
	require.NoError(t, err)
	require.Len(t, refs, 4)

	assert.Equal(t, Reference{Name: "owner", Pos: 3, Section: true}, refs[0])
	assert.Equal(t, "owner", refs[1].Name)
	assert.True(t, refs[1].Guarded)
	assert.True(t, refs[1].HasFallback())

	assert.Equal(t, "service", refs[2].Name)
	assert.False(t, refs[2].HasFallback())

	assert.Equal(t, "zip", refs[3].Name)
	assert.True(t, refs[3].Section)
}

func TestReferences_GuardIsPerName(t *testing.T) {
	refs, err := References("{{#a}}{{b}}{{/a}}")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.False(t, refs[1].Guarded, "a guard on a does not cover b")

	refs, err = References("{{^a}}{{a}}{{/a}}")
	require.NoError(t, err)
	assert.False(t, refs[1].Guarded)
}

func TestNames(t *testing.T) {
	names, err := Names("{{a}} {{#b}}{{a}}{{/b}} {{c}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
