package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNestedObject(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field string
		want  string
		ok    bool
	}{
		{
			name:  "flat object",
			text:  `{"planning_block": {"goal": "escape"}}`,
			field: "planning_block",
			want:  `{"goal": "escape"}`,
			ok:    true,
		},
		{
			name:  "nested braces",
			text:  `{"planning_block": {"a": {"b": 1}}, "narrative": "x"}`,
			field: "planning_block",
			want:  `{"a": {"b": 1}}`,
			ok:    true,
		},
		{
			name:  "braces inside string literals ignored",
			text:  `{"debug_info": {"note": "weird {text} here", "depth": 2}}`,
			field: "debug_info",
			want:  `{"note": "weird {text} here", "depth": 2}`,
			ok:    true,
		},
		{
			name:  "escaped quote inside string",
			text:  `{"debug_info": {"note": "he said \"{\"", "n": 1}}`,
			field: "debug_info",
			want:  `{"note": "he said \"{\"", "n": 1}`,
			ok:    true,
		},
		{
			name:  "unbalanced returns false",
			text:  `{"planning_block": {"goal": "esca`,
			field: "planning_block",
			ok:    false,
		},
		{
			name:  "absent field",
			text:  `{"narrative": "x"}`,
			field: "planning_block",
			ok:    false,
		},
		{
			name:  "field name inside a string value does not match",
			text:  `{"narrative": "the \"planning_block\": {fake} trick", "planning_block": {"real": true}}`,
			field: "planning_block",
			want:  `{"real": true}`,
			ok:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractNestedObject(tt.text, tt.field)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFindNarrativeEnd(t *testing.T) {
	t.Run("unescaped quotes in prose are not terminators", func(t *testing.T) {
		text := `"He said "run" and fled", "location_confirmed": "Cave"}`
		end := findNarrativeEnd(text, 1)
		require.Greater(t, end, 0)
		assert.Equal(t, `He said "run" and fled`, text[1:end])
	})

	t.Run("terminator before closing brace", func(t *testing.T) {
		text := `"a short line"}`
		end := findNarrativeEnd(text, 1)
		assert.Equal(t, `a short line`, text[1:end])
	})

	t.Run("terminator at end of text", func(t *testing.T) {
		text := `"last words"`
		end := findNarrativeEnd(text, 1)
		assert.Equal(t, `last words`, text[1:end])
	})

	t.Run("no terminator", func(t *testing.T) {
		assert.Equal(t, -1, findNarrativeEnd(`"runs forever`, 1))
	})
}

func TestRepairTruncated(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "closes open braces in reverse order",
			in:   `{"a": {"b": [1, 2`,
			want: `{"a": {"b": [1, 2]}}`,
		},
		{
			name: "closes unterminated string first",
			in:   `{"a": "cut of`,
			want: `{"a": "cut of"}`,
		},
		{
			name: "strips dangling comma",
			in:   `{"a": 1,`,
			want: `{"a": 1}`,
		},
		{
			name: "completes dangling key with null",
			in:   `{"a": 1, "b":`,
			want: `{"a": 1, "b": null}`,
		},
		{
			name: "balanced text unchanged",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairTruncated(tt.in))
		})
	}
}

func TestDecodeStringEscapes(t *testing.T) {
	assert.Equal(t, "line\nbreak", decodeStringEscapes(`line\nbreak`))
	assert.Equal(t, `quote " mark`, decodeStringEscapes(`quote \" mark`))
	assert.Equal(t, `back\slash`, decodeStringEscapes(`back\\slash`))
	assert.Equal(t, "é", decodeStringEscapes(`é`))
	// Invalid sequences pass through rather than failing the recovery.
	assert.Equal(t, `\q`, decodeStringEscapes(`\q`))
}
