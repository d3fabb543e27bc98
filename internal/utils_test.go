package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateBody(t *testing.T) {
	testCases := []struct {
		name     string
		body     []byte
		limit    int
		expected string
	}{
		{
			name:     "shorter than limit",
			body:     []byte(`{"documents":[]}`),
			limit:    100,
			expected: `{"documents":[]}`,
		},
		{
			name:     "no limit",
			body:     []byte("abcdef"),
			limit:    0,
			expected: "abcdef",
		},
		{
			name:     "cut on ascii",
			body:     []byte("abcdef"),
			limit:    3,
			expected: "abc...(truncated, 6 B total)",
		},
		{
			name:     "does not split a multibyte rune",
			body:     []byte("abécd"),
			limit:    3,
			expected: "ab...(truncated, 6 B total)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TruncateBody(tc.body, tc.limit))
		})
	}
}

func TestLeveledLogrusFields(t *testing.T) {
	l := NewLeveledLogrus(GetLogger())
	fields := l.fields("status", 503, "url", "http://example.com", "dangling")

	assert.Equal(t, map[string]interface{}{"status": 503, "url": "http://example.com"}, fields)
}
