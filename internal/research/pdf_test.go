package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{
			name:     "shorter than budget",
			text:     "hello",
			maxChars: 10,
			want:     []string{"hello"},
		},
		{
			name:     "exact multiple",
			text:     "abcdef",
			maxChars: 3,
			want:     []string{"abc", "def"},
		},
		{
			name:     "remainder chunk",
			text:     "abcdefg",
			maxChars: 3,
			want:     []string{"abc", "def", "g"},
		},
		{
			name:     "empty input",
			text:     "",
			maxChars: 3,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChunkText(tt.text, tt.maxChars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkTextRuneSafe(t *testing.T) {
	// Multi-byte characters must not be split mid-sequence.
	text := strings.Repeat("日本語", 4)
	chunks, err := ChunkText(text, 5)
	require.NoError(t, err)

	var rebuilt strings.Builder
	for _, c := range chunks {
		assert.True(t, len([]rune(c)) <= 5)
		rebuilt.WriteString(c)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkTextInvalidBudget(t *testing.T) {
	_, err := ChunkText("text", 0)
	assert.Error(t, err)
}

func TestExtractPDFTextMissingFile(t *testing.T) {
	_, err := ExtractPDFText("testdata/does-not-exist.pdf", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open pdf")
}
