package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntities(t *testing.T) {
	text := `Contact alice@example.com or bob@corp.co.uk.
See https://example.com/docs and http://other.org/page?x=1 for details
Released 2024-01-15, updated 2024/02/01, also on 2024.03.09.
Duplicate: alice@example.com https://example.com/docs 2024-01-15`

	entities := ExtractEntities(text)

	assert.Equal(t, []string{"https://example.com/docs", "http://other.org/page?x=1"}, entities.URLs)
	assert.Equal(t, []string{"alice@example.com", "bob@corp.co.uk"}, entities.Emails)
	assert.Equal(t, []string{"2024-01-15", "2024/02/01", "2024.03.09"}, entities.Dates)
}

func TestExtractEntitiesEmptyText(t *testing.T) {
	entities := ExtractEntities("")

	assert.Empty(t, entities.URLs)
	assert.Empty(t, entities.Emails)
	assert.Empty(t, entities.Dates)
}

func TestExtractEntitiesNoMatches(t *testing.T) {
	entities := ExtractEntities("nothing interesting here, just words and 123 numbers")

	assert.Empty(t, entities.URLs)
	assert.Empty(t, entities.Emails)
	assert.Empty(t, entities.Dates)
}
