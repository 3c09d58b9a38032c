package research

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultChunkChars is the per-chunk character budget used when the
// configuration does not set one.
const DefaultChunkChars = 3000

// ExtractPDFText extracts plain text from a PDF file. maxPages <= 0
// reads all pages. Pages that fail to decode contribute an empty
// segment rather than aborting the whole extraction.
func ExtractPDFText(path string, maxPages int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if maxPages > 0 && maxPages < total {
		total = maxPages
	}

	var pages []string
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return strings.TrimSpace(strings.Join(pages, "\n\n")), nil
}

// ChunkText splits text into rune-safe chunks of at most maxChars
// characters. Empty input yields no chunks.
func ChunkText(text string, maxChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, errors.New("maxChars must be positive")
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+maxChars-1)/maxChars)
	for start := 0; start < len(runes); start += maxChars {
		end := min(start+maxChars, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}
