// Package document implements the file-analysis agent: classification,
// per-format text extraction, entity extraction, and an LLM-written
// report over the combined analysis.
package document

import (
	"path/filepath"
	"strings"
)

// FileType identifies the handler family for a file.
type FileType string

const (
	TypePDF     FileType = "pdf"
	TypeWord    FileType = "word"
	TypeExcel   FileType = "excel"
	TypeText    FileType = "text"
	TypeHTML    FileType = "html"
	TypeUnknown FileType = "unknown"
)

// Classify maps a file path to its type by extension. Files without a
// recognized extension are TypeUnknown.
func Classify(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return TypePDF
	case ".docx":
		return TypeWord
	case ".xlsx", ".xlsm", ".xls":
		return TypeExcel
	case ".txt", ".md", ".markdown":
		return TypeText
	case ".html", ".htm":
		return TypeHTML
	default:
		return TypeUnknown
	}
}
