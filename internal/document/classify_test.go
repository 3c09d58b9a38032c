package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want FileType
	}{
		{"report.pdf", TypePDF},
		{"REPORT.PDF", TypePDF},
		{"notes.docx", TypeWord},
		{"data.xlsx", TypeExcel},
		{"data.xlsm", TypeExcel},
		{"legacy.xls", TypeExcel},
		{"readme.txt", TypeText},
		{"readme.md", TypeText},
		{"readme.markdown", TypeText},
		{"page.html", TypeHTML},
		{"page.htm", TypeHTML},
		{"archive.tar.gz", TypeUnknown},
		{"binary.exe", TypeUnknown},
		{"noextension", TypeUnknown},
		{"/some/dir/deep/file.pdf", TypePDF},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}
