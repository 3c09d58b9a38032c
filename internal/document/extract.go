package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet's structure: header row plus a bounded
// sample of data rows.
type Sheet struct {
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// WorkbookOverview is the structural summary of a spreadsheet.
type WorkbookOverview struct {
	Sheets []Sheet `json:"sheets"`
}

// ExtractWordText pulls paragraph text out of a DOCX file. A DOCX is a
// zip archive; the document body lives in word/document.xml with text
// runs in w:t elements and paragraphs in w:p.
func ExtractWordText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var body io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			body, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open docx body: %w", err)
			}
			break
		}
	}
	if body == nil {
		return "", errors.New("docx has no word/document.xml")
	}
	defer body.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	decoder := xml.NewDecoder(body)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if text := strings.TrimSpace(current.String()); text != "" {
		paragraphs = append(paragraphs, text)
	}

	return strings.Join(paragraphs, "\n"), nil
}

// ExtractExcelOverview reads each worksheet's header row and up to
// maxRows sample rows.
func ExtractExcelOverview(path string, maxRows int) (*WorkbookOverview, error) {
	if maxRows <= 0 {
		maxRows = 5
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	overview := &WorkbookOverview{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}

		sheet := Sheet{Name: name, Headers: []string{}, Rows: [][]string{}}
		if len(rows) > 0 {
			sheet.Headers = rows[0]
		}
		for _, row := range rows[1:min(len(rows), 1+maxRows)] {
			sheet.Rows = append(sheet.Rows, row)
		}
		overview.Sheets = append(overview.Sheets, sheet)
	}

	return overview, nil
}

// ExtractHTMLText strips markup and script content from an HTML
// document and returns whitespace-normalized text.
func ExtractHTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// ExtractPlainText reads a text file, tolerating invalid UTF-8.
func ExtractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}
