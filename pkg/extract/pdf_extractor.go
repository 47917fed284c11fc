package extract

import (
	"fmt"
	"strings"

	"studymate-be/pkg/apperr"

	"github.com/ledongthuc/pdf"
)

const DefaultMaxPages = 100

// PDFExtractor pulls plain text out of PDF files using github.com/ledongthuc/pdf
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads at most maxPages pages. On any failure it still returns the text
// accumulated so far, together with an ExtractionFailed error describing what broke.
func (e *PDFExtractor) Extract(filePath string, maxPages int) (text string, err error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var sb strings.Builder
	defer func() {
		if r := recover(); r != nil {
			text = sb.String()
			err = apperr.Wrap(apperr.KindExtractionFailed, "pdf reader panicked", fmt.Errorf("%v", r))
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return "", apperr.Wrap(apperr.KindExtractionFailed, "failed to open PDF file", openErr)
	}
	defer f.Close()

	total := r.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		if pageNum > maxPages {
			break
		}

		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			return sb.String(), apperr.Wrap(apperr.KindExtractionFailed, fmt.Sprintf("failed to read page %d", pageNum), pageErr)
		}
		sb.WriteString(pageText)
	}

	return sb.String(), nil
}
