package loader

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
)

// PDFLoader extracts plain text from each page of a PDF file.
type PDFLoader struct{}

func NewPDFLoader() *PDFLoader { return &PDFLoader{} }

func (l *PDFLoader) Extensions() []string { return []string{".pdf"} }

// Load returns one segment per page. Page numbers are zero-based.
func (l *PDFLoader) Load(ctx context.Context, path string) (domain.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	doc := domain.Document{Path: path, Type: "pdf"}
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return domain.Document{}, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return domain.Document{}, fmt.Errorf("read pdf %s page %d: %w", path, i, err)
		}
		doc.Segments = append(doc.Segments, domain.Segment{Text: text, Page: i - 1})
	}
	return doc, nil
}
