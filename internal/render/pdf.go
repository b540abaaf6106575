package render

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// pdfEpoch pins the info dictionary so identical input yields identical output.
var pdfEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	pdfFont       = "Helvetica"
	pdfBodyPt     = 12
	pdfLineHeight = 6
)

var pdfHeadingPt = map[int]float64{1: 18, 2: 16, 3: 14, 4: 13, 5: 12, 6: 12}

// PDFRenderer writes an A4 PDF with one page per unit.
type PDFRenderer struct {
	opts Options
}

func (r *PDFRenderer) Render(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	if doc.Title != "" {
		pdf.SetTitle(doc.Title, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if r.opts.IncludeTitle && doc.Title != "" {
		pdf.AddPage()
		pdf.SetFont(pdfFont, "B", 24)
		pdf.MultiCell(0, 12, tr(doc.Title), "", "C", false)
	}

	for _, b := range blocks(doc, r.opts) {
		pdf.AddPage()
		pdf.SetFont(pdfFont, "B", pdfHeadingPt[1])
		pdf.MultiCell(0, 9, tr(b.Path), "", "L", false)
		pdf.Ln(4)

		for _, para := range b.Paragraphs {
			for _, line := range para.Lines {
				for _, span := range line {
					style, size := pdfStyle(span, para.Heading)
					pdf.SetFont(pdfFont, style, size)
					pdf.Write(pdfLineHeight, tr(span.Text))
				}
				pdf.Ln(pdfLineHeight)
			}
			pdf.Ln(pdfLineHeight / 2)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func pdfStyle(span Span, heading int) (string, float64) {
	if heading > 0 {
		return "B", pdfHeadingPt[heading]
	}
	switch span.Style {
	case Bold:
		return "B", pdfBodyPt
	case Italic:
		return "I", pdfBodyPt
	}
	return "", pdfBodyPt
}
