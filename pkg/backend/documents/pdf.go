package documents

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// renderPDF lays out lightweight markdown text (headings, bullets, paragraphs)
// under a centered title header and a page footer.
func renderPDF(title, text, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreator("officemcp", true)
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(2)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	for _, line := range strings.Split(strings.ReplaceAll(text, "\n\n", "\n"), "\n") {
		line = strings.TrimRight(line, " \t\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			pdf.Ln(3)
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			size := 16.0 - float64(min(level, 4))
			pdf.SetFont("Arial", "B", size)
			pdf.MultiCell(0, 7, tr(strings.TrimSpace(trimmed[level:])), "", "L", false)
			pdf.Ln(1)
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Arial", "", 11)
			pdf.SetX(pdf.GetX() + 4)
			pdf.MultiCell(0, 6, tr("• "+stripEmphasis(trimmed[2:])), "", "L", false)
		default:
			pdf.SetFont("Arial", "", 11)
			pdf.MultiCell(0, 6, tr(stripEmphasis(line)), "", "L", false)
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.OutputFileAndClose(path)
}

var emphasis = strings.NewReplacer("**", "", "__", "", "`", "")

func stripEmphasis(s string) string {
	return emphasis.Replace(s)
}
