package labels

import (
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Label stock is 50 x 30 mm.
const (
	pageWidthMM  = 50.0
	pageHeightMM = 30.0
	qrSizeMM     = 22.0
	qrTopMM      = 1.5
	textTopMM    = 24.5
	textHeightMM = 3.0
	fontSizePt   = 5.0
)

func (r *Renderer) renderPDF(ctx context.Context, w io.Writer, codes []string) error {
	pdf, err := r.renderDocument(ctx, codes)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("labels: write pdf: %w", err)
	}
	return nil
}

func (r *Renderer) renderDocument(ctx context.Context, codes []string) (*fpdf.Fpdf, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageWidthMM, Ht: pageHeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetFont("Helvetica", "", fontSizePt)

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		if m, ok := r.matrix(ctx, code); ok {
			drawQR(pdf, m)
			pdf.SetTextColor(0, 0, 0)
			pdf.SetXY(0, textTopMM)
			pdf.CellFormat(pageWidthMM, textHeightMM, code, "", 0, "C", false, 0, "")
		} else {
			pdf.SetTextColor(200, 0, 0)
			pdf.SetXY(0, pageHeightMM/2-textHeightMM)
			pdf.CellFormat(pageWidthMM, textHeightMM, "ERROR", "", 2, "C", false, 0, "")
			pdf.CellFormat(pageWidthMM, textHeightMM, code, "", 0, "C", false, 0, "")
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("labels: pdf page %s: %w", code, err)
		}
	}
	return pdf, nil
}

func drawQR(pdf *fpdf.Fpdf, m [][]bool) {
	module := qrSizeMM / float64(len(m))
	left := (pageWidthMM - qrSizeMM) / 2
	pdf.SetFillColor(0, 0, 0)
	for y, row := range m {
		for x, dark := range row {
			if dark {
				pdf.Rect(left+float64(x)*module, qrTopMM+float64(y)*module, module, module, "F")
			}
		}
	}
}
