package export

import (
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"

	"github.com/xenking/supernova-store/internal/domain/checkout"
)

const (
	pdfMargin    = 15.0
	pdfRowHeight = 7.0
	maxNameRunes = 30
)

// column widths in mm; they add up to the printable A4 width.
var pdfColumns = [4]float64{95, 20, 32.5, 32.5}

// PDF writes the receipt as an A4 document to w.
func PDF(w io.Writer, r *checkout.Receipt, brand Brand) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(brand.StoreName+" "+r.Number(), true)
	pdf.SetCreator(brand.StoreName, true)
	pdf.SetCreationDate(r.IssuedAt())
	pdf.SetModificationDate(r.IssuedAt())
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 6, tr(brand.Footer), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(brand.StoreName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Receipt "+r.Number(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Issued "+r.IssuedAt().Format(DateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	customer := r.Customer()
	pdf.CellFormat(0, 6, tr("Customer: "+customer.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("ID: "+customer.ID), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range [4]string{"Item", "Qty", "Unit price", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(pdfColumns[i], pdfRowHeight, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range r.Lines() {
		pdf.CellFormat(pdfColumns[0], pdfRowHeight, tr(truncate(l.Name, maxNameRunes)), "", 0, "L", false, 0, "")
		pdf.CellFormat(pdfColumns[1], pdfRowHeight, strconv.Itoa(l.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[2], pdfRowHeight, Money(l.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[3], pdfRowHeight, Money(l.Subtotal), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	labelWidth := pdfColumns[0] + pdfColumns[1] + pdfColumns[2]
	totals := [3][2]string{
		{"Subtotal", Money(r.Subtotal())},
		{"Tax (" + Percent(r.TaxRate()) + ")", Money(r.Tax())},
		{"Total", Money(r.Total())},
	}
	for i, row := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Helvetica", "B", 11)
		}
		pdf.CellFormat(labelWidth, pdfRowHeight, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[3], pdfRowHeight, row[1], "", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "render pdf")
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
