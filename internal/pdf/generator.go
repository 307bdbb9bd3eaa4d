package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nusakarya/projectledger/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// GenerateInvoice renders the progress payment invoice.
func (g *Generator) GenerateInvoice(doc model.InvoiceDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("No. %s dated %s", doc.Payment.InvoiceNumber, formatDate(doc.Payment.InvoiceDate)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.addInfoBlock(pdf, "Project", []string{
		fmt.Sprintf("%s (%s)", doc.Project.Name, doc.Project.ID),
		fmt.Sprintf("Client: %s", safeValue(doc.Project.ClientName)),
		fmt.Sprintf("Location: %s", safeValue(doc.Project.Location)),
	})
	pdf.Ln(2)
	g.addInfoBlock(pdf, "Completion certificate", []string{
		fmt.Sprintf("No. %s (%s)", doc.Certificate.Number, doc.Certificate.Type),
		fmt.Sprintf("Work: %s", doc.Certificate.WorkDescription),
		fmt.Sprintf("Completion: %.2f%% as of %s", doc.Certificate.CompletionPercentage, formatDate(doc.Certificate.CompletionDate)),
	})
	pdf.Ln(4)

	headers := []string{"Description", "Amount (IDR)"}
	widths := []float64{120, 54}
	g.drawTableRow(pdf, headers, widths, true)
	g.drawTableRow(pdf, []string{
		fmt.Sprintf("Progress payment (%.2f%% of contract)", doc.Payment.Percentage),
		formatAmount(doc.Payment.Amount),
	}, widths, false)
	g.drawTableRow(pdf, []string{"Tax", "-" + formatAmount(doc.Payment.TaxAmount)}, widths, false)
	g.drawTableRow(pdf, []string{"Retention", "-" + formatAmount(doc.Payment.RetentionAmount)}, widths, false)

	pdf.SetFont(g.fontName, "B", 11)
	g.drawTableRow(pdf, []string{"Net amount due", formatAmount(doc.Payment.NetAmount)}, widths, true)

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Due date: %s", formatDate(doc.Payment.DueDate)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", doc.Status), "", 1, "L", false, 0, "")
	if doc.Payment.Notes != "" {
		pdf.MultiCell(0, 6, fmt.Sprintf("Notes: %s", doc.Payment.Notes), "", "L", false)
	}

	pdf.Ln(8)
	g.signatureBlock(pdf, "Finance", doc.Payment.CreatedBy)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateHandover renders the berita acara handover document for an
// approved certificate.
func (g *Generator) GenerateHandover(doc model.HandoverDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 15)
	pdf.CellFormat(0, 10, "WORK COMPLETION CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("No. %s", doc.Certificate.Number), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.addInfoBlock(pdf, "Project", []string{
		fmt.Sprintf("%s (%s)", doc.Project.Name, doc.Project.ID),
		fmt.Sprintf("Client: %s", safeValue(doc.Project.ClientName)),
		fmt.Sprintf("Location: %s", safeValue(doc.Project.Location)),
	})
	pdf.Ln(2)

	g.addInfoBlock(pdf, "Scope of work", []string{
		doc.Certificate.WorkDescription,
		fmt.Sprintf("Certificate type: %s", doc.Certificate.Type),
		fmt.Sprintf("Completion: %.2f%% as of %s", doc.Certificate.CompletionPercentage, formatDate(doc.Certificate.CompletionDate)),
	})
	pdf.Ln(2)

	statusLines := []string{fmt.Sprintf("Status: %s", doc.Certificate.Status)}
	if doc.Certificate.ApprovedBy != nil {
		approvedAt := "-"
		if doc.Certificate.ApprovedAt != nil {
			approvedAt = formatDate(*doc.Certificate.ApprovedAt)
		}
		statusLines = append(statusLines, fmt.Sprintf("Approved by %s on %s", *doc.Certificate.ApprovedBy, approvedAt))
	}
	if doc.Certificate.PaymentAuthorized && doc.Certificate.PaymentDueDate != nil {
		statusLines = append(statusLines, fmt.Sprintf("Payment authorized, due %s", formatDate(*doc.Certificate.PaymentDueDate)))
	}
	g.addInfoBlock(pdf, "Approval", statusLines)

	pdf.Ln(10)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Signatures", "", 1, "L", false, 0, "")
	g.signatureBlock(pdf, "Contractor", doc.Certificate.CreatedBy)
	representative := ""
	if doc.Certificate.ClientRepresentative != nil {
		representative = *doc.Certificate.ClientRepresentative
	}
	g.signatureBlock(pdf, "Client representative", representative)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) addInfoBlock(pdf *gofpdf.Fpdf, title string, lines []string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
}

func (g *Generator) drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(g.fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func (g *Generator) signatureBlock(pdf *gofpdf.Fpdf, label, name string) {
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s: ______________________ /%s/", label, safeValue(name)), "", 1, "L", false, 0, "")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}
