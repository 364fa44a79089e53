package templates

import (
	"bytes"
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// RenderData is everything a template needs to lay out one certificate.
type RenderData struct {
	CertificateID    string
	RecipientName    string
	RecipientEmail   string
	RecipientPhone   string
	EventTitle       string
	EventDescription string
	EventDate        string
	IssuedOn         string
	VerifyURL        string
}

// Template draws the certificate body onto an A4 landscape page. The frame,
// footer and QR code are shared chrome drawn by the generator.
type Template interface {
	Kind() string
	Draw(pdf *fpdf.Fpdf, data RenderData)
}

const (
	pageWidth  = 297.0
	pageHeight = 210.0
)

// Generate renders a certificate to PDF bytes using the given template.
func Generate(tpl Template, data RenderData) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	drawFrame(pdf)
	tpl.Draw(pdf, data)
	drawFooter(pdf, data)

	if err := embedVerificationQR(pdf, data.VerifyURL); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawFrame(pdf *fpdf.Fpdf) {
	pdf.SetDrawColor(30, 58, 95)
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, pageWidth-16, pageHeight-16, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(11, 11, pageWidth-22, pageHeight-22, "D")
}

func drawFooter(pdf *fpdf.Fpdf, data RenderData) {
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(15, pageHeight-29)
	pdf.CellFormat(pageWidth-60, 5, fmt.Sprintf("Issued on %s", data.IssuedOn), "", 0, "L", false, 0, "")
	pdf.SetXY(15, pageHeight-24)
	pdf.CellFormat(pageWidth-60, 5, fmt.Sprintf("Certificate ID: %s", data.CertificateID), "", 0, "L", false, 0, "")

	contact := data.RecipientEmail
	if contact == "" {
		contact = data.RecipientPhone
	}
	if contact != "" {
		pdf.SetXY(15, pageHeight-19)
		pdf.CellFormat(pageWidth-60, 5, fmt.Sprintf("Issued to %s", contact), "", 0, "L", false, 0, "")
	}
}

// embedVerificationQR places a scannable verification link in the bottom
// right corner.
func embedVerificationQR(pdf *fpdf.Fpdf, verifyURL string) error {
	if verifyURL == "" {
		return nil
	}

	png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode verification qr: %w", err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("verify-qr", pageWidth-40, pageHeight-40, 25, 25, false, opts, 0, "")

	if pdf.Err() {
		return fmt.Errorf("embed verification qr: %w", pdf.Error())
	}
	return nil
}

// helpers shared by the concrete templates

func centeredTitle(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetTextColor(30, 58, 95)
	pdf.SetXY(0, 38)
	pdf.CellFormat(pageWidth, 14, text, "", 0, "C", false, 0, "")
}

func centeredSubtitle(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(90, 90, 90)
	pdf.SetXY(0, 60)
	pdf.CellFormat(pageWidth, 8, text, "", 0, "C", false, 0, "")
}

func centeredRecipient(pdf *fpdf.Fpdf, name string) {
	pdf.SetFont("Times", "BI", 30)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetXY(0, 82)
	pdf.CellFormat(pageWidth, 14, name, "", 0, "C", false, 0, "")

	pdf.SetDrawColor(30, 58, 95)
	pdf.SetLineWidth(0.5)
	pdf.Line(pageWidth/2-60, 100, pageWidth/2+60, 100)
}

func centeredBody(pdf *fpdf.Fpdf, lines ...string) {
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(60, 60, 60)
	y := 112.0
	for _, line := range lines {
		pdf.SetXY(0, y)
		pdf.CellFormat(pageWidth, 8, line, "", 0, "C", false, 0, "")
		y += 9
	}
}

func centeredEvent(pdf *fpdf.Fpdf, data RenderData) {
	pdf.SetFont("Helvetica", "B", 17)
	pdf.SetTextColor(30, 58, 95)
	pdf.SetXY(0, 134)
	pdf.CellFormat(pageWidth, 10, data.EventTitle, "", 0, "C", false, 0, "")

	y := 146.0
	if data.EventDescription != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.SetTextColor(110, 110, 110)
		pdf.SetXY(0, y)
		pdf.CellFormat(pageWidth, 6, data.EventDescription, "", 0, "C", false, 0, "")
		y += 8
	}

	if data.EventDate != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(90, 90, 90)
		pdf.SetXY(0, y)
		pdf.CellFormat(pageWidth, 7, data.EventDate, "", 0, "C", false, 0, "")
	}
}
