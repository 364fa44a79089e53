package templates

import "codeberg.org/go-pdf/fpdf"

type completionTemplate struct{}

func (completionTemplate) Kind() string { return "COMPLETION" }

func (completionTemplate) Draw(pdf *fpdf.Fpdf, data RenderData) {
	centeredTitle(pdf, "Certificate of Completion")
	centeredSubtitle(pdf, "This is to certify that")
	centeredRecipient(pdf, data.RecipientName)
	centeredBody(pdf, "has successfully completed")
	centeredEvent(pdf, data)
}
