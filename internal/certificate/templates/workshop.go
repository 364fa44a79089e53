package templates

import "codeberg.org/go-pdf/fpdf"

type workshopTemplate struct{}

func (workshopTemplate) Kind() string { return "WORKSHOP" }

func (workshopTemplate) Draw(pdf *fpdf.Fpdf, data RenderData) {
	centeredTitle(pdf, "Certificate of Participation")
	centeredSubtitle(pdf, "This certificate is presented to")
	centeredRecipient(pdf, data.RecipientName)
	centeredBody(pdf, "for participating in the workshop")
	centeredEvent(pdf, data)
}
