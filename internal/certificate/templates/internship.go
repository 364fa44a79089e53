package templates

import "codeberg.org/go-pdf/fpdf"

type internshipTemplate struct{}

func (internshipTemplate) Kind() string { return "INTERNSHIP" }

func (internshipTemplate) Draw(pdf *fpdf.Fpdf, data RenderData) {
	centeredTitle(pdf, "Certificate of Internship")
	centeredSubtitle(pdf, "This is to certify that")
	centeredRecipient(pdf, data.RecipientName)
	centeredBody(pdf, "has successfully completed an internship with")
	centeredEvent(pdf, data)
}
