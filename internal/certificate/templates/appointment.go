package templates

import "codeberg.org/go-pdf/fpdf"

type appointmentTemplate struct{}

func (appointmentTemplate) Kind() string { return "APPOINTMENT" }

func (appointmentTemplate) Draw(pdf *fpdf.Fpdf, data RenderData) {
	centeredTitle(pdf, "Certificate of Appointment")
	centeredSubtitle(pdf, "This is to certify that")
	centeredRecipient(pdf, data.RecipientName)
	centeredBody(pdf, "has been formally appointed in connection with")
	centeredEvent(pdf, data)
}
