package templates

import "codeberg.org/go-pdf/fpdf"

type achievementTemplate struct{}

func (achievementTemplate) Kind() string { return "ACHIEVEMENT" }

func (achievementTemplate) Draw(pdf *fpdf.Fpdf, data RenderData) {
	centeredTitle(pdf, "Certificate of Achievement")
	centeredSubtitle(pdf, "This certificate is proudly presented to")
	centeredRecipient(pdf, data.RecipientName)
	centeredBody(pdf, "in recognition of outstanding achievement at")
	centeredEvent(pdf, data)
}
