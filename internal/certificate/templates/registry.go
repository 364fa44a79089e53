package templates

import (
	"fmt"

	certmodel "github.com/eventflow/event-management/internal/core/datamodel/certificate"
)

var registry = map[certmodel.TemplateType]Template{
	certmodel.TemplateAchievement: achievementTemplate{},
	certmodel.TemplateAppointment: appointmentTemplate{},
	certmodel.TemplateCompletion:  completionTemplate{},
	certmodel.TemplateInternship:  internshipTemplate{},
	certmodel.TemplateWorkshop:    workshopTemplate{},
}

// Resolve maps a template type to its renderer. An unknown type is a
// permanent error; retrying the job cannot fix it.
func Resolve(t certmodel.TemplateType) (Template, error) {
	tpl, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("unknown certificate template %q", t)
	}
	return tpl, nil
}
