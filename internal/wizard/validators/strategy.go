// internal/wizard/validators/strategy.go
package validators

import "admissions-wizard/internal/models"

// Validator is a named set of sections run together.
type Validator interface {
	Name() string
	Validate(rec *models.ApplicationRecord) Errors
}

// SectionSet runs its sections in order and concatenates the results.
type SectionSet struct {
	name     string
	sections []Section
}

func NewSectionSet(name string, sections ...Section) SectionSet {
	return SectionSet{name: name, sections: sections}
}

func (s SectionSet) Name() string { return s.name }

func (s SectionSet) Validate(rec *models.ApplicationRecord) Errors {
	var out Errors
	for _, section := range s.sections {
		out = append(out, section(rec)...)
	}
	return out
}

const (
	StrategyFull     = "full"
	StrategyCritical = "critical"
)

// FullValidator is the strict personal-info pass, grade included.
type FullValidator struct{}

func (FullValidator) Name() string { return StrategyFull }

func (FullValidator) Validate(rec *models.ApplicationRecord) Errors {
	return personalStep(true).Validate(rec)
}

// CriticalValidator is FullValidator without the grade requirement.
type CriticalValidator struct{}

func (CriticalValidator) Name() string { return StrategyCritical }

func (CriticalValidator) Validate(rec *models.ApplicationRecord) Errors {
	return personalStep(false).Validate(rec)
}

func personalStep(requireGrade bool) SectionSet {
	name := StrategyCritical
	if requireGrade {
		name = StrategyFull
	}
	return NewSectionSet(name,
		PersonalInfo,
		EmergencyContact,
		PrimaryEducation(requireGrade),
		Sponsor,
		LanguageProficiency,
		WorkExperience,
		VisaRejection,
	)
}

// Submission is everything a finished record must satisfy: the critical pass
// plus identity, documents and payment. Grade stays optional because the wizard
// may have accepted the record on a critical pass.
func Submission() SectionSet {
	return NewSectionSet("submission",
		Identity,
		PersonalInfo,
		EmergencyContact,
		PrimaryEducation(false),
		Sponsor,
		LanguageProficiency,
		WorkExperience,
		VisaRejection,
		Documents,
		Payment,
	)
}
