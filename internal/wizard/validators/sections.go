// internal/wizard/validators/sections.go
package validators

import (
	"fmt"
	"regexp"
	"strings"

	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/requirements"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?\d{7,15}$`)
	phoneStripper = regexp.MustCompile(`[^\d\+]`)
)

// Section validates one part of the record.
type Section func(rec *models.ApplicationRecord) Errors

// Identity checks the applicant type and the agent/ambassador id it implies.
func Identity(rec *models.ApplicationRecord) Errors {
	var c collector
	switch {
	case strings.TrimSpace(string(rec.ApplicantType)) == "":
		c.add("applicantType", CodeMissingRequired, "Applicant type is required")
	case !rec.ApplicantType.IsValid():
		c.add("applicantType", CodeInvalidValue, fmt.Sprintf("Unknown applicant type %q", rec.ApplicantType))
	case rec.ApplicantType == models.ApplicantAgent:
		c.required("agentId", rec.AgentID, "Agent ID")
	case rec.ApplicantType == models.ApplicantAmbassador:
		c.required("ambassadorId", rec.AmbassadorID, "Ambassador ID")
	}
	return c.errs
}

func PersonalInfo(rec *models.ApplicationRecord) Errors {
	var c collector
	p := rec.PersonalInfo
	c.required("personalInfo_firstName", p.FirstName, "First name")
	c.required("personalInfo_lastName", p.LastName, "Last name")
	c.required("personalInfo_dateOfBirth", p.DateOfBirth, "Date of birth")
	c.email("personalInfo_email", p.Email)
	c.required("personalInfo_gender", p.Gender, "Gender")
	c.required("personalInfo_maritalStatus", p.MaritalStatus, "Marital status")
	c.required("personalInfo_countryOfResidence", p.CountryOfResidence, "Country of residence")
	c.phone("personalInfo_phone", p.Phone)
	return c.errs
}

func EmergencyContact(rec *models.ApplicationRecord) Errors {
	return contact("emergencyContact", rec.EmergencyContact)
}

// Sponsor validates the sponsor section when one is declared. A section with
// every field blank counts as no sponsor.
func Sponsor(rec *models.ApplicationRecord) Errors {
	s := rec.EducationSponsor
	if s == nil || isBlankContact(*s) {
		return nil
	}
	return contact("educationSponsor", *s)
}

func contact(prefix string, ct models.Contact) Errors {
	var c collector
	c.required(prefix+"_name", ct.Name, "Name")
	c.phone(prefix+"_phone", ct.Phone)
	c.email(prefix+"_email", ct.Email)
	return c.errs
}

func isBlankContact(ct models.Contact) bool {
	return strings.TrimSpace(ct.Name+ct.Relationship+ct.Phone+ct.Email) == ""
}

// PrimaryEducation validates entry 0. Grade is checked only when requireGrade
// is set.
func PrimaryEducation(requireGrade bool) Section {
	return func(rec *models.ApplicationRecord) Errors {
		var c collector
		e := rec.Education()
		const prefix = "educationEntries_0_"
		c.required(prefix+"level", e.Level, "Education level")
		c.required(prefix+"country", e.Country, "Country")
		c.required(prefix+"institution", e.Institution, "Institution")
		c.required(prefix+"fieldOfStudy", e.FieldOfStudy, "Field of study")
		if requireGrade {
			c.required(prefix+"grade", e.Grade, "Grade")
		}
		c.required(prefix+"graduationDate", e.GraduationDate, "Graduation date")
		return c.errs
	}
}

// LanguageProficiency requires an exam choice; scores and report details only
// when the choice is an actual exam.
func LanguageProficiency(rec *models.ApplicationRecord) Errors {
	var c collector
	l := rec.LanguageProficiency
	if !c.required("languageProficiency_exam", l.Exam, "Language exam") || !l.HasExam() {
		return c.errs
	}
	c.required("languageProficiency_listening", l.Listening, "Listening score")
	c.required("languageProficiency_reading", l.Reading, "Reading score")
	c.required("languageProficiency_writing", l.Writing, "Writing score")
	c.required("languageProficiency_speaking", l.Speaking, "Speaking score")
	c.required("languageProficiency_overall", l.Overall, "Overall score")
	c.required("languageProficiency_reportNumber", l.ReportNumber, "Report number")
	c.required("languageProficiency_testDate", l.TestDate, "Test date")
	return c.errs
}

func WorkExperience(rec *models.ApplicationRecord) Errors {
	if !rec.HasExperience {
		return nil
	}
	var c collector
	if len(rec.WorkExperiences) == 0 {
		c.add("workExperience", CodeMissingRequired, "Add at least one work experience")
		return c.errs
	}
	for i, w := range rec.WorkExperiences {
		prefix := fmt.Sprintf("workExperience_%d_", i)
		c.required(prefix+"company", w.Company, "Company")
		c.required(prefix+"position", w.Position, "Position")
		c.required(prefix+"startDate", w.StartDate, "Start date")
		if !w.CurrentlyEmployed {
			c.required(prefix+"endDate", w.EndDate, "End date")
		}
	}
	return c.errs
}

func VisaRejection(rec *models.ApplicationRecord) Errors {
	var c collector
	if rec.VisaRejection.HasRejection && len(rec.VisaRejection.Countries) == 0 {
		c.add("visaRejection_countries", CodeMissingRequired, "Select at least one country")
	}
	return c.errs
}

// Documents reports every required slot that has no attachments.
func Documents(rec *models.ApplicationRecord) Errors {
	var c collector
	for _, slot := range requirements.Resolve(rec).Missing(rec.Documents) {
		c.add("documents_"+slot.Name, CodeMissingRequired, slot.Title+" is required")
	}
	return c.errs
}

func Payment(rec *models.ApplicationRecord) Errors {
	var c collector
	switch {
	case strings.TrimSpace(string(rec.PaymentMethod)) == "":
		c.add("paymentMethod", CodeMissingRequired, "Payment method is required")
	case !rec.PaymentMethod.IsValid():
		c.add("paymentMethod", CodeInvalidValue, fmt.Sprintf("Unknown payment method %q", rec.PaymentMethod))
	}
	return c.errs
}

func (c *collector) email(field, value string) {
	if !c.required(field, value, "Email") {
		return
	}
	if !emailRegex.MatchString(strings.TrimSpace(value)) {
		c.add(field, CodeInvalidFormat, "Invalid email format")
	}
}

func (c *collector) phone(field, value string) {
	if !c.required(field, value, "Phone") {
		return
	}
	if !phoneRegex.MatchString(phoneStripper.ReplaceAllString(value, "")) {
		c.add(field, CodeInvalidFormat, "Invalid phone number")
	}
}
