// internal/models/application.go
package models

import "strings"

// ApplicantType identifies who is filling in the application.
type ApplicantType string

const (
	ApplicantStudent    ApplicantType = "student"
	ApplicantAgent      ApplicantType = "agent"
	ApplicantAmbassador ApplicantType = "ambassador"
)

// IsValid reports whether t is one of the known applicant types.
func (t ApplicantType) IsValid() bool {
	switch t {
	case ApplicantStudent, ApplicantAgent, ApplicantAmbassador:
		return true
	}
	return false
}

// PaymentMethod is the applicant's chosen way to pay the application fee.
type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit-card"
	PaymentBankTransfer PaymentMethod = "bank-transfer"
	PaymentCash         PaymentMethod = "cash"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCreditCard, PaymentBankTransfer, PaymentCash:
		return true
	}
	return false
}

// ExamNone is the explicit "no language exam taken" choice.
const ExamNone = "None"

// LevelHighSchool is the education level whose transcripts are part of the baseline documents.
const LevelHighSchool = "High School"

// ApplicationRecord is the aggregate holding everything entered across the wizard.
// It is owned by the wizard controller and mutated only through it.
type ApplicationRecord struct {
	ProgramID           string              `json:"programId"`
	ApplicantType       ApplicantType       `json:"applicantType"`
	AgentID             string              `json:"agentId,omitempty"`
	AmbassadorID        string              `json:"ambassadorId,omitempty"`
	PersonalInfo        PersonalInfo        `json:"personalInfo"`
	EmergencyContact    Contact             `json:"emergencyContact"`
	EducationEntries    []EducationEntry    `json:"educationEntries"`
	EducationSponsor    *Contact            `json:"educationSponsor,omitempty"`
	LanguageProficiency LanguageProficiency `json:"languageProficiency"`
	HasExperience       bool                `json:"hasExperience"`
	WorkExperiences     []WorkExperience    `json:"workExperiences"`
	VisaRejection       VisaRejection       `json:"visaRejection"`
	Documents           Documents           `json:"documents"`
	PaymentMethod       PaymentMethod       `json:"paymentMethod,omitempty"`

	// Flags are signals between the steps and the controller, never persisted.
	Flags ControlFlags `json:"-"`
}

type PersonalInfo struct {
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	DateOfBirth        string `json:"dateOfBirth"`
	Email              string `json:"email"`
	Gender             string `json:"gender"`
	MaritalStatus      string `json:"maritalStatus"`
	CountryOfResidence string `json:"countryOfResidence"`
	Phone              string `json:"phone"`
	Nationality        string `json:"nationality,omitempty"`
	PassportNumber     string `json:"passportNumber,omitempty"`
	PassportExpiry     string `json:"passportExpiry,omitempty"`
}

// Contact is used for both the emergency contact and the education sponsor.
type Contact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

type EducationEntry struct {
	Level          string `json:"level"`
	Country        string `json:"country"`
	Institution    string `json:"institution"`
	FieldOfStudy   string `json:"fieldOfStudy"`
	Grade          string `json:"grade"`
	GraduationDate string `json:"graduationDate"`
	EnrollmentDate string `json:"enrollmentDate,omitempty"`
}

// IsHighSchool compares the level case-insensitively.
func (e EducationEntry) IsHighSchool() bool {
	return strings.EqualFold(strings.TrimSpace(e.Level), LevelHighSchool)
}

type LanguageProficiency struct {
	Exam         string `json:"exam"`
	Listening    string `json:"listening,omitempty"`
	Reading      string `json:"reading,omitempty"`
	Writing      string `json:"writing,omitempty"`
	Speaking     string `json:"speaking,omitempty"`
	Overall      string `json:"overall,omitempty"`
	ReportNumber string `json:"reportNumber,omitempty"`
	TestDate     string `json:"testDate,omitempty"`
}

// HasExam is true when an exam other than "None" was declared.
func (l LanguageProficiency) HasExam() bool {
	exam := strings.TrimSpace(l.Exam)
	return exam != "" && !strings.EqualFold(exam, ExamNone)
}

type WorkExperience struct {
	Company           string `json:"company"`
	Position          string `json:"position"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	CurrentlyEmployed bool   `json:"currentlyEmployed"`
}

type VisaRejection struct {
	HasRejection bool     `json:"hasRejection"`
	Countries    []string `json:"countries"`
	Details      string   `json:"details,omitempty"`
}

// ControlFlags are transient step/controller signals.
type ControlFlags struct {
	AttemptingNextStep  bool
	IsPersonalInfoValid bool
	DocumentsValid      bool
	ValidationErrors    map[string]string
}

// Education is the primary education entry, kept for consumers that only know
// a single education section. It is computed on read and never stored.
func (r *ApplicationRecord) Education() EducationEntry {
	if len(r.EducationEntries) == 0 {
		return EducationEntry{}
	}
	return r.EducationEntries[0]
}

// HasSponsor reports whether a sponsor section is present.
func (r *ApplicationRecord) HasSponsor() bool {
	return r.EducationSponsor != nil
}

// SponsorName returns the trimmed sponsor name or "" when no sponsor is declared.
func (r *ApplicationRecord) SponsorName() string {
	if r.EducationSponsor == nil {
		return ""
	}
	return strings.TrimSpace(r.EducationSponsor.Name)
}

// NewApplicationRecord returns an empty record with its invariants in place:
// one (empty) primary education entry and an allocated documents map.
func NewApplicationRecord(programID string) ApplicationRecord {
	return ApplicationRecord{
		ProgramID:        programID,
		EducationEntries: []EducationEntry{{}},
		Documents:        Documents{},
	}
}

// Clone returns a deep copy so callers cannot mutate the controller's state.
func (r *ApplicationRecord) Clone() ApplicationRecord {
	out := *r
	out.EducationEntries = append([]EducationEntry(nil), r.EducationEntries...)
	out.WorkExperiences = append([]WorkExperience(nil), r.WorkExperiences...)
	out.VisaRejection.Countries = append([]string(nil), r.VisaRejection.Countries...)
	if r.EducationSponsor != nil {
		sponsor := *r.EducationSponsor
		out.EducationSponsor = &sponsor
	}
	out.Documents = r.Documents.Clone()
	if r.Flags.ValidationErrors != nil {
		out.Flags.ValidationErrors = make(map[string]string, len(r.Flags.ValidationErrors))
		for k, v := range r.Flags.ValidationErrors {
			out.Flags.ValidationErrors[k] = v
		}
	}
	return out
}

// RecordPatch is a partial record. Nil fields are left untouched; a non-nil
// nested section replaces the stored one wholesale, so callers must carry over
// any nested values they want to keep. Attachments are not part of a patch:
// they change only through the upload and remove operations.
type RecordPatch struct {
	ProgramID           *string              `json:"programId,omitempty"`
	ApplicantType       *ApplicantType       `json:"applicantType,omitempty"`
	AgentID             *string              `json:"agentId,omitempty"`
	AmbassadorID        *string              `json:"ambassadorId,omitempty"`
	PersonalInfo        *PersonalInfo        `json:"personalInfo,omitempty"`
	EmergencyContact    *Contact             `json:"emergencyContact,omitempty"`
	EducationEntries    *[]EducationEntry    `json:"educationEntries,omitempty"`
	EducationSponsor    *Contact             `json:"educationSponsor,omitempty"`
	LanguageProficiency *LanguageProficiency `json:"languageProficiency,omitempty"`
	HasExperience       *bool                `json:"hasExperience,omitempty"`
	WorkExperiences     *[]WorkExperience    `json:"workExperiences,omitempty"`
	VisaRejection       *VisaRejection       `json:"visaRejection,omitempty"`
	PaymentMethod       *PaymentMethod       `json:"paymentMethod,omitempty"`

	// ClearEducationSponsor removes the sponsor; it wins over EducationSponsor.
	ClearEducationSponsor bool `json:"clearEducationSponsor,omitempty"`
}
