// internal/wizard/requirements/resolver.go
package requirements

import (
	"strings"

	"admissions-wizard/internal/models"
)

// Slot names produced by Resolve. Education slots beyond the primary entry are
// named "<level lowercased> transcripts".
const (
	SlotPassport              = "passport"
	SlotResume                = "resume"
	SlotHighSchoolTranscripts = "highSchoolTranscripts"
	SlotLanguageTestResult    = "languageTestResult"
	SlotSponsorLetter         = "sponsorLetter"
	SlotSponsorDocuments      = "sponsorDocuments"
	SlotFinancialDocuments    = "financialDocuments"
)

var (
	documentTypes = []string{".pdf", ".jpg", ".jpeg", ".png"}
	resumeTypes   = []string{".pdf", ".doc", ".docx"}
)

// Requirements is the ordered slot list for one record.
type Requirements struct {
	Slots []models.DocumentSlot `json:"slots"`
}

// Slot looks a slot up by name.
func (r Requirements) Slot(name string) (models.DocumentSlot, bool) {
	for _, s := range r.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return models.DocumentSlot{}, false
}

func (r Requirements) IsRequired(name string) bool {
	s, ok := r.Slot(name)
	return ok && s.Required
}

// Required returns the required slot names in order.
func (r Requirements) Required() []string {
	var out []string
	for _, s := range r.Slots {
		if s.Required {
			out = append(out, s.Name)
		}
	}
	return out
}

// Missing returns the required slots that have no attachments in docs.
func (r Requirements) Missing(docs models.Documents) []models.DocumentSlot {
	var out []models.DocumentSlot
	for _, s := range r.Slots {
		if s.Required && docs.Count(s.Name) == 0 {
			out = append(out, s)
		}
	}
	return out
}

// Inputs is everything Resolve reads from a record. Two records with equal
// Inputs resolve to the same Requirements.
type Inputs struct {
	Levels      []string
	SponsorName string
	Exam        string
}

func InputsOf(rec *models.ApplicationRecord) Inputs {
	in := Inputs{
		SponsorName: rec.SponsorName(),
		Exam:        strings.TrimSpace(rec.LanguageProficiency.Exam),
	}
	for _, e := range rec.EducationEntries {
		in.Levels = append(in.Levels, strings.TrimSpace(e.Level))
	}
	return in
}

func (in Inputs) Equal(other Inputs) bool {
	if in.SponsorName != other.SponsorName || in.Exam != other.Exam || len(in.Levels) != len(other.Levels) {
		return false
	}
	for i := range in.Levels {
		if in.Levels[i] != other.Levels[i] {
			return false
		}
	}
	return true
}

// Resolve computes the document slots for rec from scratch.
func Resolve(rec *models.ApplicationRecord) Requirements {
	return ResolveInputs(InputsOf(rec))
}

// ResolveInputs is Resolve over pre-extracted inputs.
func ResolveInputs(in Inputs) Requirements {
	hasExam := models.LanguageProficiency{Exam: in.Exam}.HasExam()
	hasSponsor := in.SponsorName != ""

	slots := []models.DocumentSlot{
		{
			Name:          SlotPassport,
			Title:         "Passport",
			Description:   "Identity page of a valid passport",
			AcceptedTypes: documentTypes,
			Required:      true,
		},
		{
			Name:          SlotResume,
			Title:         "Résumé",
			Description:   "Curriculum vitae",
			AcceptedTypes: resumeTypes,
			Required:      true,
		},
		{
			Name:          SlotHighSchoolTranscripts,
			Title:         "High School Transcripts",
			Description:   "Transcripts and diploma of your secondary education",
			AcceptedTypes: documentTypes,
			AllowMultiple: true,
			Required:      true,
		},
		{
			Name:          SlotLanguageTestResult,
			Title:         "Language Test Result",
			Description:   "Official score report of your language exam",
			AcceptedTypes: documentTypes,
			Required:      hasExam,
		},
	}

	seen := map[string]bool{}
	for i, level := range in.Levels {
		if i == 0 || level == "" || strings.EqualFold(level, models.LevelHighSchool) {
			continue
		}
		name := EducationSlotName(level)
		if seen[name] {
			continue
		}
		seen[name] = true
		slots = append(slots, models.DocumentSlot{
			Name:          name,
			Title:         level + " Transcripts",
			Description:   "Transcripts and degree certificate for your " + level + " studies",
			AcceptedTypes: documentTypes,
			AllowMultiple: true,
			Required:      true,
		})
	}

	slots = append(slots,
		models.DocumentSlot{
			Name:          SlotSponsorLetter,
			Title:         "Sponsor Letter",
			Description:   "Signed letter from your education sponsor",
			AcceptedTypes: documentTypes,
			Required:      hasSponsor,
		},
		models.DocumentSlot{
			Name:          SlotSponsorDocuments,
			Title:         "Sponsor Documents",
			Description:   "Sponsor identity and proof of funds",
			AcceptedTypes: documentTypes,
			AllowMultiple: true,
			Required:      hasSponsor,
		},
		models.DocumentSlot{
			Name:          SlotFinancialDocuments,
			Title:         "Financial Documents",
			Description:   "Bank statements or scholarship letters",
			AcceptedTypes: documentTypes,
			AllowMultiple: true,
		},
	)

	return Requirements{Slots: slots}
}

// EducationSlotName is the slot name for a non-primary education level.
func EducationSlotName(level string) string {
	return strings.ToLower(strings.TrimSpace(level)) + " transcripts"
}
