// internal/wizard/validators/validators_test.go
package validators

import (
	"testing"

	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/requirements"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// completeRecord passes every section, grade included.
func completeRecord() models.ApplicationRecord {
	rec := models.NewApplicationRecord("prog-1")
	rec.ApplicantType = models.ApplicantStudent
	rec.PersonalInfo = models.PersonalInfo{
		FirstName:          "Ada",
		LastName:           "Lovelace",
		DateOfBirth:        "1995-12-10",
		Email:              "ada@example.com",
		Gender:             "female",
		MaritalStatus:      "single",
		CountryOfResidence: "UK",
		Phone:              "+44 7700 900123",
	}
	rec.EmergencyContact = models.Contact{Name: "Byron", Phone: "+447700900456", Email: "byron@example.com"}
	rec.EducationEntries[0] = models.EducationEntry{
		Level:          "High School",
		Country:        "UK",
		Institution:    "Somerville",
		FieldOfStudy:   "Mathematics",
		Grade:          "A",
		GraduationDate: "2013-06-30",
	}
	rec.LanguageProficiency.Exam = models.ExamNone
	rec.PaymentMethod = models.PaymentBankTransfer
	for _, slot := range []string{requirements.SlotPassport, requirements.SlotResume, requirements.SlotHighSchoolTranscripts} {
		rec.Documents[slot] = []models.Attachment{{ID: slot + "-1", File: models.File{Name: slot + ".pdf", Size: 10}}}
	}
	return rec
}

func keys(errs Errors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

// ==========================
// Identity
// ==========================

func TestIdentity(t *testing.T) {
	tests := []struct {
		name    string
		typ     models.ApplicantType
		agent   string
		amb     string
		wantKey string
		code    string
	}{
		{name: "missing type", wantKey: "applicantType", code: CodeMissingRequired},
		{name: "unknown type", typ: "alien", wantKey: "applicantType", code: CodeInvalidValue},
		{name: "agent without id", typ: models.ApplicantAgent, wantKey: "agentId", code: CodeMissingRequired},
		{name: "ambassador without id", typ: models.ApplicantAmbassador, agent: "ag-1", wantKey: "ambassadorId", code: CodeMissingRequired},
		{name: "agent with id", typ: models.ApplicantAgent, agent: "ag-1"},
		{name: "ambassador with id", typ: models.ApplicantAmbassador, amb: "amb-1"},
		{name: "student", typ: models.ApplicantStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := models.NewApplicationRecord("p")
			rec.ApplicantType = tt.typ
			rec.AgentID = tt.agent
			rec.AmbassadorID = tt.amb

			errs := Identity(&rec)

			if tt.wantKey == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantKey, errs[0].Field)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

// ==========================
// Personal step
// ==========================

func TestFullValidator_CompleteRecordPasses(t *testing.T) {
	rec := completeRecord()

	assert.Empty(t, FullValidator{}.Validate(&rec))
	assert.Empty(t, CriticalValidator{}.Validate(&rec))
	assert.Empty(t, Submission().Validate(&rec))
}

func TestPersonalInfo_RequiredFieldsInFormOrder(t *testing.T) {
	rec := models.NewApplicationRecord("p")

	errs := PersonalInfo(&rec)

	assert.Equal(t, []string{
		"personalInfo_firstName",
		"personalInfo_lastName",
		"personalInfo_dateOfBirth",
		"personalInfo_email",
		"personalInfo_gender",
		"personalInfo_maritalStatus",
		"personalInfo_countryOfResidence",
		"personalInfo_phone",
	}, keys(errs))
	assert.Equal(t, "personalInfo_firstName", errs.FirstKey())
}

func TestPersonalInfo_Formats(t *testing.T) {
	rec := completeRecord()
	rec.PersonalInfo.Email = "not-an-email"
	rec.PersonalInfo.Phone = "12"

	errs := PersonalInfo(&rec)

	require.Len(t, errs, 2)
	assert.Equal(t, CodeInvalidFormat, errs[0].Code)
	assert.Equal(t, "personalInfo_email", errs[0].Field)
	assert.Equal(t, "personalInfo_phone", errs[1].Field)
}

func TestPhone_NationalFormats(t *testing.T) {
	for _, phone := range []string{"07700 900123", "020 7946 0958", "+44 20 7946 0958", "(555) 123-4567"} {
		rec := completeRecord()
		rec.PersonalInfo.Phone = phone
		assert.Empty(t, PersonalInfo(&rec), phone)
	}
	for _, phone := range []string{"123456", "+1234567890123456", "ext"} {
		rec := completeRecord()
		rec.PersonalInfo.Phone = phone
		assert.Equal(t, []string{"personalInfo_phone"}, keys(PersonalInfo(&rec)), phone)
	}
}

func TestEmergencyContact_RelationshipOptional(t *testing.T) {
	rec := completeRecord()
	rec.EmergencyContact.Relationship = ""
	assert.Empty(t, EmergencyContact(&rec))

	rec.EmergencyContact = models.Contact{Relationship: "father"}
	assert.Equal(t, []string{"emergencyContact_name", "emergencyContact_phone", "emergencyContact_email"}, keys(EmergencyContact(&rec)))
}

func TestSponsor(t *testing.T) {
	rec := completeRecord()
	assert.Empty(t, Sponsor(&rec))

	rec.EducationSponsor = &models.Contact{}
	assert.Empty(t, Sponsor(&rec), "blank sponsor section counts as none")

	rec.EducationSponsor = &models.Contact{Name: "Jane"}
	assert.Equal(t, []string{"educationSponsor_phone", "educationSponsor_email"}, keys(Sponsor(&rec)))
}

func TestPrimaryEducation_GradeOnlyOnFullPass(t *testing.T) {
	rec := completeRecord()
	rec.EducationEntries[0].Grade = ""

	full := FullValidator{}.Validate(&rec)
	critical := CriticalValidator{}.Validate(&rec)

	assert.Equal(t, []string{"educationEntries_0_grade"}, keys(full))
	assert.Empty(t, critical)
}

func TestPrimaryEducation_OnlyPrimaryEntryChecked(t *testing.T) {
	rec := completeRecord()
	rec.EducationEntries = append(rec.EducationEntries, models.EducationEntry{Level: "Master's"})

	assert.Empty(t, FullValidator{}.Validate(&rec))
}

func TestLanguageProficiency(t *testing.T) {
	t.Run("none ignores sub scores on both passes", func(t *testing.T) {
		rec := completeRecord()
		rec.LanguageProficiency = models.LanguageProficiency{Exam: "None", Listening: "", Overall: "garbage"}

		assert.Empty(t, FullValidator{}.Validate(&rec).WithPrefix("languageProficiency_"))
		assert.Empty(t, CriticalValidator{}.Validate(&rec).WithPrefix("languageProficiency_"))
	})

	t.Run("missing exam choice", func(t *testing.T) {
		rec := completeRecord()
		rec.LanguageProficiency = models.LanguageProficiency{}
		assert.Equal(t, []string{"languageProficiency_exam"}, keys(LanguageProficiency(&rec)))
	})

	t.Run("exam requires all details", func(t *testing.T) {
		rec := completeRecord()
		rec.LanguageProficiency = models.LanguageProficiency{Exam: "IELTS"}
		assert.Equal(t, []string{
			"languageProficiency_listening",
			"languageProficiency_reading",
			"languageProficiency_writing",
			"languageProficiency_speaking",
			"languageProficiency_overall",
			"languageProficiency_reportNumber",
			"languageProficiency_testDate",
		}, keys(LanguageProficiency(&rec)))
	})

	t.Run("complete exam", func(t *testing.T) {
		rec := completeRecord()
		rec.LanguageProficiency = models.LanguageProficiency{
			Exam: "IELTS", Listening: "7", Reading: "7", Writing: "6.5", Speaking: "7",
			Overall: "7", ReportNumber: "R-1", TestDate: "2024-01-01",
		}
		assert.Empty(t, LanguageProficiency(&rec))
	})
}

func TestWorkExperience(t *testing.T) {
	rec := completeRecord()
	rec.WorkExperiences = []models.WorkExperience{{}}
	assert.Empty(t, WorkExperience(&rec), "ignored without declared experience")

	rec.HasExperience = true
	rec.WorkExperiences = []models.WorkExperience{
		{Company: "Acme", Position: "Dev", StartDate: "2020-01-01"},
		{Company: "Initech", Position: "Dev", StartDate: "2022-01-01", CurrentlyEmployed: true},
		{},
	}

	assert.Equal(t, []string{
		"workExperience_0_endDate",
		"workExperience_2_company",
		"workExperience_2_position",
		"workExperience_2_startDate",
		"workExperience_2_endDate",
	}, keys(WorkExperience(&rec)))
}

func TestWorkExperience_DeclaredWithoutEntries(t *testing.T) {
	rec := completeRecord()
	rec.HasExperience = true
	rec.WorkExperiences = nil

	errs := WorkExperience(&rec)

	require.Len(t, errs, 1)
	assert.Equal(t, "workExperience", errs[0].Field)
	assert.Equal(t, CodeMissingRequired, errs[0].Code)
}

func TestVisaRejection(t *testing.T) {
	rec := completeRecord()
	assert.Empty(t, VisaRejection(&rec))

	rec.VisaRejection.HasRejection = true
	assert.Equal(t, []string{"visaRejection_countries"}, keys(VisaRejection(&rec)))

	rec.VisaRejection.Countries = []string{"Canada"}
	assert.Empty(t, VisaRejection(&rec))
}

// ==========================
// Documents and payment
// ==========================

func TestDocuments(t *testing.T) {
	rec := completeRecord()
	assert.Empty(t, Documents(&rec))

	delete(rec.Documents, requirements.SlotResume)
	rec.EducationSponsor = &models.Contact{Name: "Jane"}

	assert.Equal(t, []string{
		"documents_resume",
		"documents_sponsorLetter",
		"documents_sponsorDocuments",
	}, keys(Documents(&rec)))
}

func TestDocuments_EmptyListCountsAsMissing(t *testing.T) {
	rec := completeRecord()
	rec.Documents[requirements.SlotPassport] = []models.Attachment{}

	assert.True(t, Documents(&rec).Has("documents_passport"))
}

func TestPayment(t *testing.T) {
	rec := completeRecord()
	assert.Empty(t, Payment(&rec))

	rec.PaymentMethod = ""
	errs := Payment(&rec)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeMissingRequired, errs[0].Code)

	rec.PaymentMethod = "bitcoin"
	errs = Payment(&rec)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeInvalidValue, errs[0].Code)
}

// ==========================
// Errors helpers
// ==========================

func TestErrors_Map(t *testing.T) {
	errs := Errors{
		{Field: "a", Code: CodeMissingRequired, Message: "first"},
		{Field: "a", Code: CodeInvalidFormat, Message: "second"},
		{Field: "b", Code: CodeMissingRequired, Message: "b"},
	}

	assert.Equal(t, map[string]string{"a": "first", "b": "b"}, errs.Map())
	assert.Equal(t, "a", errs.FirstKey())
	assert.Equal(t, "", Errors(nil).FirstKey())
	assert.Empty(t, Errors(nil).Map())
}
