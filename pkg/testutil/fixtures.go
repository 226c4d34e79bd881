// Package testutil holds fixtures shared by package tests.
package testutil

import "admissions-wizard/internal/models"

// CompleteApplication returns a record that passes every submission check:
// student applicant, high-school education only, no language exam, no
// sponsor, and one attachment in each baseline document slot.
func CompleteApplication(programID string) models.ApplicationRecord {
	rec := models.NewApplicationRecord(programID)
	rec.ApplicantType = models.ApplicantStudent
	rec.PersonalInfo = models.PersonalInfo{
		FirstName:          "Ada",
		LastName:           "Lovelace",
		DateOfBirth:        "1995-12-10",
		Email:              "ada@example.com",
		Gender:             "female",
		MaritalStatus:      "single",
		CountryOfResidence: "UK",
		Phone:              "+447700900123",
	}
	rec.EmergencyContact = models.Contact{Name: "Byron", Phone: "+447700900456", Email: "byron@example.com"}
	rec.EducationEntries = []models.EducationEntry{{
		Level:          models.LevelHighSchool,
		Country:        "UK",
		Institution:    "Somerville",
		FieldOfStudy:   "Mathematics",
		Grade:          "A",
		GraduationDate: "2013-06-30",
	}}
	rec.LanguageProficiency = models.LanguageProficiency{Exam: models.ExamNone}
	rec.PaymentMethod = models.PaymentCreditCard
	rec.Documents = models.Documents{
		"passport":              {PDF("att-1", "passport.pdf")},
		"resume":                {PDF("att-2", "resume.pdf")},
		"highSchoolTranscripts": {PDF("att-3", "transcripts.pdf")},
	}
	return rec
}

// PDF is a 1 KiB PDF attachment.
func PDF(id, name string) models.Attachment {
	return models.Attachment{
		ID:   id,
		File: models.File{Name: name, Size: 1024, ContentType: "application/pdf"},
	}
}

// Program is a catalog entry with the attributes the confirmation step shows.
func Program(id string) *models.Program {
	return &models.Program{
		ID:     id,
		Name:   "MSc Data Science",
		Images: []string{"campus.jpg"},
		Attributes: map[string][]string{
			models.AttrLevel:    {"Master"},
			models.AttrDuration: {"2 years"},
			models.AttrCountry:  {"Canada"},
			models.AttrSchool:   {"University of Toronto"},
		},
		MetaData: map[string]string{
			models.MetaRequirements:   "<ul><li>Transcripts</li></ul>",
			models.MetaApplicationFee: "100 CAD",
		},
	}
}
