// internal/workers/application/validate-application-record/models.go
package validateapplicationrecord

import (
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/validators"
)

type Input struct {
	LeadID      string                   `json:"leadId"`
	Application models.ApplicationRecord `json:"application"`
}

type Output struct {
	IsValid           bool                         `json:"isValid"`
	ValidationErrors  []validators.ValidationError `json:"validationErrors"`
	RequiredDocuments []string                     `json:"requiredDocuments"`
	DocumentCount     int                          `json:"documentCount"`
}
