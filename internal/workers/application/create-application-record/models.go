// internal/workers/application/create-application-record/models.go
package createapplicationrecord

import "encoding/json"

type Input struct {
	LeadID        string          `json:"leadId"`
	ProgramID     string          `json:"programId"`
	ApplicantType string          `json:"applicantType"`
	Email         string          `json:"email"`
	SubmittedAt   string          `json:"submittedAt"`
	Application   json.RawMessage `json:"application"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
	CreatedAt         string `json:"createdAt"` // ISO 8601
}

const StatusSubmitted = "submitted"
