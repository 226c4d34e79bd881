// internal/workers/application/send-notification/models.go
package sendnotification

type Input struct {
	NotificationType string                 `json:"notificationType"`
	LeadID           string                 `json:"leadId,omitempty"`
	ApplicationID    string                 `json:"applicationId,omitempty"`
	ProgramID        string                 `json:"programId,omitempty"`
	Email            string                 `json:"email,omitempty"`
	Phone            string                 `json:"phone,omitempty"`
	FirstName        string                 `json:"firstName,omitempty"`
	LastName         string                 `json:"lastName,omitempty"`
	Priority         string                 `json:"priority,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "disabled"
	EmailMessageID string `json:"emailMessageId,omitempty"`
	SMSMessageID   string `json:"smsMessageId,omitempty"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeApplicationSubmitted = "application_submitted"
	TypeDocumentsRequested   = "documents_requested"
	TypeApplicationDecision  = "application_decision"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

const PriorityHigh = "high"

type template struct {
	Subject string
	Body    string
}

var templates = map[string]template{
	TypeApplicationSubmitted: {
		Subject: "We received your application",
		Body:    "Hello {{firstName}}, your application for {{programName}} has been submitted. Reference: {{leadId}}.",
	},
	TypeDocumentsRequested: {
		Subject: "Documents needed for your application",
		Body:    "Hello {{firstName}}, we need more documents for application {{applicationId}}: {{documents}}.",
	},
	TypeApplicationDecision: {
		Subject: "An update on your application",
		Body:    "Hello {{firstName}}, a decision on application {{applicationId}} is available: {{decision}}.",
	},
}
