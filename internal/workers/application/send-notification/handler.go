// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"admissions-wizard/internal/common/aws"
	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "send-notification"

var placeholder = regexp.MustCompile(`\{\{[^}]*\}\}`)

type EmailSender interface {
	Send(ctx context.Context, email aws.Email) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// Deps are optional: a nil DB disables the recipient lookup and a nil
// sender disables its channel.
type Deps struct {
	DB    *sql.DB
	Email EmailSender
	SMS   SMSSender
}

// Handler tells applicants about application milestones by email and,
// for high priority notifications, by SMS.
type Handler struct {
	config       *Config
	deps         Deps
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, deps Deps, log logger.Logger) *Handler {
	if config.Now == nil {
		config.Now = time.Now
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		deps:         deps,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
		metrics.ObserveJob(TaskType, string(stdErr.Code), start)
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.ObserveJob(TaskType, string(apperrors.Normalize(err).Code), start)
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.ObserveJob(TaskType, "", start)
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.NotificationType == "" {
		input.NotificationType = TypeApplicationSubmitted
	}
	tmpl, ok := templates[input.NotificationType]
	if !ok {
		return nil, apperrors.NewInvalidRequestError(
			fmt.Sprintf("unknown notification type: %s", input.NotificationType))
	}

	if err := h.resolveRecipient(ctx, input); err != nil {
		return nil, err
	}

	output := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		SentAt:         h.config.Now().UTC().Format(time.RFC3339),
	}

	data := templateData(input)
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	if h.config.EmailEnabled && h.deps.Email != nil && input.Email != "" {
		id, err := h.deps.Email.Send(ctx, aws.Email{
			To:      input.Email,
			Subject: subject,
			Text:    body,
		})
		if err != nil {
			return nil, apperrors.NewNotificationSendFailedError("email", err)
		}
		output.EmailMessageID = id
		output.Status = StatusSent
	}

	if h.config.SMSEnabled && h.deps.SMS != nil && input.Phone != "" && input.Priority == PriorityHigh {
		id, err := h.deps.SMS.SendSMS(ctx, input.Phone, body)
		if err != nil {
			return nil, apperrors.NewNotificationSendFailedError("sms", err)
		}
		output.SMSMessageID = id
		output.Status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationId":   output.NotificationID,
		"notificationType": input.NotificationType,
		"status":           output.Status,
		"leadId":           input.LeadID,
	})
	return output, nil
}

// resolveRecipient fills missing contact details from the stored
// application. A missing row leaves the input as is.
func (h *Handler) resolveRecipient(ctx context.Context, input *Input) error {
	if input.Email != "" || input.Phone != "" || input.ApplicationID == "" || h.deps.DB == nil {
		return nil
	}

	var email, phone, firstName string
	err := h.deps.DB.QueryRowContext(ctx, `
		SELECT email,
		       COALESCE(application_data->'personalInfo'->>'phone', ''),
		       COALESCE(application_data->'personalInfo'->>'firstName', '')
		FROM applications WHERE id = $1`, input.ApplicationID).Scan(&email, &phone, &firstName)
	if errors.Is(err, sql.ErrNoRows) {
		h.logger.Warn("application not found for notification", map[string]interface{}{
			"applicationId": input.ApplicationID,
		})
		return nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewQueryTimeoutError("recipient lookup")
		}
		return apperrors.NewDatabaseConnectionFailedError(fmt.Errorf("recipient lookup: %w", err))
	}

	input.Email = email
	input.Phone = phone
	if input.FirstName == "" {
		input.FirstName = firstName
	}
	return nil
}

func templateData(input *Input) map[string]string {
	data := map[string]string{
		"firstName":     input.FirstName,
		"lastName":      input.LastName,
		"leadId":        input.LeadID,
		"applicationId": input.ApplicationID,
		"programId":     input.ProgramID,
		"programName":   input.ProgramID,
	}
	for k, v := range input.Metadata {
		switch val := v.(type) {
		case string:
			data[k] = val
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			data[k] = strings.Join(parts, ", ")
		default:
			data[k] = fmt.Sprint(val)
		}
	}
	return data
}

func renderTemplate(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return placeholder.ReplaceAllString(result, "")
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
