// internal/workers/application/create-application-record/handler.go
package createapplicationrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	TaskType = "create-application-record"

	uniqueViolation = "23505"
)

// Handler stores a submitted application, one row per lead and program.
type Handler struct {
	config       *Config
	db           *sql.DB
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	if config.Now == nil {
		config.Now = time.Now
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
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

	output, err := h.execute(ctx, job.ProcessInstanceKey, &input)
	if err != nil {
		metrics.ObserveJob(TaskType, string(apperrors.Normalize(err).Code), start)
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.ObserveJob(TaskType, "", start)
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, processInstanceKey int64, input *Input) (*Output, error) {
	if strings.TrimSpace(input.LeadID) == "" || strings.TrimSpace(input.ProgramID) == "" {
		return nil, apperrors.NewInvalidRequestError("leadId and programId are required")
	}
	if len(input.Application) == 0 || !json.Valid(input.Application) {
		return nil, apperrors.NewInvalidRequestError("application must be a JSON object")
	}

	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE lead_id = $1 AND program_id = $2
		)`, input.LeadID, input.ProgramID).Scan(&exists)
	if err != nil {
		return nil, h.dbError(ctx, "duplicate check", err)
	}
	if exists {
		return nil, apperrors.NewDuplicateApplicationError(
			fmt.Sprintf("application already exists for lead %s and program %s", input.LeadID, input.ProgramID))
	}

	appID := uuid.New().String()
	createdAt := h.config.Now().UTC().Format(time.RFC3339)
	submittedAt := input.SubmittedAt
	if submittedAt == "" {
		submittedAt = createdAt
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, lead_id, program_id, applicant_type, email, application_data,
			process_instance_key, status, submitted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		appID,
		input.LeadID,
		input.ProgramID,
		input.ApplicantType,
		input.Email,
		[]byte(input.Application),
		processInstanceKey,
		StatusSubmitted,
		submittedAt,
		createdAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperrors.NewDuplicateApplicationError(
				fmt.Sprintf("application already exists for lead %s and program %s", input.LeadID, input.ProgramID))
		}
		return nil, h.dbError(ctx, "insert", err)
	}

	// The audit trail is best effort.
	auditDetailsJSON, err := json.Marshal(map[string]interface{}{
		"leadId":             input.LeadID,
		"programId":          input.ProgramID,
		"applicantType":      input.ApplicantType,
		"processInstanceKey": processInstanceKey,
	})
	if err != nil {
		auditDetailsJSON = []byte("{}")
	}
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"application_created",
		"application",
		appID,
		auditDetailsJSON,
		createdAt,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"applicationId": appID,
		})
	}

	h.logger.Info("application record created", map[string]interface{}{
		"applicationId": appID,
		"leadId":        input.LeadID,
		"programId":     input.ProgramID,
	})

	return &Output{
		ApplicationID:     appID,
		ApplicationStatus: StatusSubmitted,
		CreatedAt:         createdAt,
	}, nil
}

func (h *Handler) dbError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewQueryTimeoutError(op)
	}
	return apperrors.NewDatabaseInsertFailedError(fmt.Errorf("%s: %w", op, err))
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

func (h *Handler) Execute(ctx context.Context, processInstanceKey int64, input *Input) (*Output, error) {
	return h.execute(ctx, processInstanceKey, input)
}
