// internal/workers/application/validate-application-record/handler.go
package validateapplicationrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/common/validation"
	"admissions-wizard/internal/wizard/requirements"
	"admissions-wizard/internal/wizard/validators"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-application-record"
)

// Handler re-checks a submitted application on the engine side, so records
// that reached the process by another route get the same checks as the wizard.
type Handler struct {
	config       *Config
	schema       *validation.Schema
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, schema *validation.Schema, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		schema:       schema,
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

// execute fails with APPLICATION_VALIDATION_FAILED when the record would not
// have been accepted by the wizard.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	rec := &input.Application
	errs := validators.Submission().Validate(rec)

	if h.schema != nil {
		result, err := h.schema.Validate(rec)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		for _, ve := range result.Errors {
			errs = append(errs, validators.ValidationError{
				Field:   "schema." + ve.Field,
				Code:    validators.CodeInvalidValue,
				Message: ve.Message,
			})
		}
	}

	required := requirements.Resolve(rec).Required()
	docCount := 0
	for _, atts := range rec.Documents {
		docCount += len(atts)
	}

	h.logger.Info("validation completed", map[string]interface{}{
		"leadId":     input.LeadID,
		"programId":  rec.ProgramID,
		"isValid":    len(errs) == 0,
		"errorCount": len(errs),
	})

	if len(errs) > 0 {
		return nil, apperrors.NewApplicationValidationFailedError(
			fmt.Sprintf("%d validation errors: %s", len(errs), strings.Join(fieldsOf(errs), ", "))).
			WithMetadata("fields", errs.Map())
	}

	return &Output{
		IsValid:           true,
		ValidationErrors:  []validators.ValidationError{},
		RequiredDocuments: required,
		DocumentCount:     docCount,
	}, nil
}

func fieldsOf(errs validators.Errors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
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
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
