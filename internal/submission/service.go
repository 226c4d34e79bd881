// Package submission hands a finished application to the CRM and starts the
// admissions process for it.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/common/validation"
	"admissions-wizard/internal/common/zoho"
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/validators"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "admissions-wizard/submission"

const leadSource = "Online Application"

// LeadStore is the CRM side of a submission.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	SearchLeadsByEmail(ctx context.Context, email string) ([]zoho.Lead, error)
}

// ProcessStarter starts a workflow instance and returns its key.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// SchemaValidator checks the wire shape of a record.
type SchemaValidator interface {
	Validate(doc interface{}) (*validation.ValidationResult, error)
}

// SubmissionRecorder counts accepted submissions.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, programID, applicantType string)
}

type Config struct {
	ProcessID string
	Now       func() time.Time
}

type Deps struct {
	Leads     LeadStore
	Processes ProcessStarter
	Schema    SchemaValidator
	Recorder  SubmissionRecorder
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// ProcessVariables are the variables every admissions process instance starts with.
type ProcessVariables struct {
	LeadID        string                   `json:"leadId"`
	ProgramID     string                   `json:"programId"`
	ApplicantType string                   `json:"applicantType"`
	Email         string                   `json:"email"`
	Phone         string                   `json:"phone"`
	FirstName     string                   `json:"firstName"`
	LastName      string                   `json:"lastName"`
	SubmittedAt   string                   `json:"submittedAt"`
	Application   models.ApplicationRecord `json:"application"`
}

type Service struct {
	config Config
	deps   Deps
	tracer trace.Tracer
	logger logger.Logger
}

func NewService(config Config, deps Deps, log logger.Logger) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Service{
		config: config,
		deps:   deps,
		tracer: tracer,
		logger: log.WithFields(map[string]interface{}{"component": "submission"}),
	}
}

// Submit validates record, records it as a CRM lead and starts the admissions
// process. A lead already filed for the same email and program is reused, so
// a retried submission does not create a second lead.
func (s *Service) Submit(ctx context.Context, record models.ApplicationRecord) (models.SubmissionReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "submission.Submit", trace.WithAttributes(
		attribute.String("program.id", record.ProgramID),
		attribute.String("applicant.type", string(record.ApplicantType)),
	))
	defer span.End()

	if err := s.validate(&record); err != nil {
		return models.SubmissionReceipt{}, fail(span, err)
	}

	submittedAt := s.config.Now().UTC()
	leadID, err := s.ensureLead(ctx, &record)
	if err != nil {
		return models.SubmissionReceipt{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("lead.id", leadID))

	vars := ProcessVariables{
		LeadID:        leadID,
		ProgramID:     record.ProgramID,
		ApplicantType: string(record.ApplicantType),
		Email:         strings.TrimSpace(record.PersonalInfo.Email),
		Phone:         strings.TrimSpace(record.PersonalInfo.Phone),
		FirstName:     strings.TrimSpace(record.PersonalInfo.FirstName),
		LastName:      strings.TrimSpace(record.PersonalInfo.LastName),
		SubmittedAt:   submittedAt.Format(time.RFC3339),
		Application:   record,
	}

	key, err := s.startProcess(ctx, vars)
	if err != nil {
		s.logger.Error("failed to start admissions process", map[string]interface{}{
			"leadId":    leadID,
			"processId": s.config.ProcessID,
			"error":     err.Error(),
		})
		return models.SubmissionReceipt{}, fail(span, err)
	}
	span.SetAttributes(attribute.Int64("process.instance_key", key))

	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordSubmission(ctx, record.ProgramID, string(record.ApplicantType))
	}
	s.logger.Info("application handed off", map[string]interface{}{
		"leadId":             leadID,
		"programId":          record.ProgramID,
		"processInstanceKey": key,
	})

	return models.SubmissionReceipt{
		LeadID:             leadID,
		ProcessInstanceKey: key,
		SubmittedAt:        submittedAt,
	}, nil
}

func (s *Service) startProcess(ctx context.Context, vars ProcessVariables) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "zeebe.CreateInstance", trace.WithAttributes(
		attribute.String("process.id", s.config.ProcessID),
	))
	defer span.End()

	key, err := s.deps.Processes.StartProcess(ctx, s.config.ProcessID, vars)
	if err != nil {
		return 0, fail(span, err)
	}
	return key, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) validate(record *models.ApplicationRecord) error {
	if errs := validators.Submission().Validate(record); len(errs) > 0 {
		s.logger.Warn("submission rejected", map[string]interface{}{
			"programId":  record.ProgramID,
			"errorCount": len(errs),
			"firstError": errs.FirstKey(),
		})
		return apperrors.NewApplicationValidationFailedError(errs.String()).
			WithMetadata("fields", errs.Map())
	}

	if s.deps.Schema == nil {
		return nil
	}
	result, err := s.deps.Schema.Validate(record)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("schema validation: %w", err))
	}
	if !result.Valid {
		return apperrors.NewApplicationValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}

func (s *Service) ensureLead(ctx context.Context, record *models.ApplicationRecord) (string, error) {
	ctx, span := s.tracer.Start(ctx, "crm.EnsureLead")
	defer span.End()

	email := strings.TrimSpace(record.PersonalInfo.Email)

	existing, err := s.deps.Leads.SearchLeadsByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("lead lookup failed, creating a new lead", map[string]interface{}{
			"error": err.Error(),
		})
	}
	for _, lead := range existing {
		if lead.ID != "" && lead.ProgramID == record.ProgramID {
			s.logger.Info("reusing existing lead", map[string]interface{}{"leadId": lead.ID})
			span.SetAttributes(attribute.Bool("lead.reused", true))
			return lead.ID, nil
		}
	}

	lead, err := toLead(record)
	if err != nil {
		return "", fail(span, apperrors.NewInternalError(err))
	}
	id, err := s.deps.Leads.CreateLead(ctx, lead)
	if err != nil {
		s.logger.Error("failed to create lead", map[string]interface{}{
			"programId": record.ProgramID,
			"error":     err.Error(),
		})
		return "", fail(span, err)
	}
	return id, nil
}

func toLead(record *models.ApplicationRecord) (*zoho.Lead, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode application: %w", err)
	}
	p := record.PersonalInfo
	return &zoho.Lead{
		FirstName:     strings.TrimSpace(p.FirstName),
		LastName:      strings.TrimSpace(p.LastName),
		Email:         strings.TrimSpace(p.Email),
		Phone:         strings.TrimSpace(p.Phone),
		Country:       strings.TrimSpace(p.CountryOfResidence),
		Source:        leadSource,
		ProgramID:     record.ProgramID,
		ApplicantType: string(record.ApplicantType),
		AgentID:       record.AgentID,
		AmbassadorID:  record.AmbassadorID,
		PaymentMethod: string(record.PaymentMethod),
		Description:   string(body),
	}, nil
}
