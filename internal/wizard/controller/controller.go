// internal/wizard/controller/controller.go
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/attachments"
	"admissions-wizard/internal/wizard/coordinator"
	"admissions-wizard/internal/wizard/requirements"
	"admissions-wizard/internal/wizard/validators"
)

var (
	ErrTerminalStep       = errors.New("TERMINAL_STEP")
	ErrProgramNotResolved = errors.New("PROGRAM_NOT_RESOLVED")
	ErrClosed             = errors.New("WIZARD_CLOSED")
	ErrNotAtConfirmation  = errors.New("NOT_AT_CONFIRMATION")
	ErrAlreadySubmitted   = errors.New("ALREADY_SUBMITTED")
	ErrSubmissionFailed   = errors.New("SUBMISSION_FAILED")
	ErrIndexOutOfRange    = errors.New("INDEX_OUT_OF_RANGE")
	ErrUnknownSlot        = errors.New("UNKNOWN_DOCUMENT_SLOT")
	ErrBlankCountry       = errors.New("BLANK_COUNTRY")
)

// Submitter hands a finished record to the admissions backend.
type Submitter interface {
	Submit(ctx context.Context, record models.ApplicationRecord) (models.SubmissionReceipt, error)
}

// Recorder receives wizard events for metrics.
type Recorder interface {
	StepTransition(from, to models.Step)
	ValidationFailed(step models.Step, strategy string, errorCount int)
	AttachmentsUploaded(slot string, accepted, rejected int)
	SubmissionFinished(success bool, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) StepTransition(models.Step, models.Step)   {}
func (nopRecorder) ValidationFailed(models.Step, string, int) {}
func (nopRecorder) AttachmentsUploaded(string, int, int)      {}
func (nopRecorder) SubmissionFinished(bool, time.Duration)    {}

type Config struct {
	ProgramID string
	// AllowDuplicateVisaCountries keeps repeated countries in the rejection list.
	AllowDuplicateVisaCountries bool
	Now                         func() time.Time
}

type Deps struct {
	Coordinator *coordinator.Coordinator
	Session     *coordinator.Session
	Attachments *attachments.Store
	Recorder    Recorder
}

// AdvanceResult describes one advance attempt. Validation failures are
// reported here, not as errors.
type AdvanceResult struct {
	From       models.Step        `json:"from"`
	To         models.Step        `json:"to"`
	Moved      bool               `json:"moved"`
	Validation coordinator.Result `json:"validation"`
}

// Controller owns one application record and the wizard position. It is not
// safe for concurrent use.
type Controller struct {
	cfg          Config
	record       models.ApplicationRecord
	step         models.Step
	coordinator  *coordinator.Coordinator
	session      *coordinator.Session
	store        *attachments.Store
	recorder     Recorder
	requirements requirements.Requirements
	reqInputs    requirements.Inputs
	program      programState
	history      []models.Transition
	receipt      *models.SubmissionReceipt
	lastSubmit   error
	closed       bool
	logger       logger.Logger
}

func New(cfg Config, deps Deps, log logger.Logger) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	sessionID := ""
	if deps.Session != nil {
		sessionID = deps.Session.ID()
	}
	if deps.Coordinator == nil {
		deps.Coordinator = coordinator.New(log)
	}
	if deps.Attachments == nil {
		deps.Attachments = attachments.NewStore(attachments.UUIDGenerator{}, 0, log)
	}

	c := &Controller{
		cfg:         cfg,
		record:      models.NewApplicationRecord(cfg.ProgramID),
		step:        models.FirstStep,
		coordinator: deps.Coordinator,
		session:     deps.Session,
		store:       deps.Attachments,
		recorder:    deps.Recorder,
		program:     programState{status: FetchIdle},
		logger:      log.WithFields(map[string]interface{}{"sessionId": sessionID}),
	}
	c.refreshRequirements(true)
	return c
}

func (c *Controller) CurrentStep() models.Step { return c.step }

// Record returns a copy of the current record.
func (c *Controller) Record() models.ApplicationRecord { return c.record.Clone() }

func (c *Controller) Requirements() requirements.Requirements { return c.requirements }

func (c *Controller) History() []models.Transition {
	return append([]models.Transition(nil), c.history...)
}

func (c *Controller) Receipt() (models.SubmissionReceipt, bool) {
	if c.receipt == nil {
		return models.SubmissionReceipt{}, false
	}
	return *c.receipt, true
}

func (c *Controller) Closed() bool { return c.closed }

// Update merges patch into the record. Top-level fields set in the patch
// replace the stored ones; nested sections are replaced wholesale.
func (c *Controller) Update(patch models.RecordPatch) error {
	if c.closed {
		return ErrClosed
	}
	r := &c.record

	if patch.ProgramID != nil && *patch.ProgramID != r.ProgramID {
		r.ProgramID = *patch.ProgramID
		c.program.reset()
	}
	if patch.ApplicantType != nil {
		r.ApplicantType = *patch.ApplicantType
	}
	if patch.AgentID != nil {
		r.AgentID = *patch.AgentID
	}
	if patch.AmbassadorID != nil {
		r.AmbassadorID = *patch.AmbassadorID
	}
	if patch.PersonalInfo != nil {
		r.PersonalInfo = *patch.PersonalInfo
	}
	if patch.EmergencyContact != nil {
		r.EmergencyContact = *patch.EmergencyContact
	}
	if patch.EducationEntries != nil && len(*patch.EducationEntries) > 0 {
		r.EducationEntries = append([]models.EducationEntry(nil), *patch.EducationEntries...)
	}
	if patch.ClearEducationSponsor {
		r.EducationSponsor = nil
	} else if patch.EducationSponsor != nil {
		sponsor := *patch.EducationSponsor
		r.EducationSponsor = &sponsor
	}
	if patch.LanguageProficiency != nil {
		r.LanguageProficiency = *patch.LanguageProficiency
	}
	if patch.WorkExperiences != nil {
		r.WorkExperiences = make([]models.WorkExperience, 0, len(*patch.WorkExperiences))
		for _, w := range *patch.WorkExperiences {
			r.WorkExperiences = append(r.WorkExperiences, normalizeWork(w))
		}
	}
	if patch.HasExperience != nil {
		if patch.WorkExperiences == nil {
			c.setHasExperience(*patch.HasExperience)
		} else {
			r.HasExperience = *patch.HasExperience
			if !r.HasExperience {
				r.WorkExperiences = []models.WorkExperience{}
			}
		}
	}
	if patch.VisaRejection != nil {
		visa := *patch.VisaRejection
		visa.Countries = c.normalizeCountries(visa.Countries)
		r.VisaRejection = visa
	}
	if patch.PaymentMethod != nil {
		r.PaymentMethod = *patch.PaymentMethod
	}

	c.refreshRequirements(false)
	return nil
}

// Advance validates the active step and moves forward on success.
func (c *Controller) Advance(ctx context.Context) (AdvanceResult, error) {
	if c.closed {
		return AdvanceResult{}, ErrClosed
	}
	from := c.step
	if from == models.LastStep {
		return AdvanceResult{From: from, To: from}, ErrTerminalStep
	}
	if from == models.StepProgramConfirmation && !c.program.resolved() {
		return AdvanceResult{From: from, To: from}, ErrProgramNotResolved
	}

	c.record.Flags.AttemptingNextStep = true
	defer func() { c.record.Flags.AttemptingNextStep = false }()

	res := c.coordinator.Validate(ctx, from, &c.record, c.session)
	c.record.Flags.ValidationErrors = res.Errors.Map()
	switch from {
	case models.StepPersonalInfo:
		c.record.Flags.IsPersonalInfoValid = res.Passed()
	case models.StepDocuments:
		c.record.Flags.DocumentsValid = res.Passed()
	}

	if !res.Passed() {
		c.recorder.ValidationFailed(from, res.Strategy, len(res.Errors))
		c.logger.Info("advance rejected", map[string]interface{}{
			"step":          from.String(),
			"strategy":      res.Strategy,
			"firstErrorKey": res.FirstErrorKey,
		})
		return AdvanceResult{From: from, To: from, Validation: res}, nil
	}

	to := c.moveTo(from + 1)
	return AdvanceResult{From: from, To: to, Moved: true, Validation: res}, nil
}

// Retreat moves one step back. It never fails; at the first step it stays.
func (c *Controller) Retreat() models.Step {
	if c.step == models.FirstStep {
		return c.step
	}
	if c.step == models.StepProgramConfirmation {
		c.program.invalidate()
	}
	return c.moveTo(c.step - 1)
}

func (c *Controller) moveTo(next models.Step) models.Step {
	next = next.Clamp()
	from := c.step
	c.step = next
	c.history = append(c.history, models.Transition{From: from, To: next, At: c.cfg.Now()})
	if next == models.StepDocuments {
		c.refreshRequirements(true)
	}
	c.recorder.StepTransition(from, next)
	c.logger.Info("step changed", map[string]interface{}{
		"from": from.String(),
		"to":   next.String(),
	})
	return next
}

// refreshRequirements recomputes the slot list when its inputs changed, or
// always when force is set. A recomputation that leaves a required slot
// empty clears DocumentsValid.
func (c *Controller) refreshRequirements(force bool) {
	in := requirements.InputsOf(&c.record)
	if !force && in.Equal(c.reqInputs) {
		return
	}
	c.reqInputs = in
	c.requirements = requirements.ResolveInputs(in)
	if len(c.requirements.Missing(c.record.Documents)) > 0 {
		c.record.Flags.DocumentsValid = false
	}
	c.logger.Debug("document requirements resolved", map[string]interface{}{
		"required": c.requirements.Required(),
	})
}

// ==========================
// Documents
// ==========================

// UploadDocuments attaches files to a slot of the current requirements.
func (c *Controller) UploadDocuments(slot string, files []models.File) (attachments.UploadResult, error) {
	if c.closed {
		return attachments.UploadResult{}, ErrClosed
	}
	s, ok := c.requirements.Slot(slot)
	if !ok {
		return attachments.UploadResult{}, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	result, err := c.store.Upload(c.record.Documents, s, files)
	if err != nil {
		return result, err
	}
	c.recorder.AttachmentsUploaded(slot, len(result.Accepted), len(result.Rejected))
	return result, nil
}

// RemoveDocument deletes one attachment. Removing from a required slot
// invalidates DocumentsValid until the next documents validation.
func (c *Controller) RemoveDocument(slot, attachmentID string) error {
	if c.closed {
		return ErrClosed
	}
	if _, err := c.store.Remove(c.record.Documents, slot, attachmentID); err != nil {
		return err
	}
	if c.requirements.IsRequired(slot) {
		c.record.Flags.DocumentsValid = false
	}
	return nil
}

// ==========================
// Terminal step
// ==========================

// Finish submits the record once from the confirmation step. On failure the
// record is left as it was and the call may be repeated.
func (c *Controller) Finish(ctx context.Context, submitter Submitter) (models.SubmissionReceipt, error) {
	if c.closed {
		return models.SubmissionReceipt{}, ErrClosed
	}
	if c.step != models.StepConfirmation {
		return models.SubmissionReceipt{}, ErrNotAtConfirmation
	}
	if c.receipt != nil {
		return *c.receipt, ErrAlreadySubmitted
	}

	start := c.cfg.Now()
	receipt, err := submitter.Submit(ctx, c.record.Clone())
	elapsed := c.cfg.Now().Sub(start)
	if err != nil {
		c.lastSubmit = err
		c.recorder.SubmissionFinished(false, elapsed)
		c.logger.Error("submission failed", map[string]interface{}{"error": err})
		return models.SubmissionReceipt{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = c.cfg.Now()
	}
	c.receipt = &receipt
	c.lastSubmit = nil
	c.recorder.SubmissionFinished(true, elapsed)
	c.logger.Info("application submitted", map[string]interface{}{
		"leadId":             receipt.LeadID,
		"processInstanceKey": receipt.ProcessInstanceKey,
	})
	return receipt, nil
}

// Close tears the wizard down and ends its validation session.
func (c *Controller) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.program.invalidate()
	c.logger.Info("wizard closed", map[string]interface{}{"step": c.step.String()})
	if c.session == nil {
		return nil
	}
	return c.session.End(ctx)
}

// ==========================
// View
// ==========================

type SlotView struct {
	models.DocumentSlot
	Attachments []models.Attachment `json:"attachments"`
	// Orphan marks a slot that holds attachments but is no longer produced by
	// the requirements; it is shown as optional.
	Orphan bool `json:"orphan,omitempty"`
}

// StepView is the render-facing state of the wizard.
type StepView struct {
	SessionID         string                    `json:"sessionId"`
	Step              models.Step               `json:"step"`
	StepName          string                    `json:"stepName"`
	CanRetreat        bool                      `json:"canRetreat"`
	IsTerminal        bool                      `json:"isTerminal"`
	Record            models.ApplicationRecord  `json:"record"`
	Program           *models.Program           `json:"program,omitempty"`
	ProgramStatus     FetchStatus               `json:"programStatus"`
	ProgramError      string                    `json:"programError,omitempty"`
	Documents         []SlotView                `json:"documents"`
	ValidationErrors  map[string]string         `json:"validationErrors,omitempty"`
	PersonalInfoValid bool                      `json:"personalInfoValid"`
	DocumentsValid    bool                      `json:"documentsValid"`
	Submitted         bool                      `json:"submitted"`
	Receipt           *models.SubmissionReceipt `json:"receipt,omitempty"`
	SubmissionError   string                    `json:"submissionError,omitempty"`
	Closed            bool                      `json:"closed"`
}

func (c *Controller) View() StepView {
	rec := c.record.Clone()
	v := StepView{
		Step:              c.step,
		StepName:          c.step.String(),
		CanRetreat:        c.step > models.FirstStep,
		IsTerminal:        c.step == models.LastStep,
		Record:            rec,
		Program:           c.program.program,
		ProgramStatus:     c.program.status,
		Documents:         c.slotViews(),
		ValidationErrors:  rec.Flags.ValidationErrors,
		PersonalInfoValid: c.record.Flags.IsPersonalInfoValid,
		DocumentsValid:    c.record.Flags.DocumentsValid,
		Submitted:         c.receipt != nil,
		Receipt:           c.receipt,
		Closed:            c.closed,
	}
	if c.session != nil {
		v.SessionID = c.session.ID()
	}
	if c.program.err != nil {
		v.ProgramError = c.program.err.Error()
	}
	if c.lastSubmit != nil {
		v.SubmissionError = c.lastSubmit.Error()
	}
	return v
}

func (c *Controller) slotViews() []SlotView {
	views := make([]SlotView, 0, len(c.requirements.Slots))
	known := make(map[string]bool, len(c.requirements.Slots))
	for _, s := range c.requirements.Slots {
		known[s.Name] = true
		views = append(views, SlotView{
			DocumentSlot: s,
			Attachments:  append([]models.Attachment(nil), c.record.Documents[s.Name]...),
		})
	}
	for _, name := range sortedKeys(c.record.Documents) {
		if known[name] {
			continue
		}
		views = append(views, SlotView{
			DocumentSlot: models.DocumentSlot{Name: name, Title: name, AllowMultiple: true},
			Attachments:  append([]models.Attachment(nil), c.record.Documents[name]...),
			Orphan:       true,
		})
	}
	return views
}

// ValidateDocuments checks the documents step in place and refreshes
// DocumentsValid without moving.
func (c *Controller) ValidateDocuments() validators.Errors {
	errs := validators.Documents(&c.record)
	c.record.Flags.DocumentsValid = len(errs) == 0
	return errs
}
