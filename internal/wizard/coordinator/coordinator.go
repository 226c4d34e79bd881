// internal/wizard/coordinator/coordinator.go
package coordinator

import (
	"context"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/validators"
)

// Result is the outcome of validating one step.
type Result struct {
	Step          models.Step       `json:"step"`
	Strategy      string            `json:"strategy"`
	Errors        validators.Errors `json:"errors,omitempty"`
	FirstErrorKey string            `json:"firstErrorKey,omitempty"`
}

func (r Result) Passed() bool { return len(r.Errors) == 0 }

// Coordinator picks the validators for a step and applies the full/critical
// retry policy on the personal info step.
type Coordinator struct {
	full     validators.Validator
	critical validators.Validator
	steps    map[models.Step]validators.Validator
	logger   logger.Logger
}

func New(log logger.Logger) *Coordinator {
	return NewWithStrategies(validators.FullValidator{}, validators.CriticalValidator{}, log)
}

// NewWithStrategies builds a coordinator with custom personal-step strategies.
func NewWithStrategies(full, critical validators.Validator, log logger.Logger) *Coordinator {
	return &Coordinator{
		full:     full,
		critical: critical,
		steps: map[models.Step]validators.Validator{
			models.StepWelcome:   validators.NewSectionSet("identity", validators.Identity),
			models.StepDocuments: validators.NewSectionSet("documents", validators.Documents),
			models.StepPayment:   validators.NewSectionSet("payment", validators.Payment),
		},
		logger: log.WithFields(map[string]interface{}{"component": "coordinator"}),
	}
}

// Validate runs the validators for step against rec. Steps without validators
// pass. On the personal info step the first attempt of a session uses the full
// strategy; once that fails, every later attempt uses the critical one.
func (c *Coordinator) Validate(ctx context.Context, step models.Step, rec *models.ApplicationRecord, session *Session) Result {
	if step == models.StepPersonalInfo {
		return c.validatePersonal(ctx, rec, session)
	}

	v, ok := c.steps[step]
	if !ok {
		return Result{Step: step, Strategy: "none"}
	}
	return c.result(step, v, rec)
}

func (c *Coordinator) validatePersonal(ctx context.Context, rec *models.ApplicationRecord, session *Session) Result {
	strategy := c.full
	attempted := session != nil && session.FullPassAttempted(ctx)
	if attempted {
		strategy = c.critical
	}

	res := c.result(models.StepPersonalInfo, strategy, rec)
	if !res.Passed() && !attempted && session != nil {
		session.MarkFullPassAttempted(ctx)
	}
	return res
}

func (c *Coordinator) result(step models.Step, v validators.Validator, rec *models.ApplicationRecord) Result {
	errs := v.Validate(rec)
	res := Result{
		Step:          step,
		Strategy:      v.Name(),
		Errors:        errs,
		FirstErrorKey: errs.FirstKey(),
	}
	if !res.Passed() {
		c.logger.Info("step validation failed", map[string]interface{}{
			"step":          step.String(),
			"strategy":      res.Strategy,
			"errorCount":    len(errs),
			"firstErrorKey": res.FirstErrorKey,
		})
	}
	return res
}
