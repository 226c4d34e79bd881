// internal/models/step.go
package models

import "time"

// Step is a wizard position, 1..6. Moves are strictly +1/-1.
type Step int

const (
	StepWelcome Step = iota + 1
	StepProgramConfirmation
	StepPersonalInfo
	StepDocuments
	StepPayment
	StepConfirmation
)

const (
	FirstStep = StepWelcome
	LastStep  = StepConfirmation
)

var stepNames = map[Step]string{
	StepWelcome:             "Welcome",
	StepProgramConfirmation: "ProgramConfirmation",
	StepPersonalInfo:        "PersonalInfo",
	StepDocuments:           "Documents",
	StepPayment:             "Payment",
	StepConfirmation:        "Confirmation",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s Step) IsValid() bool {
	return s >= FirstStep && s <= LastStep
}

// Clamp keeps s inside [FirstStep, LastStep].
func (s Step) Clamp() Step {
	if s < FirstStep {
		return FirstStep
	}
	if s > LastStep {
		return LastStep
	}
	return s
}

// Transition is one recorded step move.
type Transition struct {
	From Step      `json:"from"`
	To   Step      `json:"to"`
	At   time.Time `json:"at"`
}

// SubmissionReceipt is what the submission collaborator hands back on success.
type SubmissionReceipt struct {
	LeadID             string    `json:"leadId,omitempty"`
	ProcessInstanceKey int64     `json:"processInstanceKey,omitempty"`
	SubmittedAt        time.Time `json:"submittedAt"`
}
