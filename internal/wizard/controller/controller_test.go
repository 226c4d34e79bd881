// internal/wizard/controller/controller_test.go
package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/attachments"
	"admissions-wizard/internal/wizard/coordinator"
	"admissions-wizard/internal/wizard/requirements"
	"admissions-wizard/internal/wizard/validators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	ctrl  *Controller
	store *coordinator.MemoryFlagStore
	sess  *coordinator.Session
}

func newFixture(t *testing.T, cfg Config) fixture {
	log := logger.NewTestLogger(t)
	store := coordinator.NewMemoryFlagStore()
	sess := coordinator.NewSession("sess-1", store, log)
	if cfg.ProgramID == "" {
		cfg.ProgramID = "prog-1"
	}
	cfg.Now = func() time.Time { return fixedNow }
	ctrl := New(cfg, Deps{
		Coordinator: coordinator.New(log),
		Session:     sess,
		Attachments: attachments.NewStore(attachments.NewCounterGenerator("att"), 1<<20, log),
	}, log)
	return fixture{ctrl: ctrl, store: store, sess: sess}
}

type stubFetcher struct {
	program *models.Program
	err     error
	calls   int
}

func (s *stubFetcher) FetchProgramByID(_ context.Context, id string) (*models.Program, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p := *s.program
	p.ID = id
	return &p, nil
}

func sampleProgram() *models.Program {
	return &models.Program{
		Name:       "BSc Computer Science",
		Attributes: map[string][]string{models.AttrLevel: {"Bachelor"}, models.AttrCountry: {"Canada"}},
		MetaData:   map[string]string{models.MetaApplicationFee: "100"},
	}
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, record models.ApplicationRecord) (models.SubmissionReceipt, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(models.SubmissionReceipt), args.Error(1)
}

func personalPatch(grade string) models.RecordPatch {
	return models.RecordPatch{
		PersonalInfo: &models.PersonalInfo{
			FirstName: "Ada", LastName: "Lovelace", DateOfBirth: "1995-12-10",
			Email: "ada@example.com", Gender: "female", MaritalStatus: "single",
			CountryOfResidence: "UK", Phone: "+447700900123",
		},
		EmergencyContact: &models.Contact{Name: "Byron", Phone: "+447700900456", Email: "byron@example.com"},
		EducationEntries: &[]models.EducationEntry{{
			Level: "High School", Country: "UK", Institution: "Somerville",
			FieldOfStudy: "Mathematics", Grade: grade, GraduationDate: "2013-06-30",
		}},
		LanguageProficiency: &models.LanguageProficiency{Exam: models.ExamNone},
	}
}

func pdf(name string) models.File {
	return models.File{Name: name, Size: 1024, ContentType: "application/pdf"}
}

// toStep drives f.ctrl forward to target with valid data.
func toStep(t *testing.T, f fixture, target models.Step) {
	ctx := context.Background()
	for f.ctrl.CurrentStep() < target {
		switch f.ctrl.CurrentStep() {
		case models.StepWelcome:
			require.NoError(t, f.ctrl.Update(models.RecordPatch{ApplicantType: ptr(models.ApplicantStudent)}))
		case models.StepProgramConfirmation:
			require.NoError(t, f.ctrl.LoadProgram(ctx, &stubFetcher{program: sampleProgram()}))
		case models.StepPersonalInfo:
			require.NoError(t, f.ctrl.Update(personalPatch("A")))
		case models.StepDocuments:
			for _, slot := range f.ctrl.Requirements().Required() {
				_, err := f.ctrl.UploadDocuments(slot, []models.File{pdf(slot + ".pdf")})
				require.NoError(t, err)
			}
		case models.StepPayment:
			require.NoError(t, f.ctrl.Update(models.RecordPatch{PaymentMethod: ptr(models.PaymentCreditCard)}))
		}
		res, err := f.ctrl.Advance(ctx)
		require.NoError(t, err)
		require.True(t, res.Moved, "stuck at %s: %v", res.From, res.Validation.Errors)
	}
}

// ==========================
// Step machine
// ==========================

func TestNew_InitialState(t *testing.T) {
	f := newFixture(t, Config{})

	assert.Equal(t, models.StepWelcome, f.ctrl.CurrentStep())
	rec := f.ctrl.Record()
	assert.Len(t, rec.EducationEntries, 1)
	assert.NotNil(t, rec.Documents)
	assert.Equal(t, "prog-1", rec.ProgramID)
}

func TestAdvance_AgentWithoutIDStaysOnWelcome(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.Update(models.RecordPatch{ApplicantType: ptr(models.ApplicantAgent)}))

	res, err := f.ctrl.Advance(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Equal(t, models.StepWelcome, f.ctrl.CurrentStep())
	assert.Equal(t, "agentId", res.Validation.FirstErrorKey)
	assert.Contains(t, f.ctrl.View().ValidationErrors, "agentId")
	assert.Empty(t, f.ctrl.History())
}

func TestAdvance_FullWalkthrough(t *testing.T) {
	f := newFixture(t, Config{})

	toStep(t, f, models.StepConfirmation)

	assert.Equal(t, models.StepConfirmation, f.ctrl.CurrentStep())
	history := f.ctrl.History()
	require.Len(t, history, 5)
	for i, tr := range history {
		assert.Equal(t, models.Step(i+1), tr.From)
		assert.Equal(t, models.Step(i+2), tr.To)
		assert.Equal(t, fixedNow, tr.At)
	}
	view := f.ctrl.View()
	assert.True(t, view.IsTerminal)
	assert.True(t, view.PersonalInfoValid)
	assert.True(t, view.DocumentsValid)
	assert.Empty(t, view.ValidationErrors)
}

func TestAdvance_TerminalStep(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepConfirmation)

	_, err := f.ctrl.Advance(context.Background())

	assert.ErrorIs(t, err, ErrTerminalStep)
	assert.Equal(t, models.StepConfirmation, f.ctrl.CurrentStep())
}

func TestRetreat(t *testing.T) {
	f := newFixture(t, Config{})

	assert.Equal(t, models.StepWelcome, f.ctrl.Retreat())
	assert.Empty(t, f.ctrl.History())

	toStep(t, f, models.StepPersonalInfo)
	assert.Equal(t, models.StepProgramConfirmation, f.ctrl.Retreat())
	assert.Equal(t, models.StepWelcome, f.ctrl.Retreat())
	assert.Equal(t, models.StepWelcome, f.ctrl.Retreat())

	history := f.ctrl.History()
	last := history[len(history)-1]
	assert.Equal(t, models.StepProgramConfirmation, last.From)
	assert.Equal(t, models.StepWelcome, last.To)
}

func TestAdvance_TwoPhasePersonalInfo(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepPersonalInfo)
	require.NoError(t, f.ctrl.Update(personalPatch("")))

	first, err := f.ctrl.Advance(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Moved)
	assert.Equal(t, validators.StrategyFull, first.Validation.Strategy)
	assert.Equal(t, "educationEntries_0_grade", first.Validation.FirstErrorKey)
	assert.False(t, f.ctrl.View().PersonalInfoValid)

	second, err := f.ctrl.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Moved)
	assert.Equal(t, validators.StrategyCritical, second.Validation.Strategy)
	assert.Equal(t, models.StepDocuments, f.ctrl.CurrentStep())
}

// ==========================
// Program fetch
// ==========================

func TestProgramStep_RequiresResolvedFetch(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepProgramConfirmation)

	_, err := f.ctrl.Advance(context.Background())
	assert.ErrorIs(t, err, ErrProgramNotResolved)

	token, id, needed := f.ctrl.StartProgramFetch()
	require.True(t, needed)
	assert.Equal(t, "prog-1", id)
	_, err = f.ctrl.Advance(context.Background())
	assert.ErrorIs(t, err, ErrProgramNotResolved, "still loading")

	require.True(t, f.ctrl.ResolveProgramFetch(token, nil, errors.New("catalog down")))
	res, err := f.ctrl.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Moved, "a failed fetch still resolves the step")
}

func TestProgramStep_FailedFetchCanBeRetried(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepProgramConfirmation)
	fetcher := &stubFetcher{err: errors.New("timeout")}

	err := f.ctrl.LoadProgram(context.Background(), fetcher)
	require.Error(t, err)
	_, status, fetchErr := f.ctrl.Program()
	assert.Equal(t, FetchFailed, status)
	assert.EqualError(t, fetchErr, "timeout")
	assert.Equal(t, "timeout", f.ctrl.View().ProgramError)

	fetcher.err = nil
	fetcher.program = sampleProgram()
	require.NoError(t, f.ctrl.LoadProgram(context.Background(), fetcher))

	program, status, _ := f.ctrl.Program()
	assert.Equal(t, FetchLoaded, status)
	assert.Equal(t, "BSc Computer Science", program.Name)
	assert.Equal(t, 2, fetcher.calls)
}

func TestProgramStep_ReentryReusesProgram(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepProgramConfirmation)
	fetcher := &stubFetcher{program: sampleProgram()}

	require.NoError(t, f.ctrl.LoadProgram(context.Background(), fetcher))
	f.ctrl.Retreat()
	_, err := f.ctrl.Advance(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.ctrl.LoadProgram(context.Background(), fetcher))

	assert.Equal(t, 1, fetcher.calls)
	_, status, _ := f.ctrl.Program()
	assert.Equal(t, FetchLoaded, status)
}

func TestProgramStep_StaleResponseIgnored(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepProgramConfirmation)

	token, _, _ := f.ctrl.StartProgramFetch()
	f.ctrl.Retreat()

	applied := f.ctrl.ResolveProgramFetch(token, sampleProgram(), nil)

	assert.False(t, applied)
	program, status, _ := f.ctrl.Program()
	assert.Nil(t, program)
	assert.Equal(t, FetchIdle, status)
}

func TestProgramStep_SupersededFetchIgnored(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepProgramConfirmation)

	oldToken, _, _ := f.ctrl.StartProgramFetch()
	require.NoError(t, f.ctrl.Update(models.RecordPatch{ProgramID: ptr("prog-2")}))
	newToken, id, needed := f.ctrl.StartProgramFetch()
	require.True(t, needed)
	assert.Equal(t, "prog-2", id)

	assert.False(t, f.ctrl.ResolveProgramFetch(oldToken, &models.Program{ID: "prog-1"}, nil))
	assert.True(t, f.ctrl.ResolveProgramFetch(newToken, &models.Program{ID: "prog-2"}, nil))
	program, _, _ := f.ctrl.Program()
	assert.Equal(t, "prog-2", program.ID)
}

// ==========================
// Update
// ==========================

func TestUpdate_NestedSectionReplacedWholesale(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.Update(personalPatch("A")))

	require.NoError(t, f.ctrl.Update(models.RecordPatch{
		PersonalInfo: &models.PersonalInfo{FirstName: "Grace"},
	}))

	rec := f.ctrl.Record()
	assert.Equal(t, "Grace", rec.PersonalInfo.FirstName)
	assert.Empty(t, rec.PersonalInfo.LastName, "omitted nested fields are dropped")
	assert.Equal(t, "Byron", rec.EmergencyContact.Name, "other sections untouched")
}

func TestUpdate_EmptyEducationListIgnored(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.Update(personalPatch("A")))

	require.NoError(t, f.ctrl.Update(models.RecordPatch{EducationEntries: &[]models.EducationEntry{}}))

	rec := f.ctrl.Record()
	require.Len(t, rec.EducationEntries, 1)
	assert.Equal(t, "Somerville", rec.Education().Institution)
}

func TestUpdate_Sponsor(t *testing.T) {
	f := newFixture(t, Config{})

	require.NoError(t, f.ctrl.Update(models.RecordPatch{EducationSponsor: &models.Contact{Name: "Jane"}}))
	assert.True(t, f.ctrl.Requirements().IsRequired(requirements.SlotSponsorLetter))

	require.NoError(t, f.ctrl.Update(models.RecordPatch{ClearEducationSponsor: true}))
	assert.Nil(t, f.ctrl.Record().EducationSponsor)
	assert.False(t, f.ctrl.Requirements().IsRequired(requirements.SlotSponsorLetter))
}

func TestUpdate_RecordIsCopied(t *testing.T) {
	f := newFixture(t, Config{})
	entries := []models.EducationEntry{{Level: "High School"}}
	require.NoError(t, f.ctrl.Update(models.RecordPatch{EducationEntries: &entries}))

	entries[0].Level = "mutated"
	rec := f.ctrl.Record()
	rec.EducationEntries[0].Level = "also mutated"

	stored := f.ctrl.Record()
	assert.Equal(t, "High School", stored.Education().Level)
}

// ==========================
// Collections
// ==========================

func TestRemoveEducationEntry_LastEntryIsNoop(t *testing.T) {
	f := newFixture(t, Config{})

	require.NoError(t, f.ctrl.RemoveEducationEntry(0))
	assert.Len(t, f.ctrl.Record().EducationEntries, 1)

	assert.ErrorIs(t, f.ctrl.RemoveEducationEntry(3), ErrIndexOutOfRange)
}

func TestEducationEntries_DriveRequirements(t *testing.T) {
	f := newFixture(t, Config{})

	idx, err := f.ctrl.AddEducationEntry(models.EducationEntry{Level: "Master's"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.True(t, f.ctrl.Requirements().IsRequired("master's transcripts"))
	assert.False(t, f.ctrl.Requirements().IsRequired(requirements.SlotSponsorLetter))

	require.NoError(t, f.ctrl.UpdateEducationEntry(1, models.EducationEntry{Level: "PhD"}))
	_, ok := f.ctrl.Requirements().Slot("master's transcripts")
	assert.False(t, ok)
	assert.True(t, f.ctrl.Requirements().IsRequired("phd transcripts"))

	require.NoError(t, f.ctrl.RemoveEducationEntry(1))
	_, ok = f.ctrl.Requirements().Slot("phd transcripts")
	assert.False(t, ok)
	assert.Len(t, f.ctrl.Record().EducationEntries, 1)
}

func TestSetHasExperience(t *testing.T) {
	f := newFixture(t, Config{})

	require.NoError(t, f.ctrl.SetHasExperience(false))
	assert.Empty(t, f.ctrl.Record().WorkExperiences)

	require.NoError(t, f.ctrl.SetHasExperience(true))
	rec := f.ctrl.Record()
	assert.True(t, rec.HasExperience)
	require.Len(t, rec.WorkExperiences, 1)
	assert.Equal(t, models.WorkExperience{}, rec.WorkExperiences[0])

	_, err := f.ctrl.AddWorkExperience(models.WorkExperience{Company: "Acme"})
	require.NoError(t, err)
	require.NoError(t, f.ctrl.SetHasExperience(true))
	assert.Len(t, f.ctrl.Record().WorkExperiences, 2, "already declared, nothing seeded")

	require.NoError(t, f.ctrl.SetHasExperience(false))
	rec = f.ctrl.Record()
	assert.False(t, rec.HasExperience)
	assert.Empty(t, rec.WorkExperiences)
}

func TestUpdate_HasExperienceSeedsEntry(t *testing.T) {
	f := newFixture(t, Config{})

	require.NoError(t, f.ctrl.Update(models.RecordPatch{HasExperience: ptr(false)}))
	require.NoError(t, f.ctrl.Update(models.RecordPatch{HasExperience: ptr(true)}))

	assert.Len(t, f.ctrl.Record().WorkExperiences, 1)
}

func TestUpdateWorkExperience_CurrentlyEmployedClearsEndDate(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.SetHasExperience(true))

	require.NoError(t, f.ctrl.UpdateWorkExperience(0, models.WorkExperience{
		Company: "Acme", Position: "Engineer", StartDate: "2021-01-01",
		EndDate: "2023-01-01", CurrentlyEmployed: true,
	}))

	rec := f.ctrl.Record()
	assert.Empty(t, rec.WorkExperiences[0].EndDate)
	assert.Empty(t, validators.WorkExperience(&rec))

	assert.ErrorIs(t, f.ctrl.UpdateWorkExperience(5, models.WorkExperience{}), ErrIndexOutOfRange)
	require.NoError(t, f.ctrl.RemoveWorkExperience(0))
	assert.Empty(t, f.ctrl.Record().WorkExperiences)
}

func TestVisaCountries_DedupedByDefault(t *testing.T) {
	f := newFixture(t, Config{})

	added, err := f.ctrl.AddRejectedCountry("Canada")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = f.ctrl.AddRejectedCountry(" canada ")
	require.NoError(t, err)
	assert.False(t, added)
	_, err = f.ctrl.AddRejectedCountry("  ")
	assert.ErrorIs(t, err, ErrBlankCountry)

	rec := f.ctrl.Record()
	assert.True(t, rec.VisaRejection.HasRejection)
	assert.Equal(t, []string{"Canada"}, rec.VisaRejection.Countries)
}

func TestVisaCountries_DuplicatesAllowed(t *testing.T) {
	f := newFixture(t, Config{AllowDuplicateVisaCountries: true})

	_, _ = f.ctrl.AddRejectedCountry("Canada")
	_, _ = f.ctrl.AddRejectedCountry("Canada")
	assert.Equal(t, []string{"Canada", "Canada"}, f.ctrl.Record().VisaRejection.Countries)

	removed, err := f.ctrl.RemoveRejectedCountry("canada")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"Canada"}, f.ctrl.Record().VisaRejection.Countries)
}

func TestSetHasVisaRejection_FalseClears(t *testing.T) {
	f := newFixture(t, Config{})
	_, _ = f.ctrl.AddRejectedCountry("Canada")
	require.NoError(t, f.ctrl.Update(models.RecordPatch{VisaRejection: &models.VisaRejection{
		HasRejection: true, Countries: []string{"Canada", "USA", "usa"}, Details: "2019",
	}}))
	assert.Equal(t, []string{"Canada", "USA"}, f.ctrl.Record().VisaRejection.Countries)

	require.NoError(t, f.ctrl.SetHasVisaRejection(false))

	assert.Equal(t, models.VisaRejection{}, f.ctrl.Record().VisaRejection)
	removed, err := f.ctrl.RemoveRejectedCountry("Canada")
	require.NoError(t, err)
	assert.False(t, removed)
}

// ==========================
// Documents
// ==========================

func TestUploadDocuments(t *testing.T) {
	f := newFixture(t, Config{})

	result, err := f.ctrl.UploadDocuments(requirements.SlotPassport, []models.File{pdf("p.pdf"), {Name: "empty.pdf"}})
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 1)
	assert.Len(t, result.Rejected, 1)
	assert.Equal(t, "att-1", result.Accepted[0].ID)

	_, err = f.ctrl.UploadDocuments("visa-stamp", []models.File{pdf("x.pdf")})
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestUploadDocuments_ZeroByteKeepsCount(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.ctrl.UploadDocuments(requirements.SlotResume, []models.File{pdf("cv.pdf")})
	require.NoError(t, err)

	_, err = f.ctrl.UploadDocuments(requirements.SlotResume, []models.File{{Name: "cv2.pdf", Size: 0}})
	require.NoError(t, err)

	assert.Equal(t, 1, f.ctrl.Record().Documents.Count(requirements.SlotResume))
}

func TestUpdate_LeavesAttachmentsUntouched(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepPayment)
	require.True(t, f.ctrl.View().DocumentsValid)
	before := f.ctrl.Record().Documents

	require.NoError(t, f.ctrl.Update(personalPatch("B")))

	assert.Equal(t, before, f.ctrl.Record().Documents)
	assert.True(t, f.ctrl.View().DocumentsValid)
}

func TestRemoveDocument_RequiredSlotReappearsInErrors(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepPayment)
	require.True(t, f.ctrl.View().DocumentsValid)

	passport := f.ctrl.Record().Documents[requirements.SlotPassport][0]
	require.NoError(t, f.ctrl.RemoveDocument(requirements.SlotPassport, passport.ID))

	assert.False(t, f.ctrl.View().DocumentsValid)
	_, present := f.ctrl.Record().Documents[requirements.SlotPassport]
	assert.False(t, present)

	f.ctrl.Retreat()
	res, err := f.ctrl.Advance(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Contains(t, res.Validation.Errors.Map(), "documents_passport")
}

func TestRemoveDocument_OptionalSlotKeepsValidity(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepPayment)
	result, err := f.ctrl.UploadDocuments(requirements.SlotFinancialDocuments, []models.File{pdf("bank.pdf")})
	require.NoError(t, err)

	require.NoError(t, f.ctrl.RemoveDocument(requirements.SlotFinancialDocuments, result.Accepted[0].ID))

	assert.True(t, f.ctrl.View().DocumentsValid)
	assert.ErrorIs(t, f.ctrl.RemoveDocument(requirements.SlotFinancialDocuments, "nope"), attachments.ErrAttachmentNotFound)
}

func TestSponsorRemoval_DowngradesSlotAndKeepsAttachments(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.Update(models.RecordPatch{EducationSponsor: &models.Contact{Name: "Jane"}}))
	_, err := f.ctrl.UploadDocuments(requirements.SlotSponsorLetter, []models.File{pdf("letter.pdf")})
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Update(models.RecordPatch{ClearEducationSponsor: true}))

	assert.False(t, f.ctrl.Requirements().IsRequired(requirements.SlotSponsorLetter))
	assert.Equal(t, 1, f.ctrl.Record().Documents.Count(requirements.SlotSponsorLetter))
}

func TestView_OrphanSlots(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.ctrl.AddEducationEntry(models.EducationEntry{Level: "Master's"})
	require.NoError(t, err)
	_, err = f.ctrl.UploadDocuments("master's transcripts", []models.File{pdf("ms.pdf")})
	require.NoError(t, err)

	require.NoError(t, f.ctrl.RemoveEducationEntry(1))

	view := f.ctrl.View()
	last := view.Documents[len(view.Documents)-1]
	assert.Equal(t, "master's transcripts", last.Name)
	assert.True(t, last.Orphan)
	assert.False(t, last.Required)
	assert.Len(t, last.Attachments, 1)
}

func TestView_ValidationErrorsAreCopied(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.Update(models.RecordPatch{ApplicantType: ptr(models.ApplicantAgent)}))
	_, err := f.ctrl.Advance(context.Background())
	require.NoError(t, err)

	view := f.ctrl.View()
	require.Contains(t, view.ValidationErrors, "agentId")
	delete(view.ValidationErrors, "agentId")
	view.ValidationErrors["injected"] = "x"

	again := f.ctrl.View()
	assert.Contains(t, again.ValidationErrors, "agentId")
	assert.NotContains(t, again.ValidationErrors, "injected")
}

func TestRequirementsChange_InvalidatesDocuments(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepPayment)
	require.True(t, f.ctrl.View().DocumentsValid)

	require.NoError(t, f.ctrl.Update(models.RecordPatch{LanguageProficiency: &models.LanguageProficiency{Exam: "IELTS"}}))

	assert.False(t, f.ctrl.View().DocumentsValid)
	assert.True(t, f.ctrl.Requirements().IsRequired(requirements.SlotLanguageTestResult))
}

// ==========================
// Finish and Close
// ==========================

func TestFinish_NotAtConfirmation(t *testing.T) {
	f := newFixture(t, Config{})
	sub := &mockSubmitter{}

	_, err := f.ctrl.Finish(context.Background(), sub)

	assert.ErrorIs(t, err, ErrNotAtConfirmation)
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestFinish_FailureKeepsRecord(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepConfirmation)
	before := f.ctrl.Record()
	sub := &mockSubmitter{}
	sub.On("Submit", mock.Anything, mock.Anything).Return(models.SubmissionReceipt{}, errors.New("crm unavailable")).Once()

	_, err := f.ctrl.Finish(context.Background(), sub)

	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, before, f.ctrl.Record())
	assert.Equal(t, models.StepConfirmation, f.ctrl.CurrentStep())
	view := f.ctrl.View()
	assert.False(t, view.Submitted)
	assert.Equal(t, "crm unavailable", view.SubmissionError)
	sub.AssertNumberOfCalls(t, "Submit", 1)
}

func TestFinish_Success(t *testing.T) {
	f := newFixture(t, Config{})
	toStep(t, f, models.StepConfirmation)
	sub := &mockSubmitter{}
	sub.On("Submit", mock.Anything, mock.MatchedBy(func(r models.ApplicationRecord) bool {
		return r.PersonalInfo.FirstName == "Ada" && r.PaymentMethod == models.PaymentCreditCard
	})).Return(models.SubmissionReceipt{LeadID: "lead-1", ProcessInstanceKey: 42}, nil).Once()

	receipt, err := f.ctrl.Finish(context.Background(), sub)

	require.NoError(t, err)
	assert.Equal(t, "lead-1", receipt.LeadID)
	assert.Equal(t, fixedNow, receipt.SubmittedAt)
	assert.True(t, f.ctrl.View().Submitted)

	again, err := f.ctrl.Finish(context.Background(), sub)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, receipt, again)
	sub.AssertExpectations(t)
}

func TestClose_EndsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	toStep(t, f, models.StepPersonalInfo)
	_, err := f.ctrl.Advance(ctx)
	require.NoError(t, err)
	require.True(t, f.sess.FullPassAttempted(ctx))

	require.NoError(t, f.ctrl.Close(ctx))
	require.NoError(t, f.ctrl.Close(ctx))

	set, err := f.store.IsSet(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, set)
	assert.True(t, f.ctrl.View().Closed)

	_, err = f.ctrl.Advance(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.ctrl.Update(models.RecordPatch{}), ErrClosed)
}

// ==========================
// Recorder
// ==========================

type recordingRecorder struct {
	transitions int
	failures    []string
	uploads     int
	submissions []bool
}

func (r *recordingRecorder) StepTransition(models.Step, models.Step) { r.transitions++ }
func (r *recordingRecorder) ValidationFailed(step models.Step, strategy string, _ int) {
	r.failures = append(r.failures, step.String()+"/"+strategy)
}
func (r *recordingRecorder) AttachmentsUploaded(string, int, int) { r.uploads++ }
func (r *recordingRecorder) SubmissionFinished(ok bool, _ time.Duration) {
	r.submissions = append(r.submissions, ok)
}

func TestRecorder_ReceivesEvents(t *testing.T) {
	rec := &recordingRecorder{}
	ctrl := New(Config{ProgramID: "p"}, Deps{Recorder: rec}, logger.NewNoOpLogger())

	_, err := ctrl.Advance(context.Background())
	require.NoError(t, err)
	require.NoError(t, ctrl.Update(models.RecordPatch{ApplicantType: ptr(models.ApplicantStudent)}))
	_, err = ctrl.Advance(context.Background())
	require.NoError(t, err)
	_, err = ctrl.UploadDocuments(requirements.SlotResume, []models.File{pdf("cv.pdf")})
	require.NoError(t, err)

	assert.Equal(t, []string{"Welcome/identity"}, rec.failures)
	assert.Equal(t, 1, rec.transitions)
	assert.Equal(t, 1, rec.uploads)
}
