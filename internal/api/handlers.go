package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard/attachments"
	"admissions-wizard/internal/wizard/controller"
	"admissions-wizard/internal/wizard/validators"
)

const maxBodyBytes = 1 << 20

type createRequest struct {
	ProgramID string `json:"programId"`
}

type createResponse struct {
	SessionID string              `json:"sessionId"`
	View      controller.StepView `json:"view"`
}

type advanceResponse struct {
	Result controller.AdvanceResult `json:"result"`
	View   controller.StepView      `json:"view"`
}

type indexResponse struct {
	Index int                 `json:"index"`
	View  controller.StepView `json:"view"`
}

type changedResponse struct {
	Changed bool                `json:"changed"`
	View    controller.StepView `json:"view"`
}

type uploadRequest struct {
	Files []models.File `json:"files"`
}

type uploadResponse struct {
	Result attachments.UploadResult `json:"result"`
	View   controller.StepView      `json:"view"`
}

type documentsValidation struct {
	Valid  bool                `json:"valid"`
	Errors validators.Errors   `json:"errors,omitempty"`
	View   controller.StepView `json:"view"`
}

type submitResponse struct {
	Receipt models.SubmissionReceipt `json:"receipt"`
	View    controller.StepView      `json:"view"`
}

// decode reads a JSON body. An empty body leaves dst untouched.
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewInvalidRequestError(err.Error())
	}
	return nil
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

// withView runs fn on the session and answers with the resulting view.
func (s *Server) withView(w http.ResponseWriter, r *http.Request, fn func(*controller.Controller) error) {
	var view controller.StepView
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		if err := fn(c); err != nil {
			return err
		}
		view = c.View()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, view := s.deps.Sessions.Create(strings.TrimSpace(req.ProgramID))
	writeJSON(w, http.StatusCreated, createResponse{SessionID: id, View: view})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(*controller.Controller) error { return nil })
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var patch models.RecordPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withView(w, r, func(c *controller.Controller) error { return c.Update(patch) })
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Close(r.Context(), sessionID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var resp advanceResponse
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		res, err := c.Advance(r.Context())
		if err != nil {
			return err
		}
		resp = advanceResponse{Result: res, View: c.View()}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !resp.Result.Moved {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(c *controller.Controller) error {
		if c.Closed() {
			return controller.ErrClosed
		}
		c.Retreat()
		return nil
	})
}

// handleLoadProgram fetches the program for the session. A failed fetch is
// kept on the step and also reported as the response error.
func (s *Server) handleLoadProgram(w http.ResponseWriter, r *http.Request) {
	if s.deps.Programs == nil {
		s.writeError(w, r, apperrors.NewInternalError(errors.New("program catalog is not configured")))
		return
	}
	if err := s.deps.Sessions.LoadProgram(r.Context(), sessionID(r), s.deps.Programs); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleView(w, r)
}

// ==========================
// Education
// ==========================

func (s *Server) handleAddEducation(w http.ResponseWriter, r *http.Request) {
	var entry models.EducationEntry
	if err := decode(r, &entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	var resp indexResponse
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		i, err := c.AddEducationEntry(entry)
		if err != nil {
			return err
		}
		resp = indexResponse{Index: i, View: c.View()}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateEducation(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(r)
	if !ok {
		s.writeError(w, r, apperrors.NewInvalidRequestError("index must be an integer"))
		return
	}
	var entry models.EducationEntry
	if err := decode(r, &entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withView(w, r, func(c *controller.Controller) error { return c.UpdateEducationEntry(index, entry) })
}

func (s *Server) handleRemoveEducation(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(r)
	if !ok {
		s.writeError(w, r, apperrors.NewInvalidRequestError("index must be an integer"))
		return
	}
	s.withView(w, r, func(c *controller.Controller) error { return c.RemoveEducationEntry(index) })
}

// ==========================
// Work experience
// ==========================

type experienceRequest struct {
	HasExperience bool `json:"hasExperience"`
}

func (s *Server) handleSetExperience(w http.ResponseWriter, r *http.Request) {
	var req experienceRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withView(w, r, func(c *controller.Controller) error { return c.SetHasExperience(req.HasExperience) })
}

func (s *Server) handleAddWork(w http.ResponseWriter, r *http.Request) {
	var exp models.WorkExperience
	if err := decode(r, &exp); err != nil {
		s.writeError(w, r, err)
		return
	}
	var resp indexResponse
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		i, err := c.AddWorkExperience(exp)
		if err != nil {
			return err
		}
		resp = indexResponse{Index: i, View: c.View()}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateWork(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(r)
	if !ok {
		s.writeError(w, r, apperrors.NewInvalidRequestError("index must be an integer"))
		return
	}
	var exp models.WorkExperience
	if err := decode(r, &exp); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withView(w, r, func(c *controller.Controller) error { return c.UpdateWorkExperience(index, exp) })
}

func (s *Server) handleRemoveWork(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(r)
	if !ok {
		s.writeError(w, r, apperrors.NewInvalidRequestError("index must be an integer"))
		return
	}
	s.withView(w, r, func(c *controller.Controller) error { return c.RemoveWorkExperience(index) })
}

// ==========================
// Visa rejection
// ==========================

type visaRequest struct {
	HasRejection bool `json:"hasRejection"`
}

type countryRequest struct {
	Country string `json:"country"`
}

func (s *Server) handleSetVisaRejection(w http.ResponseWriter, r *http.Request) {
	var req visaRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withView(w, r, func(c *controller.Controller) error { return c.SetHasVisaRejection(req.HasRejection) })
}

func (s *Server) handleAddCountry(w http.ResponseWriter, r *http.Request) {
	var req countryRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.changed(w, r, func(c *controller.Controller) (bool, error) { return c.AddRejectedCountry(req.Country) })
}

func (s *Server) handleRemoveCountry(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	s.changed(w, r, func(c *controller.Controller) (bool, error) { return c.RemoveRejectedCountry(country) })
}

func (s *Server) changed(w http.ResponseWriter, r *http.Request, fn func(*controller.Controller) (bool, error)) {
	var resp changedResponse
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		changed, err := fn(c)
		if err != nil {
			return err
		}
		resp = changedResponse{Changed: changed, View: c.View()}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ==========================
// Documents
// ==========================

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	slot := chi.URLParam(r, "slot")

	var resp uploadResponse
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		result, err := c.UploadDocuments(slot, req.Files)
		if err != nil {
			return err
		}
		resp = uploadResponse{Result: result, View: c.View()}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	id := chi.URLParam(r, "attachmentID")
	s.withView(w, r, func(c *controller.Controller) error { return c.RemoveDocument(slot, id) })
}

func (s *Server) handleValidateDocuments(w http.ResponseWriter, r *http.Request) {
	var resp documentsValidation
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		if c.Closed() {
			return controller.ErrClosed
		}
		errs := c.ValidateDocuments()
		resp = documentsValidation{Valid: len(errs) == 0, Errors: errs, View: c.View()}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ==========================
// Submission
// ==========================

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Submitter == nil {
		s.writeError(w, r, apperrors.NewInternalError(errors.New("submission backend is not configured")))
		return
	}
	var resp submitResponse
	err := s.deps.Sessions.Do(sessionID(r), func(c *controller.Controller) error {
		receipt, err := c.Finish(r.Context(), s.deps.Submitter)
		if err != nil {
			return err
		}
		resp = submitResponse{Receipt: receipt, View: c.View()}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
