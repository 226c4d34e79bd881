package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"admissions-wizard/internal/catalog"
	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/wizard/attachments"
	"admissions-wizard/internal/wizard/controller"
)

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   string            `json:"details,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

var sentinelStatus = []struct {
	err    error
	status int
	code   apperrors.ErrorCode
}{
	{controller.ErrTerminalStep, http.StatusConflict, apperrors.ErrCodeInvalidStepTransition},
	{controller.ErrProgramNotResolved, http.StatusConflict, apperrors.ErrCodeInvalidStepTransition},
	{controller.ErrNotAtConfirmation, http.StatusConflict, apperrors.ErrCodeInvalidStepTransition},
	{controller.ErrAlreadySubmitted, http.StatusConflict, apperrors.ErrCodeInvalidStepTransition},
	{controller.ErrClosed, http.StatusGone, apperrors.ErrCodeSessionNotFound},
	{controller.ErrIndexOutOfRange, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest},
	{controller.ErrUnknownSlot, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest},
	{controller.ErrBlankCountry, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest},
	{attachments.ErrSlotNameRequired, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest},
	{attachments.ErrAttachmentNotFound, http.StatusNotFound, apperrors.ErrCodeInvalidRequest},
	{catalog.ErrInvalidProgramID, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest},
	{catalog.ErrProgramNotFound, http.StatusNotFound, apperrors.ErrCodeProgramNotFound},
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeSessionNotFound, apperrors.ErrCodeProgramNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeInvalidStepTransition, apperrors.ErrCodeDuplicateApplication:
		return http.StatusConflict
	case apperrors.ErrCodeApplicationValidationFailed:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeProgramFetchFailed, apperrors.ErrCodeSearchQueryFailed,
		apperrors.ErrCodeCRMAPIError, apperrors.ErrCodeProcessStartFailed,
		apperrors.ErrCodeSubmissionFailed:
		return http.StatusBadGateway
	case apperrors.ErrCodeQueryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// toResponse maps err onto an HTTP status and body. Controller sentinels win
// over any standard error they wrap, except for submission failures, which
// report the cause.
func toResponse(err error) (int, errorBody) {
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status, errorBody{Code: string(s.code), Message: err.Error()}
		}
	}

	if stdErr, ok := apperrors.AsStandardError(err); ok {
		body := errorBody{
			Code:      string(stdErr.Code),
			Message:   stdErr.Message,
			Details:   stdErr.Details,
			Retryable: stdErr.Retryable,
		}
		if fields, ok := stdErr.Metadata["fields"].(map[string]string); ok {
			body.Fields = fields
		}
		return statusForCode(stdErr.Code), body
	}

	if errors.Is(err, controller.ErrSubmissionFailed) {
		return http.StatusBadGateway, errorBody{
			Code:      string(apperrors.ErrCodeSubmissionFailed),
			Message:   err.Error(),
			Retryable: true,
		}
	}

	return http.StatusInternalServerError, errorBody{
		Code:    string(apperrors.ErrCodeInternal),
		Message: "internal error",
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := toResponse(err)
	fields := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"code":   body.Code,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Debug("request rejected", fields)
	}
	writeJSON(w, status, errorResponse{Error: body})
}
