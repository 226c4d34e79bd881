package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{
			name:        "retryable insert failure",
			err:         NewDatabaseInsertFailedError(fmt.Errorf("deadlock")),
			wantCode:    "DATABASE_INSERT_FAILED",
			wantRetries: 3,
		},
		{
			name:        "business error never retries",
			err:         NewDuplicateApplicationError("lead-1"),
			wantCode:    "DUPLICATE_APPLICATION",
			wantRetries: 0,
		},
		{
			name:        "unmapped code falls back to itself",
			err:         NewProgramNotFoundError("p-1"),
			wantCode:    "PROGRAM_NOT_FOUND",
			wantRetries: 0,
		},
		{
			name:        "crm client error is not retryable",
			err:         NewCRMAPIError(400, "bad field"),
			wantCode:    "CRM_API_ERROR",
			wantRetries: 0,
		},
		{
			name:        "crm server error is retryable",
			err:         NewCRMAPIError(503, "unavailable"),
			wantCode:    "CRM_API_ERROR",
			wantRetries: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)

			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, tt.err.Retryable, vars["retryable"])
		})
	}
}

func TestNormalize(t *testing.T) {
	std := NewNotificationSendFailedError("email", fmt.Errorf("throttled"))
	wrapped := fmt.Errorf("send confirmation: %w", std)

	got := Normalize(wrapped)
	assert.Same(t, std, got)

	plain := Normalize(fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CATALOG", GetErrorCategory(ErrCodeProgramFetchFailed))
	assert.Equal(t, "WIZARD", GetErrorCategory(ErrCodeSessionNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDuplicateApplication))
	assert.Equal(t, "SUBMISSION", GetErrorCategory(ErrCodeCRMAPIError))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeApplicationValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestStandardError_Metadata(t *testing.T) {
	err := NewCRMAPIError(429, "slow down")

	require.NotNil(t, err.Metadata)
	assert.Equal(t, 429, err.Metadata["statusCode"])
	assert.True(t, err.Retryable)
	assert.True(t, IsRetryableErrorCode(err.Code))
	assert.Contains(t, err.Error(), "CRM_API_ERROR")
}
