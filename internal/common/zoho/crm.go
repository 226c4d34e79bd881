// Package zoho is a minimal Zoho CRM REST client for admissions leads.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "admissions-wizard/internal/common/errors"
)

type CRMClient struct {
	oauthToken string
	baseURL    string
	httpClient *http.Client
}

// Lead is an application as the CRM stores it. Description carries the full
// application JSON.
type Lead struct {
	ID            string `json:"id,omitempty"`
	FirstName     string `json:"First_Name"`
	LastName      string `json:"Last_Name"`
	Email         string `json:"Email"`
	Phone         string `json:"Phone,omitempty"`
	Country       string `json:"Country,omitempty"`
	Source        string `json:"Lead_Source,omitempty"`
	ProgramID     string `json:"Program_ID,omitempty"`
	ApplicantType string `json:"Applicant_Type,omitempty"`
	AgentID       string `json:"Agent_ID,omitempty"`
	AmbassadorID  string `json:"Ambassador_ID,omitempty"`
	PaymentMethod string `json:"Payment_Method,omitempty"`
	Description   string `json:"Description,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string, timeout time.Duration) *CRMClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateLead inserts lead and returns the CRM id. Non-2xx responses are
// returned as CRM_API_ERROR standard errors.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	payload := map[string]interface{}{
		"data": []Lead{*lead},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Leads", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", apperrors.NewCRMAPIError(status, string(body))
	}

	var createResp upsertResponse
	if err := json.Unmarshal(body, &createResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(createResp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if createResp.Data[0].Status != "success" {
		return "", apperrors.NewCRMAPIError(status, createResp.Data[0].Code+": "+createResp.Data[0].Message)
	}
	return createResp.Data[0].Details.ID, nil
}

// SearchLeadsByEmail returns leads whose email matches. Zoho answers 204 when
// nothing matches.
func (c *CRMClient) SearchLeadsByEmail(ctx context.Context, email string) ([]Lead, error) {
	u := fmt.Sprintf("%s/Leads/search?email=%s", c.baseURL, url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
	default:
		return nil, apperrors.NewCRMAPIError(status, string(body))
	}

	var result struct {
		Data []Lead `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data, nil
}

func (c *CRMClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)
}

func (c *CRMClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
