package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/internal/campaign"
	"github.com/jwebster45206/drifter/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// APIError is a non-success reply from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Message)
}

type listResponse struct {
	Campaigns []uuid.UUID `json:"campaigns"`
}

// APIClient is a thin caller of the campaign API.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (a *APIClient) Health(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, nil)
}

func (a *APIClient) Start(ctx context.Context, req campaign.StartRequest) (*campaign.Result, error) {
	var result campaign.Result
	if err := a.do(ctx, http.MethodPost, "/v1/campaigns", req, http.StatusCreated, &result); err != nil {
		return nil, fmt.Errorf("failed to start campaign: %w", err)
	}
	return &result, nil
}

func (a *APIClient) List(ctx context.Context) ([]uuid.UUID, error) {
	var resp listResponse
	if err := a.do(ctx, http.MethodGet, "/v1/campaigns", nil, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return resp.Campaigns, nil
}

func (a *APIClient) Get(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := a.do(ctx, http.MethodGet, "/v1/campaigns/"+id.String(), nil, http.StatusOK, &gs); err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return &gs, nil
}

func (a *APIClient) Advance(ctx context.Context, id uuid.UUID) (*campaign.Result, error) {
	var result campaign.Result
	if err := a.do(ctx, http.MethodPost, "/v1/campaigns/"+id.String()+"/advance", nil, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("failed to advance: %w", err)
	}
	return &result, nil
}

func (a *APIClient) Save(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := a.do(ctx, http.MethodPost, "/v1/campaigns/"+id.String()+"/save", nil, http.StatusOK, &gs); err != nil {
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	return &gs, nil
}

func (a *APIClient) MarkIntroSeen(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := a.do(ctx, http.MethodPost, "/v1/campaigns/"+id.String()+"/intro", nil, http.StatusOK, &gs); err != nil {
		return nil, fmt.Errorf("failed to mark intro: %w", err)
	}
	return &gs, nil
}

func (a *APIClient) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(respBody)}
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			apiErr.Message = errorResp.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
