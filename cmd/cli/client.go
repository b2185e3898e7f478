package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// runView mirrors the run resource served by the service API.
type runView struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	RepoFullName string `json:"repo_full_name"`
	PRNumber     int    `json:"pr_number"`
	HeadSHA      string `json:"head_sha"`
	TriggeredBy  string `json:"triggered_by"`
	Status       string `json:"status"`
	Decision     string `json:"decision"`
	Summary      string `json:"summary"`
	CommentCount int    `json:"comment_count"`
	Error        string `json:"error"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// apiClient is a thin client for the service's run API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient() *apiClient {
	base := viper.GetString("SERVER")
	if base == "" {
		base = serverURL
	}
	return &apiClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) getRun(ctx context.Context, id string) (*runView, error) {
	var run runView
	if err := c.getJSON(ctx, "/api/v1/runs/"+id, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *apiClient) listRuns(ctx context.Context, repo string, number int) ([]runView, error) {
	var body struct {
		Runs []runView `json:"runs"`
	}
	path := fmt.Sprintf("/api/v1/repos/%s/pulls/%d/runs", repo, number)
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}
	return body.Runs, nil
}

func (c *apiClient) retryRun(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/runs/"+id+"/retry", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to review service failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}
	var body struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}
	return body.RunID, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to review service failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("review service returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
}
