package main

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

	"github.com/wricardo/ambulance-fleet/game/intake"
	"github.com/wricardo/ambulance-fleet/game/service"
)

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the dispatch REST API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreateSimulation(ctx context.Context, scenario string, running bool) (*service.SimulationInfo, error) {
	body := map[string]interface{}{}
	if scenario != "" {
		body["scenario_id"] = scenario
	}
	if running {
		body["running"] = true
	}

	var sim service.SimulationInfo
	if err := c.do(ctx, http.MethodPost, "/api/simulations", body, &sim); err != nil {
		return nil, err
	}
	return &sim, nil
}

func (c *Client) SubmitEmergency(ctx context.Context, id string, form intake.Form) (*service.SubmitResult, error) {
	var result service.SubmitResult
	if err := c.do(ctx, http.MethodPost, simulationPath(id, "/emergencies"), form, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Advance(ctx context.Context, id string, seconds, step float64) (*service.AdvanceResult, error) {
	var result service.AdvanceResult
	body := map[string]float64{"seconds": seconds, "step": step}
	if err := c.do(ctx, http.MethodPost, simulationPath(id, "/advance"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetQueue(ctx context.Context, id string) (*service.QueueResponse, error) {
	var queue service.QueueResponse
	if err := c.do(ctx, http.MethodGet, simulationPath(id, "/queue"), nil, &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

func simulationPath(id, suffix string) string {
	return "/api/simulations/" + url.PathEscape(id) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Fields = payload.Fields
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
