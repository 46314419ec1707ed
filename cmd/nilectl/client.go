package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nile/internal/modules/session"
)

// apiClient talks to the nile session API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*session.Snapshot, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil, nil
	}
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &snap, nil
}

func (c *apiClient) create(ctx context.Context, startPreferences bool) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPost, "/api/sessions", map[string]any{"start_preferences": startPreferences})
}

func (c *apiClient) get(ctx context.Context, id string) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodGet, "/api/sessions/"+id, nil)
}

func (c *apiClient) send(ctx context.Context, id, text string) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]any{"text": text})
}

func (c *apiClient) startPreferences(ctx context.Context, id string) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/preferences", nil)
}

func (c *apiClient) selectOption(ctx context.Context, id, promptID, value string) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%s/prompts/%s/select", id, promptID), map[string]any{"value": value})
}

func (c *apiClient) submit(ctx context.Context, id, promptID string) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%s/prompts/%s/submit", id, promptID), nil)
}

func (c *apiClient) toggle(ctx context.Context, id, itemID string, accepted bool) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/sessions/%s/items/%s", id, itemID), map[string]any{"accepted": accepted})
}

func (c *apiClient) confirm(ctx context.Context, id string) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/confirm", nil)
}

func (c *apiClient) regenerate(ctx context.Context, id string) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/regenerate", nil)
}

func (c *apiClient) closeSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/sessions/"+id, nil)
	return err
}

// settle polls until no planner or gateway request is pending and the reveal is done.
func (c *apiClient) settle(ctx context.Context, id string) (*session.Snapshot, error) {
	for {
		snap, err := c.get(ctx, id)
		if err != nil {
			return nil, err
		}
		busy := snap.Composing || snap.Saving || snap.Phase == session.PhaseGenerating || snap.RevealCount < len(snap.Items)
		if !busy {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (c *apiClient) saveCard(ctx context.Context, id, activityID string, saved bool) (*session.Snapshot, error) {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/sessions/%s/cards/%s", id, activityID), map[string]any{"saved": saved})
}
