// README: Itinerary persistence gateway client (POST /itineraries).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nile/internal/modules/itinerary"
)

const (
	itinerariesPath = "/itineraries"
	maxErrorBody    = 1024
)

var ErrRejected = errors.New("itinerary gateway rejected the plan")

type Payload struct {
	Items []itinerary.Item `json:"items"`
}

type SaveRequest struct {
	Itinerary      Payload `json:"itinerary"`
	ConversationID string  `json:"conversation_id,omitempty"`
}

// Ack is opaque to the engine; the id is kept only for display and logs.
type Ack struct {
	ID string `json:"id"`
}

type Gateway interface {
	Save(ctx context.Context, req SaveRequest) (*Ack, error)
}

// Caller identifies who is saving. The HTTP client forwards Token; the local
// gateway records UID.
type Caller struct {
	UID   string
	Token string
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) Caller {
	caller, _ := ctx.Value(callerKey{}).(Caller)
	return caller
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Save(ctx context.Context, in SaveRequest) (*Ack, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal itinerary: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+itinerariesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := CallerFromContext(ctx).Token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("save itinerary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var ack Ack
	// Any 2xx is an ack; the body is optional.
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	return &ack, nil
}
