// Package assistant implements the client for the Assistant Provisioning
// Service: an OpenAI-compatible assistants endpoint that manufactures an AI
// responder identity from a name and description. The dashboard treats it
// as an external collaborator with a narrow contract (create, update,
// delete by opaque assistant id); every call is best-effort from the bot
// lifecycle's point of view.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultInstructions is the system prompt attached to newly provisioned
// assistants.
const DefaultInstructions = "You are an AI email assistant. Respond professionally and helpfully to customer inquiries."

// DefaultModel is requested when the caller does not override the model.
const DefaultModel = "gpt-4-turbo-preview"

// Assistant is the provider's view of a provisioned responder.
type Assistant struct {
	ID    string `json:"id"`
	Model string `json:"model"`
}

// CreateParams describes a new assistant. Empty Instructions/Model fall
// back to the package defaults.
type CreateParams struct {
	Name         string
	Description  string
	Instructions string
	Model        string
}

// UpdateParams carries a partial assistant update; empty fields are
// omitted from the request.
type UpdateParams struct {
	Name         string
	Description  string
	Instructions string
	Model        string
}

// Client talks to an OpenAI-compatible assistants API over HTTPS.
// The zero value is not usable; construct with NewClient.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a Client for the given endpoint. baseURL defaults to the
// public OpenAI API when empty.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// assistantRequest is the wire shape for create/update calls.
type assistantRequest struct {
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Model        string `json:"model,omitempty"`
	Tools        []tool `json:"tools,omitempty"`
}

type tool struct {
	Type string `json:"type"`
}

// CreateAssistant provisions a new assistant and returns its opaque id and
// the model the provider actually assigned.
func (c *Client) CreateAssistant(ctx context.Context, p CreateParams) (*Assistant, error) {
	if p.Instructions == "" {
		p.Instructions = DefaultInstructions
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	body := assistantRequest{
		Name:         p.Name,
		Description:  p.Description,
		Instructions: p.Instructions,
		Model:        p.Model,
		Tools:        []tool{{Type: "file_search"}},
	}
	return c.do(ctx, http.MethodPost, "/assistants", body)
}

// UpdateAssistant applies a partial update to an existing assistant.
func (c *Client) UpdateAssistant(ctx context.Context, id string, p UpdateParams) (*Assistant, error) {
	body := assistantRequest{
		Name:         p.Name,
		Description:  p.Description,
		Instructions: p.Instructions,
		Model:        p.Model,
	}
	return c.do(ctx, http.MethodPost, "/assistants/"+id, body)
}

// DeleteAssistant removes an assistant by id.
func (c *Client) DeleteAssistant(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/assistants/"+id, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return providerError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body assistantRequest) (*Assistant, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, providerError(resp)
	}

	var a Assistant
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &a, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
}

// providerError extracts the provider's error string, falling back to the
// HTTP status when the body is not the expected shape.
func providerError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("assistant provider: %s", e.Error.Message)
	}
	return fmt.Errorf("assistant provider: unexpected status %s", resp.Status)
}
