package retell

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

	"github.com/aretw0/switchboard/pkg/domain"
)

// DefaultBaseURL is the platform API root.
const DefaultBaseURL = "https://api.retellai.com"

// Client talks to the platform REST API.
// Client is safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResponseEngine binds an agent to the flow that drives it.
type ResponseEngine struct {
	Type               string `json:"type"`
	ConversationFlowID string `json:"conversation_flow_id,omitempty"`
}

// AgentRequest is the body of create-agent.
type AgentRequest struct {
	AgentName      string         `json:"agent_name"`
	ResponseEngine ResponseEngine `json:"response_engine"`
	VoiceID        string         `json:"voice_id"`
	Language       string         `json:"language"`
	WebhookURL     string         `json:"webhook_url,omitempty"`
}

// NewAgentRequest fills the fixed fields of an agent bound to a conversation flow.
func NewAgentRequest(name, flowID, voiceID, webhookURL string) AgentRequest {
	return AgentRequest{
		AgentName:      name,
		ResponseEngine: ResponseEngine{Type: "conversation-flow", ConversationFlowID: flowID},
		VoiceID:        voiceID,
		Language:       "en-US",
		WebhookURL:     webhookURL,
	}
}

// Agent is a deployed voice agent.
type Agent struct {
	AgentID                   string         `json:"agent_id"`
	AgentName                 string         `json:"agent_name"`
	VoiceID                   string         `json:"voice_id,omitempty"`
	Language                  string         `json:"language,omitempty"`
	WebhookURL                string         `json:"webhook_url,omitempty"`
	ResponseEngine            ResponseEngine `json:"response_engine"`
	LastModificationTimestamp int64          `json:"last_modification_timestamp,omitempty"`
}

// ConversationFlow is the summary the platform returns for a stored flow.
type ConversationFlow struct {
	ConversationFlowID string            `json:"conversation_flow_id"`
	Version            int               `json:"version,omitempty"`
	StartNodeID        string            `json:"start_node_id,omitempty"`
	Nodes              []json.RawMessage `json:"nodes,omitempty"`
}

// WebCall is a browser test call session.
type WebCall struct {
	CallID      string `json:"call_id"`
	AgentID     string `json:"agent_id"`
	AccessToken string `json:"access_token"`
	CallStatus  string `json:"call_status,omitempty"`
}

// CreateConversationFlow encodes f and stores it on the platform.
func (c *Client) CreateConversationFlow(ctx context.Context, f *domain.Flow) (*ConversationFlow, error) {
	doc, err := Encode(f)
	if err != nil {
		return nil, err
	}
	var out ConversationFlow
	if err := c.do(ctx, http.MethodPost, "/create-conversation-flow", json.RawMessage(doc), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAgent creates an agent.
func (c *Client) CreateAgent(ctx context.Context, req AgentRequest) (*Agent, error) {
	var out Agent
	if err := c.do(ctx, http.MethodPost, "/create-agent", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAgents returns every agent of the account.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var out []Agent
	if err := c.do(ctx, http.MethodGet, "/list-agents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListConversationFlows returns every stored flow.
func (c *Client) ListConversationFlows(ctx context.Context) ([]ConversationFlow, error) {
	var out []ConversationFlow
	if err := c.do(ctx, http.MethodGet, "/list-conversation-flows", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAgent fetches one agent.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var out Agent
	if err := c.do(ctx, http.MethodGet, "/get-agent/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversationFlow fetches the raw document of a stored flow.
// Pass it to Decode to get a domain flow back.
func (c *Client) GetConversationFlow(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/get-conversation-flow/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/delete-agent/"+url.PathEscape(id), nil, nil)
}

// DeleteConversationFlow removes a stored flow.
func (c *Client) DeleteConversationFlow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/delete-conversation-flow/"+url.PathEscape(id), nil, nil)
}

// CreateWebCall opens a browser test call with the agent.
func (c *Client) CreateWebCall(ctx context.Context, agentID string) (*WebCall, error) {
	var out WebCall
	body := map[string]string{"agent_id": agentID}
	if err := c.do(ctx, http.MethodPost, "/v2/create-web-call", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %w", ErrNetwork, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s response: %w", ErrDecode, path, err)
	}
	return nil
}
