package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kadirpekel/protolink/pkg/a2a"
	"github.com/kadirpekel/protolink/pkg/httpclient"
)

// Client talks to a remote registry Server. It implements Directory, so
// agents can swap between a local Registry and a remote one without code
// changes.
type Client struct {
	registryURL string
	client      *httpclient.Client
}

var _ Directory = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientHTTPClient overrides the retrying HTTP client.
func WithClientHTTPClient(client *httpclient.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient creates a registry client for the given base URL.
func NewClient(registryURL string, opts ...ClientOption) *Client {
	c := &Client{
		registryURL: strings.TrimRight(registryURL, "/"),
		client:      httpclient.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register publishes the card to the remote registry.
func (c *Client) Register(ctx context.Context, card *a2a.AgentCard) error {
	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal agent card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.registryURL+"/agents/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Unregister removes the agent from the remote registry.
func (c *Client) Unregister(ctx context.Context, agentURL string) error {
	u := c.registryURL + "/agents/?agent_url=" + url.QueryEscape(agentURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("unregister agent: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Heartbeat refreshes the agent's liveness timestamp on the remote
// registry.
func (c *Client) Heartbeat(ctx context.Context, agentURL string) error {
	u := c.registryURL + "/agents/heartbeat?agent_url=" + url.QueryEscape(agentURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if httpclient.StatusOf(err) == http.StatusNotFound {
			return ErrNotRegistered
		}
		return fmt.Errorf("heartbeat: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Discover queries the remote registry for live agents matching filter.
func (c *Client) Discover(ctx context.Context, filter map[string]string) ([]*a2a.AgentCard, error) {
	u := c.registryURL + "/agents/"
	if len(filter) > 0 {
		params := url.Values{}
		for key, value := range filter {
			params.Set(key, value)
		}
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discover agents: %w", err)
	}
	defer resp.Body.Close()

	var cards []*a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("decode discovery response: %w", err)
	}
	return cards, nil
}

// Status fetches the remote registry's /status payload.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.registryURL+"/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry status: %w", err)
	}
	defer resp.Body.Close()

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return status, nil
}
