package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAgentBind = "127.0.0.1:7580"
	defaultUserAgent = "nodedeck/0.1"
	requestTimeout   = 5 * time.Second
)

// AgentClient fetches log windows from a node-agent HTTP API. The agent
// exposes GET /api/logs?source=<id>&limit=<n> returning the newest lines
// oldest first.
type AgentClient struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// NewAgentClient builds a client from a host:port bind value.
func NewAgentClient(bind string) (*AgentClient, error) {
	base, err := parseBaseURL(bind)
	if err != nil {
		return nil, err
	}
	return &AgentClient{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

type logWindowResponse struct {
	Lines []string `json:"lines"`
}

// FetchRecent implements Source over the agent API. Connection failures map
// to ErrSourceUnavailable so schedulers treat them as a stale cycle, not a
// fault.
func (c *AgentClient) FetchRecent(ctx context.Context, id string, maxLines int) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("agent client is nil")
	}
	values := url.Values{}
	values.Set("source", id)
	if maxLines > 0 {
		values.Set("limit", strconv.Itoa(maxLines))
	}
	rel := &url.URL{Path: "/api/logs", RawQuery: values.Encode()}
	reqURL := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: agent returned status %d", ErrSourceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("agent %s returned status %d", rel.String(), resp.StatusCode)
	}

	var payload logWindowResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload.Lines, nil
}

func parseBaseURL(bind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(bind)
	if trimmed == "" {
		trimmed = defaultAgentBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse agent bind %q: %w", bind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
