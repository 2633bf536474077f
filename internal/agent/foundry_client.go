package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ashureev/agent-relay/internal/domain"
)

const (
	defaultAPIVersion = "v1"
	maxPageSize       = 100
	maxErrorBody      = 64 << 10
)

var errMissingEndpoint = errors.New("agent endpoint is required")

// APIError is a non-2xx response from the agent service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("agent service returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("agent service returned %d: %s", e.StatusCode, e.Message)
}

// FoundryConfig holds configuration for the Foundry Agent Service client.
type FoundryConfig struct {
	Endpoint   string
	APIVersion string
}

// FoundryClient talks to the Azure AI Foundry Agent Service REST API.
// Authentication is the responsibility of the supplied http.Client.
type FoundryClient struct {
	httpClient *http.Client
	endpoint   string
	apiVersion string
	logger     *slog.Logger
}

// NewFoundryClient creates a client for the project endpoint in cfg.
func NewFoundryClient(cfg FoundryConfig, httpClient *http.Client, logger *slog.Logger) (*FoundryClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, errMissingEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid agent endpoint %q: %w", cfg.Endpoint, err)
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	return &FoundryClient{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiVersion: apiVersion,
		logger:     logger,
	}, nil
}

func (c *FoundryClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	u := c.endpoint + path + "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close agent response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// GetAgent fetches the agent definition.
func (c *FoundryClient) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	var out wireAgent
	if err := c.do(ctx, http.MethodGet, "/assistants/"+url.PathEscape(agentID), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get agent %s: %w", agentID, err)
	}
	return out.toDomain(), nil
}

// CreateThread starts a new thread.
func (c *FoundryClient) CreateThread(ctx context.Context) (*domain.Thread, error) {
	var out wireThread
	if err := c.do(ctx, http.MethodPost, "/threads", nil, struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	c.logger.Debug("Created agent thread", "thread_id", out.ID)
	return out.toDomain(), nil
}

// CreateMessage appends a message to a thread.
func (c *FoundryClient) CreateMessage(ctx context.Context, threadID string, role domain.Role, content string) (*domain.Message, error) {
	var out wireMessage
	req := createMessageRequest{Role: string(role), Content: content}
	if err := c.do(ctx, http.MethodPost, threadPath(threadID, "/messages"), nil, req, &out); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	msg := out.toDomain()
	return &msg, nil
}

// CreateRun starts a run.
func (c *FoundryClient) CreateRun(ctx context.Context, threadID, agentID string) (*domain.Run, error) {
	var out wireRun
	if err := c.do(ctx, http.MethodPost, threadPath(threadID, "/runs"), nil, createRunRequest{AssistantID: agentID}, &out); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return out.toDomain(), nil
}

// GetRun fetches a run.
func (c *FoundryClient) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	var out wireRun
	if err := c.do(ctx, http.MethodGet, threadPath(threadID, "/runs/"+url.PathEscape(runID)), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return out.toDomain(), nil
}

// CancelRun cancels a run.
func (c *FoundryClient) CancelRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	var out wireRun
	if err := c.do(ctx, http.MethodPost, threadPath(threadID, "/runs/"+url.PathEscape(runID)+"/cancel"), nil, struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("cancel run %s: %w", runID, err)
	}
	return out.toDomain(), nil
}

// ListMessages lists thread messages, following pagination when opts.Limit is zero.
func (c *FoundryClient) ListMessages(ctx context.Context, threadID string, opts ListOptions) ([]domain.Message, error) {
	pages, err := listAll[wireMessage](ctx, c, threadPath(threadID, "/messages"), opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs := make([]domain.Message, 0, len(pages))
	for _, m := range pages {
		msgs = append(msgs, m.toDomain())
	}
	return msgs, nil
}

// ListRuns lists thread runs, following pagination when opts.Limit is zero.
func (c *FoundryClient) ListRuns(ctx context.Context, threadID string, opts ListOptions) ([]domain.Run, error) {
	pages, err := listAll[wireRun](ctx, c, threadPath(threadID, "/runs"), opts)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]domain.Run, 0, len(pages))
	for _, r := range pages {
		runs = append(runs, *r.toDomain())
	}
	return runs, nil
}

type identified interface {
	wireMessage | wireRun
}

func listAll[T identified](ctx context.Context, c *FoundryClient, path string, opts ListOptions) ([]T, error) {
	pageSize := maxPageSize
	if opts.Limit > 0 && opts.Limit < pageSize {
		pageSize = opts.Limit
	}

	var items []T
	after := ""
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(pageSize))
		if opts.Order != "" {
			query.Set("order", string(opts.Order))
		}
		if after != "" {
			query.Set("after", after)
		}

		var page wireList[T]
		if err := c.do(ctx, http.MethodGet, path, query, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Data...)

		if opts.Limit > 0 && len(items) >= opts.Limit {
			return items[:opts.Limit], nil
		}
		if !page.HasMore || page.LastID == "" || page.LastID == after {
			return items, nil
		}
		after = page.LastID
	}
}

func threadPath(threadID, suffix string) string {
	return "/threads/" + url.PathEscape(threadID) + suffix
}
