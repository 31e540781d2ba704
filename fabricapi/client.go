// Package fabricapi is a REST client for the Fabric items API. It implements
// core.ArtifactManager and core.DefinitionPublisher.
//
// Calls that the service answers with 202 Accepted are long-running
// operations. The client polls the operation until it reaches a terminal
// state and returns the operation's result as if the call had completed
// synchronously. A failed operation is reported as a 500 response whose body
// is the operation's error object.
package fabricapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/fabricsync/core"
	"github.com/hupe1980/fabricsync/logging"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the production Fabric API endpoint.
const DefaultBaseURL = "https://api.fabric.microsoft.com/v1"

// HeaderRequestID carries the client generated request id.
const HeaderRequestID = "x-ms-client-request-id"

var environmentBaseURLs = map[string]string{
	"PROD":  DefaultBaseURL,
	"MSIT":  "https://msitapi.fabric.microsoft.com/v1",
	"DAILY": "https://dailyapi.fabric.microsoft.com/v1",
	"DXT":   "https://dxtapi.fabric.microsoft.com/v1",
}

// BaseURLFor returns the API endpoint of a Fabric environment, falling back
// to DefaultBaseURL for unknown names.
func BaseURLFor(environment string) string {
	if u, ok := environmentBaseURLs[strings.ToUpper(strings.TrimSpace(environment))]; ok {
		return u
	}
	return DefaultBaseURL
}

// TokenSource supplies bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("fabricapi: no access token configured")
	}
	return string(t), nil
}

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// HTTPClient defaults to a client with a 60 second timeout.
	HTTPClient *http.Client
	// PollInterval is used when a long-running operation response carries
	// no Retry-After header. Defaults to one second.
	PollInterval time.Duration
	// MaxPollInterval caps Retry-After. Defaults to 30 seconds.
	MaxPollInterval time.Duration
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Client talks to the Fabric REST API.
type Client struct {
	baseURL         string
	http            *http.Client
	tokens          TokenSource
	pollInterval    time.Duration
	maxPollInterval time.Duration
	logger          logging.Logger
}

var (
	_ core.ArtifactManager     = (*Client)(nil)
	_ core.DefinitionPublisher = (*Client)(nil)
)

// New creates a client.
func New(tokens TokenSource, optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL:         DefaultBaseURL,
		PollInterval:    time.Second,
		MaxPollInterval: 30 * time.Second,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxPollInterval < opts.PollInterval {
		opts.MaxPollInterval = opts.PollInterval
	}
	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		http:            opts.HTTPClient,
		tokens:          tokens,
		pollInterval:    opts.PollInterval,
		maxPollInterval: opts.MaxPollInterval,
		logger:          opts.Logger,
	}
}

func itemPath(workspaceID, itemID string, suffix ...string) string {
	p := "/workspaces/" + url.PathEscape(workspaceID) + "/items"
	if itemID != "" {
		p += "/" + url.PathEscape(itemID)
	}
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// GetDefinition implements core.ArtifactManager.
func (c *Client) GetDefinition(ctx context.Context, a core.Artifact, folder string, progress core.Progress) (*core.APIResponse, error) {
	c.logger.Debug("Requesting item definition", "artifact_id", a.ID, "folder", folder)
	resp, err := c.do(ctx, http.MethodPost, itemPath(a.WorkspaceID, a.ID, "getDefinition"), nil)
	if err != nil {
		return nil, err
	}
	return c.follow(ctx, resp, progress)
}

// UpdateDefinition implements core.DefinitionPublisher.
func (c *Client) UpdateDefinition(ctx context.Context, a core.Artifact, def core.ItemDefinition) (*core.APIResponse, error) {
	body := struct {
		Definition core.ItemDefinition `json:"definition"`
	}{def}
	resp, err := c.do(ctx, http.MethodPost, itemPath(a.WorkspaceID, a.ID, "updateDefinition"), body)
	if err != nil {
		return nil, err
	}
	return c.follow(ctx, resp, nil)
}

// GetItem implements core.ArtifactManager.
func (c *Client) GetItem(ctx context.Context, workspaceID, itemID string) (*core.APIResponse, error) {
	return c.do(ctx, http.MethodGet, itemPath(workspaceID, itemID), nil)
}

// ListItems implements core.ArtifactManager.
func (c *Client) ListItems(ctx context.Context, workspaceID string) (*core.APIResponse, error) {
	return c.do(ctx, http.MethodGet, itemPath(workspaceID, ""), nil)
}

// CreateItem implements core.ArtifactManager.
func (c *Client) CreateItem(ctx context.Context, workspaceID string, req core.CreateItemRequest) (*core.APIResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, itemPath(workspaceID, ""), req)
	if err != nil {
		return nil, err
	}
	return c.follow(ctx, resp, nil)
}

// DeleteItem implements core.ArtifactManager.
func (c *Client) DeleteItem(ctx context.Context, a core.Artifact) (*core.APIResponse, error) {
	return c.do(ctx, http.MethodDelete, itemPath(a.WorkspaceID, a.ID), nil)
}

// do sends one request. path is either relative to the base URL or absolute.
func (c *Client) do(ctx context.Context, method, path string, body any) (*core.APIResponse, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("fabricapi: encoding %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("fabricapi: building %s %s: %w", method, path, err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fabricapi: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("fabricapi: reading %s %s: %w", method, path, err)
	}
	c.logger.Debug("Fabric API call",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &core.APIResponse{Status: res.StatusCode, Body: data, Header: res.Header}, nil
}

// follow polls a long-running operation started by resp. Responses other
// than 202 are returned unchanged.
func (c *Client) follow(ctx context.Context, resp *core.APIResponse, progress core.Progress) (*core.APIResponse, error) {
	if resp.Status != http.StatusAccepted {
		return resp, nil
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return resp, nil
	}
	if progress == nil {
		progress = core.NoProgress
	}

	current := resp
	for {
		if err := c.wait(ctx, current.Header); err != nil {
			return nil, err
		}
		poll, err := c.do(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		if !poll.Succeeded() {
			return poll, nil
		}

		state := gjson.GetBytes(poll.Body, "status").String()
		switch state {
		case "Succeeded":
			if next := poll.Header.Get("Location"); next != "" {
				return c.do(ctx, http.MethodGet, next, nil)
			}
			// Operations without a result document answer with the
			// operation itself.
			return &core.APIResponse{Status: http.StatusOK, Body: poll.Body, Header: poll.Header}, nil
		case "Failed", "Cancelled":
			body := []byte(gjson.GetBytes(poll.Body, "error").Raw)
			if len(body) == 0 {
				body = poll.Body
			}
			return &core.APIResponse{Status: http.StatusInternalServerError, Body: body, Header: poll.Header}, nil
		}

		if pct := gjson.GetBytes(poll.Body, "percentComplete"); pct.Exists() {
			progress.Report(core.ProgressStep{Message: fmt.Sprintf("Waiting for Fabric (%d%%)", pct.Int())})
		}
		if next := poll.Header.Get("Location"); next != "" {
			location = next
		}
		current = poll
	}
}

func (c *Client) wait(ctx context.Context, header http.Header) error {
	d := c.pollInterval
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs >= 0 {
			d = time.Duration(secs) * time.Second
		}
	}
	if d > c.maxPollInterval {
		d = c.maxPollInterval
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
