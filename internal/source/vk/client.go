package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIVersion is the pinned VK API version.
const APIVersion = "5.199"

// APIError is the error envelope the VK API returns inside an HTTP 200
// response. It is distinct from a transport failure: the request went
// through and the service refused it.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// ErrGroupNotFound is returned by ResolveGroupID when the alias does
// not resolve to any community.
var ErrGroupNotFound = fmt.Errorf("vk: group not found")

// Config holds VK client configuration.
type Config struct {
	BaseURL       string
	Version       string
	FetchTimeout  time.Duration
	LookupTimeout time.Duration
}

// Client talks to the VK public API. Wall fetches and group lookups
// carry their own timeouts; a call that exceeds its timeout is a
// transport failure, never an APIError.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	version       string
	fetchTimeout  time.Duration
	lookupTimeout time.Duration
	logger        *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.vk.com/method"
	}
	if cfg.Version == "" {
		cfg.Version = APIVersion
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{},
		baseURL:       cfg.BaseURL,
		version:       cfg.Version,
		fetchTimeout:  cfg.FetchTimeout,
		lookupTimeout: cfg.LookupTimeout,
		logger:        logger.With("source", "vk"),
	}
}

// FetchPosts fetches up to count posts from a community wall. A numeric
// group identifier is passed as a negative owner_id (community
// semantics), anything else as a domain alias. Returns the posts and
// the community's total post count.
func (c *Client) FetchPosts(ctx context.Context, groupID, accessToken string, count int) ([]Post, int, error) {
	params := url.Values{}
	params.Set("count", strconv.Itoa(count))
	if isNumeric(groupID) {
		params.Set("owner_id", "-"+groupID)
	} else {
		params.Set("domain", groupID)
	}

	var resp wallGetResponse
	if err := c.call(ctx, "wall.get", accessToken, c.fetchTimeout, params, &resp); err != nil {
		return nil, 0, err
	}
	if resp.Error != nil {
		return nil, 0, resp.Error
	}
	if resp.Response == nil {
		return nil, 0, fmt.Errorf("wall.get: empty response")
	}

	c.logger.Debug("fetched wall posts",
		"group", groupID,
		"requested", count,
		"returned", len(resp.Response.Items),
	)

	return resp.Response.Items, resp.Response.Count, nil
}

// ResolveGroupID resolves a community alias to its numeric id. Numeric
// input is returned unchanged without a remote call.
func (c *Client) ResolveGroupID(ctx context.Context, groupID, accessToken string) (string, error) {
	if isNumeric(groupID) {
		return groupID, nil
	}

	groups, err := c.getGroups(ctx, groupID, accessToken)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 {
		return "", ErrGroupNotFound
	}
	return strconv.FormatInt(groups[0].ID, 10), nil
}

// GroupName looks up the human-readable community name.
func (c *Client) GroupName(ctx context.Context, groupID, accessToken string) (string, error) {
	groups, err := c.getGroups(ctx, groupID, accessToken)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 {
		return "", ErrGroupNotFound
	}
	return groups[0].Name, nil
}

func (c *Client) getGroups(ctx context.Context, groupID, accessToken string) ([]Group, error) {
	params := url.Values{}
	params.Set("group_id", groupID)

	var resp groupsGetByIDResponse
	if err := c.call(ctx, "groups.getById", accessToken, c.lookupTimeout, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if len(resp.Response) == 0 {
		return nil, nil
	}

	var wrapped groupsWrapper
	if err := json.Unmarshal(resp.Response, &wrapped); err == nil && len(wrapped.Groups) > 0 {
		return wrapped.Groups, nil
	}

	var legacy []Group
	if err := json.Unmarshal(resp.Response, &legacy); err == nil {
		return legacy, nil
	}

	return nil, nil
}

func (c *Client) call(ctx context.Context, method, accessToken string, timeout time.Duration, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params.Set("access_token", accessToken)
	params.Set("v", c.version)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: execute request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status: %d", method, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}

	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
