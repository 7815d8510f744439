package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	APIVersion     = "2022-06-28"

	pageSize = 100
)

// APIError is the error object returned for non-2xx responses.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the Notion REST API. All requests share one rate
// limiter, so concurrent callers are paced together.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

type Option func(*Client)

// WithBaseURL points the client at another endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit sets the sustained request rate. Burst equals the rate,
// rounded up, with a minimum of one.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		burst := int(perSecond + 0.999)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a client authenticated with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: DefaultBaseURL,
		token:   token,
		limiter: rate.NewLimiter(3, 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryDatabase fetches one page of rows from databaseID. filter may be nil.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter *Filter, cursor string) (List[Page], error) {
	body := struct {
		Filter      *Filter `json:"filter,omitempty"`
		StartCursor string  `json:"start_cursor,omitempty"`
		PageSize    int     `json:"page_size"`
	}{filter, cursor, pageSize}

	var out List[Page]
	err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", body, &out)
	return out, err
}

// CreatePage creates a database row.
func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (Page, error) {
	var out Page
	err := c.do(ctx, http.MethodPost, "/pages", req, &out)
	return out, err
}

// ArchivePage moves a page to the trash.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	body := map[string]any{"archived": true}
	return c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, nil)
}

// ListBlockChildren fetches one page of the direct children of blockID.
func (c *Client) ListBlockChildren(ctx context.Context, blockID, cursor string) (List[Block], error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	var out List[Block]
	err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID)+"/children?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("notion: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", APIVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Code = "unexpected_response"
			apiErr.Message = resp.Status
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("notion: decode %s %s: %w", method, path, err)
	}
	return nil
}
