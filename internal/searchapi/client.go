// Package searchapi is the HTTP client for the hosted visual search API: the
// paginated search endpoint plus the detail and similar-items lookups.
package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/felixgeelhaar/glance/internal/observe"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 15 * time.Second

// Endpoints are the API URLs.
type Endpoints struct {
	Search  string `json:"search" yaml:"search"`
	Detail  string `json:"detail" yaml:"detail"`
	Similar string `json:"similar" yaml:"similar"`
}

// Options configure a Client.
type Options struct {
	Endpoints  Endpoints
	ClientName string        // value of the "client" header, "web" when empty
	Token      string        // optional bearer token
	Timeout    time.Duration // DefaultTimeout when zero
	RateLimit  float64       // requests per second, unlimited when zero
	HTTPClient *http.Client
	Observer   *observe.Observer
}

// Client talks to the search, detail and similar-items endpoints. Each call is
// attempted exactly once.
type Client struct {
	endpoints  Endpoints
	clientName string
	token      string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	obs        *observe.Observer
}

func New(opts Options) (*Client, error) {
	if opts.Endpoints.Search == "" {
		return nil, errors.New("search endpoint is required")
	}
	c := &Client{
		endpoints:  opts.Endpoints,
		clientName: opts.ClientName,
		token:      opts.Token,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		obs:        opts.Observer,
	}
	if c.clientName == "" {
		c.clientName = "web"
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.obs == nil {
		c.obs = observe.Discard()
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c, nil
}

// Search fetches one page of a text or image search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*Page, error) {
	const op = "search"
	if req.Limit <= 0 {
		req.Limit = DefaultPageSize
	}

	var (
		body        io.Reader
		contentType string
	)
	switch req.Type {
	case TextSearch:
		form, err := encodeText(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case ImageSearch:
		buf := &bytes.Buffer{}
		ct, err := encodeImage(buf, req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		body = buf
		contentType = ct
	default:
		return nil, fmt.Errorf("%s: unknown search type %q", op, req.Type)
	}

	ctx, span := c.obs.StartSpan(ctx, "searchapi.Search",
		"search.type", string(req.Type),
		"search.id", req.SearchID,
		"search.offset", strconv.Itoa(req.Offset))

	var page Page
	err := c.post(ctx, op, c.endpoints.Search, contentType, body, &page)
	c.obs.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []Product{}
	}

	c.obs.Log().Debug().
		Str("type", string(req.Type)).
		Str("search_id", page.SearchID).
		Int("offset", req.Offset).
		Int("count", len(page.Data)).
		Msg("search page received")
	return &page, nil
}

// Detail looks up the products of one color variant.
func (c *Client) Detail(ctx context.Context, hash string) ([]Product, error) {
	const op = "detail"
	body, err := encodeJSON(detailRequest{ColorHashes: []string{hash}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := c.obs.StartSpan(ctx, "searchapi.Detail", "color_text_hash", hash)
	var resp detailResponse
	err = c.post(ctx, op, c.endpoints.Detail, "application/json", body, &resp)
	c.obs.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Similar fetches recommendations for one color variant. The result is never nil.
func (c *Client) Similar(ctx context.Context, hash string) ([]Product, error) {
	const op = "similar"
	body, err := encodeJSON(similarRequest{ColorTextHash: hash})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := c.obs.StartSpan(ctx, "searchapi.Similar", "color_text_hash", hash)
	var resp similarResponse
	err = c.post(ctx, op, c.endpoints.Similar, "application/json", body, &resp)
	c.obs.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	if resp.SimilarProductResults == nil {
		return []Product{}, nil
	}
	return resp.SimilarProductResults, nil
}

func (c *Client) post(ctx context.Context, op, endpoint, contentType string, body io.Reader, out any) error {
	if endpoint == "" {
		return &Error{Op: op, Kind: KindTransport, Err: errors.New("endpoint not configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Op: op, Kind: KindTransport, Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	httpReq.Header.Set("client", c.clientName)
	httpReq.Header.Set("Content-Type", contentType)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.obs.Log().Warn().Str("op", op).Err(err).Msg("request failed")
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}

	c.obs.Log().Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Str("elapsed", time.Since(start).String()).
		Msg("response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.obs.Log().Warn().Str("op", op).Int("status", resp.StatusCode).Msg("unexpected status")
		return &Error{Op: op, Kind: KindStatus, Status: resp.StatusCode, StatusText: statusText(resp)}
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return &Error{Op: op, Kind: KindDecode, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// statusText strips the numeric code from resp.Status ("500 Internal Server Error").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
