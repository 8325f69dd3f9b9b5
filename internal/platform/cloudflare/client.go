package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the Cloudflare v4 API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// AutoTTL lets Cloudflare pick the TTL; proxied records always use it.
const AutoTTL = 1

// ErrNotFound is returned when a zone or record does not exist.
var ErrNotFound = errors.New("cloudflare: not found")

// Client is a minimal Cloudflare API client for DNS record management.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Record represents a Cloudflare DNS record.
type Record struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Proxied bool   `json:"proxied"`
	TTL     int    `json:"ttl"`
	Comment string `json:"comment,omitempty"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Errors []apiError
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("API error (status %d): %d %s", e.Status, e.Errors[0].Code, e.Errors[0].Message)
	}
	return fmt.Sprintf("API error (status %d)", e.Status)
}

// Temporary reports whether the request may succeed when retried.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsTemporary reports whether err is a retryable API error.
func IsTemporary(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Temporary()
}

type apiResponse struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type zoneResult struct {
	ID string `json:"id"`
}

type resultInfo struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

type listResponse struct {
	Success    bool       `json:"success"`
	Errors     []apiError `json:"errors"`
	Result     []Record   `json:"result"`
	ResultInfo resultInfo `json:"result_info"`
}

// NewClient creates a new Cloudflare API client.
func NewClient(apiToken string, opts ...Option) *Client {
	c := &Client{
		apiToken:   apiToken,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetZoneID returns the zone ID for the given domain.
func (c *Client) GetZoneID(ctx context.Context, domain string) (string, error) {
	var resp apiResponse
	if err := c.call(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(domain), nil, &resp); err != nil {
		return "", fmt.Errorf("get zone ID: %w", err)
	}

	var zones []zoneResult
	if err := json.Unmarshal(resp.Result, &zones); err != nil {
		return "", fmt.Errorf("parse zones: %w", err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("%w: zone for domain %s", ErrNotFound, domain)
	}
	return zones[0].ID, nil
}

// ListDNSRecords returns the DNS records in the zone. A non-empty name
// restricts the list to records with that exact name.
func (c *Client) ListDNSRecords(ctx context.Context, zoneID, name string) ([]Record, error) {
	var all []Record
	page := 1

	for {
		q := url.Values{}
		q.Set("per_page", "100")
		q.Set("page", fmt.Sprint(page))
		if name != "" {
			q.Set("name", name)
		}

		var resp listResponse
		if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/zones/%s/dns_records?%s", zoneID, q.Encode()), nil, &resp); err != nil {
			return nil, fmt.Errorf("list DNS records page %d: %w", page, err)
		}
		all = append(all, resp.Result...)

		if page >= resp.ResultInfo.TotalPages {
			break
		}
		page++
	}
	return all, nil
}

// FindRecord returns the record with the given type and name.
func (c *Client) FindRecord(ctx context.Context, zoneID, recordType, name string) (*Record, error) {
	records, err := c.ListDNSRecords(ctx, zoneID, name)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Type == recordType && records[i].Name == name {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s record %s", ErrNotFound, recordType, name)
}

// GetDNSRecord returns a record by ID.
func (c *Client) GetDNSRecord(ctx context.Context, zoneID, recordID string) (*Record, error) {
	return c.recordCall(ctx, http.MethodGet, fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID), nil)
}

// CreateDNSRecord creates a record and returns it with its ID.
func (c *Client) CreateDNSRecord(ctx context.Context, zoneID string, r Record) (*Record, error) {
	return c.recordCall(ctx, http.MethodPost, fmt.Sprintf("/zones/%s/dns_records", zoneID), &r)
}

// UpdateDNSRecord overwrites a record.
func (c *Client) UpdateDNSRecord(ctx context.Context, zoneID, recordID string, r Record) (*Record, error) {
	return c.recordCall(ctx, http.MethodPut, fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID), &r)
}

// DeleteDNSRecord deletes a DNS record by ID.
func (c *Client) DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error {
	var resp apiResponse
	if err := c.call(ctx, http.MethodDelete, fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID), nil, &resp); err != nil {
		return fmt.Errorf("delete DNS record %s: %w", recordID, err)
	}
	return nil
}

func (c *Client) recordCall(ctx context.Context, method, path string, in *Record) (*Record, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		body = bytes.NewReader(data)
	}

	var resp apiResponse
	if err := c.call(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var parsed apiResponse
		if json.Unmarshal(body, &parsed) == nil {
			apiErr.Errors = parsed.Errors
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}
	return nil
}
