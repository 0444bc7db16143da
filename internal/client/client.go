// Package client is a typed client for the fund-advisor REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Dan9191/fund-advisor/internal/export"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer of the API. Message is the body's "error"
// field and may be empty.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("responded with %d http code", e.Status)
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Message returns the server message of an API error, or fallback for any
// other failure or an empty message.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client talks to the API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	log     *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Portfolio is a fetched portfolio with the ETag the server sent for it.
type Portfolio struct {
	View *models.PortfolioView
	ETag string
}

// Condition makes a save conditional on the state the caller last saw.
type Condition struct {
	IfMatch     string
	IfNoneMatch string
}

// ListInvestors fetches the investor list.
func (c *Client) ListInvestors(ctx context.Context) ([]models.InvestorSummary, error) {
	var out []models.InvestorSummary
	if _, err := c.do(ctx, http.MethodGet, "/api/investors", nil, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := out[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid investor list: %w", err)
		}
	}
	return out, nil
}

// CreateInvestor registers an investor and returns the server message.
func (c *Client) CreateInvestor(ctx context.Context, req *models.InvestorRequest) (string, error) {
	var out models.MessageResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/investors", req, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Recommendations fetches the recommendation set of an investor.
func (c *Client) Recommendations(ctx context.Context, investorID int64) (*models.RecommendationSet, error) {
	var out models.RecommendationSet
	if _, err := c.do(ctx, http.MethodGet, "/api/recommendations/"+strconv.FormatInt(investorID, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommendation set: %w", err)
	}
	return &out, nil
}

// Portfolio fetches the latest portfolio of an investor. A missing
// portfolio is an *APIError with status 404.
func (c *Client) Portfolio(ctx context.Context, investorID int64) (*Portfolio, error) {
	var view models.PortfolioView
	resp, err := c.do(ctx, http.MethodGet, "/api/portfolio/"+strconv.FormatInt(investorID, 10), nil, nil, &view)
	if err != nil {
		return nil, err
	}
	if err := view.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portfolio: %w", err)
	}
	return &Portfolio{View: &view, ETag: resp.Header.Get("ETag")}, nil
}

// SavePortfolio posts a full replacement portfolio.
func (c *Client) SavePortfolio(ctx context.Context, investorID int64, req *models.SavePortfolioRequest, cond Condition) (*models.SavePortfolioResponse, error) {
	headers := map[string]string{}
	if cond.IfMatch != "" {
		headers["If-Match"] = cond.IfMatch
	}
	if cond.IfNoneMatch != "" {
		headers["If-None-Match"] = cond.IfNoneMatch
	}
	var out models.SavePortfolioResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/portfolio/"+strconv.FormatInt(investorID, 10), req, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Statement downloads and parses the XML statement of the latest portfolio.
func (c *Client) Statement(ctx context.Context, investorID int64) ([]byte, *export.Summary, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/portfolio/"+strconv.FormatInt(investorID, 10)+"/export.xml", nil, nil)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	summary, err := export.ReadStatement(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, summary, nil
}

// Login exchanges the admin password for a token and keeps it for later
// requests.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/login", body, nil, &out); err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// send performs the request and turns non-2xx answers into *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	logger := c.log.WithFields(logrus.Fields{"method": method, "path": path})

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build request url: %w", err)
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request data: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.WithError(err).Debug("request failed")
		return nil, fmt.Errorf("send %s request: %w", method, err)
	}
	logger.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start).String()}).Debug("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		var e models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil {
			apiErr.Message = e.Error
		}
		return nil, apiErr
	}
	return resp, nil
}
