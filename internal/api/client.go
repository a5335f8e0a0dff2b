package api

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Request is a single call against the Campaign API.
type Request struct {
	Method string
	Route  Route
	Query  url.Values
	Body   any
	Header http.Header
}

// Gateway performs authenticated calls and decodes JSON responses into out.
// An out of type *[]byte receives the response body undecoded.
type Gateway interface {
	Do(ctx context.Context, req *Request, out any) error
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	password   string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey, password string, ratePerSec int, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = ratePerSec * 2
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		password: password,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

func (c *HTTPClient) Do(ctx context.Context, r *Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	target := c.baseURL + r.Route.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Method == http.MethodPost {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encoding %s body: %w", r.Route.Name, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth(c.apiKey, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	c.logger.Debug("requesting",
		zap.String("method", r.Method),
		zap.String("route", string(r.Route.Name)),
		zap.String("url", target),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", zap.String("method", r.Method), zap.String("url", target), zap.Error(err))
		return &TransportError{Method: r.Method, URL: target, Err: err}
	}

	// Read body before closing for error messages
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if readErr != nil {
		return &TransportError{Method: r.Method, URL: target, StatusCode: resp.StatusCode, Err: readErr}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("unexpected status",
			zap.String("method", r.Method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
		)
		return &TransportError{
			Method:     r.Method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = respBody
		return nil
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProtocolError{Op: string(r.Route.Name), Detail: "decoding response", Err: err}
	}
	return nil
}
