// Package captcha is the human-verification collaborator consulted once per
// login submission before any credential work.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is Google's reCAPTCHA verification URL.
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// ErrUnavailable wraps transport and decoding failures of the verification call.
var ErrUnavailable = errors.New("captcha verification unavailable")

// Verifier checks a client-supplied challenge response.
type Verifier interface {
	Verify(ctx context.Context, response, remoteIP string) (bool, error)
}

// Disabled accepts every response, including an empty one. It is meant for
// tests and local development.
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) (bool, error) { return true, nil }

// Recaptcha verifies reCAPTCHA v2 responses against the siteverify API.
type Recaptcha struct {
	secret   string
	endpoint string
	client   *http.Client
}

// Option customizes a [Recaptcha] verifier.
type Option func(*Recaptcha)

// WithEndpoint overrides the verification URL.
func WithEndpoint(endpoint string) Option {
	return func(r *Recaptcha) { r.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client (default: 5s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Recaptcha) { r.client = c }
}

// NewRecaptcha returns a verifier using secret.
func NewRecaptcha(secret string, opts ...Option) (*Recaptcha, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("recaptcha secret is required")
	}
	r := &Recaptcha{
		secret:   secret,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts response to the siteverify endpoint. An empty response is
// rejected without a network call.
func (r *Recaptcha) Verify(ctx context.Context, response, remoteIP string) (bool, error) {
	if response == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", r.secret)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.Success, nil
}
