// Package captcha verifies reCAPTCHA response tokens with Google's siteverify
// endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is Google's reCAPTCHA verification endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// ErrNotConfigured is returned when no secret key has been configured.
var ErrNotConfigured = errors.New("captcha: secret key not configured")

// Result is the outcome of a verification.
type Result struct {
	Success    bool
	ErrorCodes []string
}

// Verifier checks reCAPTCHA tokens.
type Verifier struct {
	verifyURL string
	secret    string
	http      *http.Client
}

// NewVerifier constructs a Verifier. An empty secret is allowed; Verify then
// fails with ErrNotConfigured so the caller can report a server error.
func NewVerifier(verifyURL, secret string, timeout time.Duration) *Verifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &Verifier{verifyURL: verifyURL, secret: secret, http: &http.Client{Timeout: timeout}}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token to siteverify. A rejected token is a successful
// call with Result.Success false; only transport problems return an error.
func (v *Verifier) Verify(ctx context.Context, token string) (Result, error) {
	if v.secret == "" {
		return Result{}, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("captcha.Verifier.Verify: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("captcha.Verifier.Verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("captcha.Verifier.Verify: http status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("captcha.Verifier.Verify: decode: %w", err)
	}
	return Result{Success: body.Success, ErrorCodes: body.ErrorCodes}, nil
}
