// Package auth consumes the external identity provider. The server never
// issues tokens; it only asks the provider who a bearer token belongs to.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/talkiehq/talkie/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier resolves a bearer token to the stable user id it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.UserID, error)
}

// HTTPVerifier calls the provider's user endpoint with the token.
type HTTPVerifier struct {
	baseURL string
	anonKey string
	client  *http.Client
}

func NewHTTPVerifier(baseURL, anonKey string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		anonKey: anonKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (domain.UserID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.anonKey != "" {
		req.Header.Set("apikey", v.anonKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("auth provider returned %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if body.ID == "" {
		return "", ErrInvalidToken
	}
	return domain.UserID(body.ID), nil
}
