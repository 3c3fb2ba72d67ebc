// Package client is the consumer's HTTP client for the user service.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "user-contract-service/pkg/errors"

	"go.uber.org/zap"
)

// User is the consumer's view of a user record
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Option customises a UserClient
type Option func(*UserClient)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *UserClient) {
		c.httpClient = hc
	}
}

// UserClient fetches users from the user service
type UserClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewUserClient creates a client for the service at baseURL
func NewUserClient(baseURL string, log *zap.Logger, opts ...Option) *UserClient {
	if log == nil {
		log = zap.NewNop()
	}
	c := &UserClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUserByID fetches the user with id. The body is parsed as a User whatever
// the status code; a body that is not a JSON user yields a DecodeError and a
// failed connection a TransportError.
func (c *UserClient) GetUserByID(ctx context.Context, id int64) (*User, error) {
	url := fmt.Sprintf("%s/users/%d", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.NewTransportError(http.MethodGet, url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("user service unreachable", zap.String("url", url), zap.Error(err))
		return nil, pkgerrors.NewTransportError(http.MethodGet, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.NewTransportError(http.MethodGet, url, err)
	}

	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		c.log.Debug("failed to decode user",
			zap.Int64("id", id),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return nil, pkgerrors.NewDecodeError(resp.StatusCode, body, err)
	}

	c.log.Debug("user fetched", zap.Int64("id", u.ID), zap.Int("status", resp.StatusCode))
	return &u, nil
}
