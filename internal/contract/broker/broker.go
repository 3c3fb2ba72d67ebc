// Package broker is a client for the pact broker HTTP API.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"user-contract-service/internal/contract"
	pkgerrors "user-contract-service/pkg/errors"

	"go.uber.org/zap"
)

const (
	relPublishVerificationResults = "pb:publish-verification-results"
	relPacts                      = "pb:pacts"
	relSelf                       = "self"

	halContentType = "application/hal+json"
)

// Config holds broker connection settings
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

// Client talks to a pact broker
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        *zap.Logger
}

// Error is returned when the broker answers with a non-2xx status
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("broker %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a broker 404
func IsNotFound(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.StatusCode == http.StatusNotFound
}

// NewClient creates a broker client
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid broker url %q: %w", cfg.BaseURL, err)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: cfg.HTTPClient,
		log:        log,
	}, nil
}

// Link is a HAL link
type Link struct {
	Href  string `json:"href"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
}

// PactDocument is a pact as served by the broker, with the links needed to report on it
type PactDocument struct {
	Pact                   *contract.Pact
	SelfURL                string
	VerificationResultsURL string
}

type pactResource struct {
	contract.Pact
	Links map[string]json.RawMessage `json:"_links"`
}

// VerificationResults is the body posted to pb:publish-verification-results
type VerificationResults struct {
	Success                    bool   `json:"success"`
	ProviderApplicationVersion string `json:"providerApplicationVersion"`
}

// PublishPact uploads p as version of its consumer
func (c *Client) PublishPact(ctx context.Context, p *contract.Pact, consumerVersion string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if consumerVersion == "" {
		return pkgerrors.NewValidationError("consumerVersion", "consumer version is required")
	}

	data, err := p.Marshal()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/pacts/provider/%s/consumer/%s/version/%s",
		url.PathEscape(p.Provider.Name), url.PathEscape(p.Consumer.Name), url.PathEscape(consumerVersion))
	if err := c.do(ctx, http.MethodPut, c.baseURL+path, data, nil); err != nil {
		return err
	}

	c.log.Info("pact published",
		zap.String("consumer", p.Consumer.Name),
		zap.String("provider", p.Provider.Name),
		zap.String("version", consumerVersion),
	)
	return nil
}

// LatestPact fetches the latest pact between consumer and provider
func (c *Client) LatestPact(ctx context.Context, provider, consumer string) (*PactDocument, error) {
	path := fmt.Sprintf("/pacts/provider/%s/consumer/%s/latest", url.PathEscape(provider), url.PathEscape(consumer))
	return c.fetchPact(ctx, c.baseURL+path)
}

// LatestPactsForProvider fetches the latest pact of every consumer of provider
func (c *Client) LatestPactsForProvider(ctx context.Context, provider string) ([]*PactDocument, error) {
	var index struct {
		Links map[string]json.RawMessage `json:"_links"`
	}
	path := fmt.Sprintf("/pacts/provider/%s/latest", url.PathEscape(provider))
	if err := c.do(ctx, http.MethodGet, c.baseURL+path, nil, &index); err != nil {
		return nil, err
	}

	links, err := decodeLinks(index.Links[relPacts])
	if err != nil {
		return nil, fmt.Errorf("invalid %s links: %w", relPacts, err)
	}

	docs := make([]*PactDocument, 0, len(links))
	for _, l := range links {
		doc, err := c.fetchPact(ctx, l.Href)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// PublishVerificationResults reports a verification outcome to href,
// the pact's pb:publish-verification-results link
func (c *Client) PublishVerificationResults(ctx context.Context, href string, results VerificationResults) error {
	if href == "" {
		return pkgerrors.NewValidationError("href", "pact has no verification results link")
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode verification results: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, c.resolve(href), data, nil); err != nil {
		return err
	}

	c.log.Info("verification results published",
		zap.Bool("success", results.Success),
		zap.String("provider_version", results.ProviderApplicationVersion),
	)
	return nil
}

func (c *Client) fetchPact(ctx context.Context, href string) (*PactDocument, error) {
	var res pactResource
	if err := c.do(ctx, http.MethodGet, c.resolve(href), nil, &res); err != nil {
		return nil, err
	}
	if err := res.Pact.Validate(); err != nil {
		return nil, fmt.Errorf("broker returned an invalid pact: %w", err)
	}

	doc := &PactDocument{Pact: &res.Pact}
	if links, err := decodeLinks(res.Links[relSelf]); err == nil && len(links) > 0 {
		doc.SelfURL = links[0].Href
	}
	if links, err := decodeLinks(res.Links[relPublishVerificationResults]); err == nil && len(links) > 0 {
		doc.VerificationResultsURL = links[0].Href
	}
	return doc, nil
}

// decodeLinks accepts a single HAL link or an array of links.
func decodeLinks(raw json.RawMessage) ([]Link, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var links []Link
		if err := json.Unmarshal(raw, &links); err != nil {
			return nil, err
		}
		return links, nil
	}
	var link Link
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, err
	}
	return []Link{link}, nil
}

func (c *Client) resolve(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.baseURL + "/" + strings.TrimLeft(href, "/")
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build broker request: %w", err)
	}
	req.Header.Set("Accept", halContentType+", application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.log.Debug("broker request", zap.String("method", method), zap.String("url", target))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewTransportError(method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.NewTransportError(method, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Method: method, URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return pkgerrors.NewDecodeError(resp.StatusCode, data, err)
	}
	return nil
}
