package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// StateHandler establishes (setup) or removes (teardown) a provider state.
type StateHandler func(ctx context.Context, setup bool, state ProviderState) error

// StateHandlers maps provider state names to their handlers.
type StateHandlers map[string]StateHandler

// Target is the provider under verification.
type Target interface {
	Do(req *http.Request) (*http.Response, error)
}

// HandlerTarget verifies an in-process http.Handler.
type HandlerTarget struct {
	Handler http.Handler
}

// Do serves req through the handler and returns the recorded response.
func (t HandlerTarget) Do(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.Handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

// HTTPTarget verifies a provider running at BaseURL.
type HTTPTarget struct {
	BaseURL string
	Client  *http.Client
}

// Do sends req to the provider, resolving its path against BaseURL.
func (t HTTPTarget) Do(req *http.Request) (*http.Response, error) {
	base, err := url.Parse(t.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider base url: %w", err)
	}

	out := req.Clone(req.Context())
	out.URL.Scheme = base.Scheme
	out.URL.Host = base.Host
	out.URL.Path = strings.TrimRight(base.Path, "/") + req.URL.Path
	out.Host = base.Host
	out.RequestURI = ""

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(out)
}

// VerifyRequest describes one verification run.
type VerifyRequest struct {
	// Provider is the expected provider name of every pact. Empty accepts any.
	Provider string
	Target   Target
	Pacts    []*Pact

	StateHandlers StateHandlers
	// StateChangeURL receives {state, params, action} for states without a handler.
	StateChangeURL string
	HTTPClient     *http.Client
}

// InteractionResult is the outcome of replaying one interaction.
type InteractionResult struct {
	Consumer    string
	Description string
	States      []string
	Mismatches  []Mismatch
}

// Passed reports whether the provider honoured the interaction.
func (r InteractionResult) Passed() bool {
	return len(r.Mismatches) == 0
}

// Result is the outcome of a verification run.
type Result struct {
	Provider     string
	Interactions []InteractionResult
}

// Passed reports whether every interaction passed.
func (r *Result) Passed() bool {
	for _, i := range r.Interactions {
		if !i.Passed() {
			return false
		}
	}
	return true
}

// Err summarises the failed interactions, or returns nil when all passed.
func (r *Result) Err() error {
	if r.Passed() {
		return nil
	}

	var b strings.Builder
	failed := 0
	for _, i := range r.Interactions {
		if i.Passed() {
			continue
		}
		failed++
		fmt.Fprintf(&b, "\n  %s: %q", i.Consumer, i.Description)
		for _, m := range i.Mismatches {
			fmt.Fprintf(&b, "\n    - %s", m)
		}
	}
	return fmt.Errorf("verification of %s failed for %d of %d interactions:%s", r.Provider, failed, len(r.Interactions), b.String())
}

// Verifier replays pact interactions against a provider.
type Verifier struct {
	log *zap.Logger
}

// NewVerifier creates a verifier.
func NewVerifier(log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{log: log}
}

// Verify replays every interaction of every pact. The returned error reports
// a run that could not be attempted; failed interactions are reported in the Result.
func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) (*Result, error) {
	if req.Target == nil {
		return nil, errors.New("verify: target is required")
	}
	if len(req.Pacts) == 0 {
		return nil, errors.New("verify: no pacts to verify")
	}

	result := &Result{Provider: req.Provider}
	for _, p := range req.Pacts {
		if req.Provider != "" && p.Provider.Name != req.Provider {
			return nil, fmt.Errorf("verify: pact %s is for provider %q, not %q", p.FileName(), p.Provider.Name, req.Provider)
		}
		if result.Provider == "" {
			result.Provider = p.Provider.Name
		}

		for _, i := range p.Interactions {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ir := v.verifyInteraction(ctx, req, p, i)
			result.Interactions = append(result.Interactions, ir)
		}
	}
	return result, nil
}

func (v *Verifier) verifyInteraction(ctx context.Context, req VerifyRequest, p *Pact, i *Interaction) InteractionResult {
	log := v.log.With(zap.String("consumer", p.Consumer.Name), zap.String("description", i.Description))
	ir := InteractionResult{
		Consumer:    p.Consumer.Name,
		Description: i.Description,
		States:      i.StateNames(),
	}

	var ready []ProviderState
	defer func() {
		for idx := len(ready) - 1; idx >= 0; idx-- {
			if err := v.changeState(ctx, req, false, ready[idx]); err != nil {
				log.Warn("provider state teardown failed", zap.String("state", ready[idx].Name), zap.Error(err))
			}
		}
	}()

	for _, s := range i.ProviderStates {
		if err := v.changeState(ctx, req, true, s); err != nil {
			ir.Mismatches = append(ir.Mismatches, Mismatch{MismatchState, fmt.Sprintf("state %q: %v", s.Name, err)})
			log.Warn("provider state setup failed", zap.String("state", s.Name), zap.Error(err))
			return ir
		}
		ready = append(ready, s)
	}

	ir.Mismatches = v.replay(ctx, req.Target, i)
	if ir.Passed() {
		log.Info("interaction verified")
	} else {
		log.Warn("interaction failed", zap.Int("mismatches", len(ir.Mismatches)))
	}
	return ir
}

func (v *Verifier) replay(ctx context.Context, target Target, i *Interaction) []Mismatch {
	httpReq, err := buildRequest(ctx, i.Request)
	if err != nil {
		return []Mismatch{{MismatchRequest, err.Error()}}
	}

	resp, err := target.Do(httpReq)
	if err != nil {
		return []Mismatch{{MismatchRequest, fmt.Sprintf("request failed: %v", err)}}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []Mismatch{{MismatchRequest, fmt.Sprintf("failed to read response body: %v", err)}}
	}
	return compareResponse(i.Response, resp.StatusCode, resp.Header, body)
}

func buildRequest(ctx context.Context, r Request) (*http.Request, error) {
	data, err := r.Body.Bytes()
	if err != nil {
		return nil, err
	}

	u := url.URL{Scheme: "http", Host: "provider", Path: r.Path}
	if len(r.Query) > 0 {
		u.RawQuery = url.Values(r.Query).Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for name, values := range r.Headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if len(data) > 0 && req.Header.Get("Content-Type") == "" && r.Body.ContentType != "" {
		req.Header.Set("Content-Type", r.Body.ContentType)
	}
	return req, nil
}

type stateChange struct {
	State  string         `json:"state"`
	Params map[string]any `json:"params,omitempty"`
	Action string         `json:"action"`
}

func (v *Verifier) changeState(ctx context.Context, req VerifyRequest, setup bool, state ProviderState) error {
	if h, ok := req.StateHandlers[state.Name]; ok {
		return h(ctx, setup, state)
	}
	if req.StateChangeURL == "" {
		if !setup {
			return nil
		}
		return fmt.Errorf("no handler registered for provider state %q", state.Name)
	}

	action := "setup"
	if !setup {
		action = "teardown"
	}
	payload, err := json.Marshal(stateChange{State: state.Name, Params: state.Params, Action: action})
	if err != nil {
		return fmt.Errorf("failed to encode state change: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.StateChangeURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build state change request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := req.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("state change request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("state change returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
