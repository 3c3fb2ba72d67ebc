package contract

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// InteractionBuilder describes one interaction of a pact with a fluent API:
//
//	pact.AddInteraction().
//		Given("user with id 1 exists").
//		UponReceiving("a request to get user by id").
//		WithRequest(http.MethodGet, "/users/1").
//		WillRespondWith(http.StatusOK).
//		WithHeader("Content-Type", "application/json").
//		WithJSONBody(`{"id": 1}`)
//
// Errors are recorded on the pact and reported by Pact.Validate.
type InteractionBuilder struct {
	pact        *Pact
	interaction *Interaction
}

// AddInteraction appends a new interaction to the pact and returns its builder.
func (p *Pact) AddInteraction() *InteractionBuilder {
	i := &Interaction{Type: InteractionTypeHTTP}
	p.Interactions = append(p.Interactions, i)
	return &InteractionBuilder{pact: p, interaction: i}
}

// Given adds a provider state the interaction depends on.
func (b *InteractionBuilder) Given(state string) *InteractionBuilder {
	return b.GivenWithParams(state, nil)
}

// GivenWithParams adds a provider state with parameters.
func (b *InteractionBuilder) GivenWithParams(state string, params map[string]any) *InteractionBuilder {
	b.interaction.ProviderStates = append(b.interaction.ProviderStates, ProviderState{Name: state, Params: params})
	return b
}

// UponReceiving sets the interaction description.
func (b *InteractionBuilder) UponReceiving(description string) *InteractionBuilder {
	b.interaction.Description = description
	return b
}

// WithRequest sets the request method and path.
func (b *InteractionBuilder) WithRequest(method, path string) *InteractionBuilder {
	b.interaction.Request.Method = strings.ToUpper(method)
	b.interaction.Request.Path = path
	return b
}

// WithQuery adds expected query parameter values.
func (b *InteractionBuilder) WithQuery(key string, values ...string) *InteractionBuilder {
	if b.interaction.Request.Query == nil {
		b.interaction.Request.Query = make(map[string][]string)
	}
	b.interaction.Request.Query[key] = append(b.interaction.Request.Query[key], values...)
	return b
}

// WithRequestHeader adds an expected request header.
func (b *InteractionBuilder) WithRequestHeader(name string, values ...string) *InteractionBuilder {
	b.interaction.Request.Headers = addHeader(b.interaction.Request.Headers, name, values)
	return b
}

// WithRequestJSONBody sets the expected request body.
func (b *InteractionBuilder) WithRequestJSONBody(body any) *InteractionBuilder {
	b.interaction.Request.Body = b.jsonBody("request", body)
	return b
}

// WillRespondWith sets the expected response status.
func (b *InteractionBuilder) WillRespondWith(status int) *InteractionBuilder {
	b.interaction.Response.Status = status
	return b
}

// WithHeader adds an expected response header.
func (b *InteractionBuilder) WithHeader(name string, values ...string) *InteractionBuilder {
	b.interaction.Response.Headers = addHeader(b.interaction.Response.Headers, name, values)
	return b
}

// WithJSONBody sets the expected response body. Strings, byte slices and
// json.RawMessage are taken as JSON text; anything else is marshalled.
func (b *InteractionBuilder) WithJSONBody(body any) *InteractionBuilder {
	b.interaction.Response.Body = b.jsonBody("response", body)
	return b
}

// WithEmptyBody expects the response to carry no body at all.
func (b *InteractionBuilder) WithEmptyBody() *InteractionBuilder {
	b.interaction.Response.Body = NewTextBody("", "")
	return b
}

// Interaction returns the interaction being built.
func (b *InteractionBuilder) Interaction() *Interaction {
	return b.interaction
}

func (b *InteractionBuilder) jsonBody(side string, body any) *Body {
	var raw []byte
	switch v := body.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			b.fail(fmt.Errorf("%s body: %w", side, err))
			return nil
		}
		raw = data
	}

	out, err := NewJSONBody(raw)
	if err != nil {
		b.fail(fmt.Errorf("%s body: %w", side, err))
		return nil
	}
	return out
}

func (b *InteractionBuilder) fail(err error) {
	b.pact.buildErrs = append(b.pact.buildErrs, fmt.Errorf("interaction %q: %w", b.interaction.Description, err))
}

func addHeader(headers map[string][]string, name string, values []string) map[string][]string {
	if headers == nil {
		headers = make(map[string][]string)
	}
	key := http.CanonicalHeaderKey(name)
	headers[key] = append(headers[key], values...)
	return headers
}
