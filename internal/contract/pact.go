// Package contract implements consumer-driven contract testing over HTTP:
// a pact document model, a mock provider that consumer tests run against,
// and a verifier that replays recorded interactions against a real provider.
package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// SpecificationVersion is the pact specification version written to pact files
	SpecificationVersion = "4.0"
	// InteractionTypeHTTP is the V4 type of a synchronous HTTP interaction
	InteractionTypeHTTP = "Synchronous/HTTP"
)

// Pact is a contract between one consumer and one provider.
type Pact struct {
	Consumer     Pacticipant    `json:"consumer"`
	Provider     Pacticipant    `json:"provider"`
	Interactions []*Interaction `json:"interactions" validate:"min=1,dive,required"`
	Metadata     Metadata       `json:"metadata"`

	buildErrs []error
}

// Pacticipant names one side of a pact.
type Pacticipant struct {
	Name string `json:"name" validate:"required"`
}

// Metadata carries the pact specification details.
type Metadata struct {
	PactSpecification PactSpecification `json:"pactSpecification"`
}

// PactSpecification identifies the pact file format.
type PactSpecification struct {
	Version string `json:"version" validate:"required"`
}

// Interaction is one recorded request and the response the consumer expects for it.
type Interaction struct {
	Type           string          `json:"type"`
	Description    string          `json:"description" validate:"required"`
	ProviderStates []ProviderState `json:"providerStates,omitempty" validate:"dive"`
	Request        Request         `json:"request"`
	Response       Response        `json:"response"`
}

// ProviderState is a named precondition the provider must establish before an interaction.
type ProviderState struct {
	Name   string         `json:"name" validate:"required"`
	Params map[string]any `json:"params,omitempty"`
}

// Request is the expected shape of the consumer's request.
type Request struct {
	Method  string              `json:"method" validate:"required,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	Path    string              `json:"path" validate:"required,startswith=/"`
	Query   map[string][]string `json:"query,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    *Body               `json:"body,omitempty"`
}

// Response is the expected shape of the provider's response.
type Response struct {
	Status  int                 `json:"status" validate:"gte=100,lte=599"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    *Body               `json:"body,omitempty"`
}

// Body holds request or response content. JSON content is stored as an embedded
// JSON value, any other content as a JSON string.
type Body struct {
	Content     json.RawMessage `json:"content"`
	ContentType string          `json:"contentType,omitempty"`
	Encoded     bool            `json:"encoded"`
}

// NewJSONBody creates a JSON body from raw JSON text.
func NewJSONBody(raw []byte) (*Body, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("body is not valid JSON: %w", err)
	}
	return &Body{Content: buf.Bytes(), ContentType: "application/json"}, nil
}

// NewTextBody creates a body holding text of the given content type.
// An empty text describes an empty body.
func NewTextBody(text, contentType string) *Body {
	content, _ := json.Marshal(text)
	return &Body{Content: content, ContentType: contentType}
}

// IsJSON reports whether the body content type is JSON.
func (b *Body) IsJSON() bool {
	if b == nil {
		return false
	}
	return isJSONMediaType(b.ContentType)
}

// Bytes returns the body as it travels on the wire.
func (b *Body) Bytes() ([]byte, error) {
	if b == nil || len(b.Content) == 0 {
		return nil, nil
	}
	if b.IsJSON() {
		var buf bytes.Buffer
		if err := json.Compact(&buf, b.Content); err != nil {
			return nil, fmt.Errorf("body is not valid JSON: %w", err)
		}
		return buf.Bytes(), nil
	}

	var text string
	if err := json.Unmarshal(b.Content, &text); err != nil {
		return nil, fmt.Errorf("body content must be a string for %q: %w", b.ContentType, err)
	}
	return []byte(text), nil
}

func isJSONMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// NewPact creates an empty pact between consumer and provider.
func NewPact(consumer, provider string) *Pact {
	return &Pact{
		Consumer: Pacticipant{Name: consumer},
		Provider: Pacticipant{Name: provider},
		Metadata: Metadata{PactSpecification: PactSpecification{Version: SpecificationVersion}},
	}
}

// Validate reports errors recorded while building the pact and
// structural problems with the document.
func (p *Pact) Validate() error {
	errs := append([]error(nil), p.buildErrs...)
	if err := validator.New().Struct(p); err != nil {
		errs = append(errs, fmt.Errorf("invalid pact %s: %w", p.FileName(), err))
	}
	return errors.Join(errs...)
}

// FileName returns the conventional file name of the pact, "{consumer}-{provider}.json".
func (p *Pact) FileName() string {
	return fmt.Sprintf("%s-%s.json", p.Consumer.Name, p.Provider.Name)
}

// Marshal encodes the pact as indented JSON.
func (p *Pact) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode pact: %w", err)
	}
	return data, nil
}

// WritePact writes the pact into dir, replacing any previous file for the same
// consumer and provider, and returns the file path.
func (p *Pact) WritePact(dir string) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	data, err := p.Marshal()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create pact dir: %w", err)
	}

	path := filepath.Join(dir, p.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write pact file: %w", err)
	}
	return path, nil
}

// ParsePact decodes and validates a pact document.
func ParsePact(data []byte) (*Pact, error) {
	var p Pact
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pact: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReadPactFile loads a pact from a file.
func ReadPactFile(path string) (*Pact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pact file: %w", err)
	}
	p, err := ParsePact(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ReadPactDir loads every *.json pact in dir, ordered by file name.
func ReadPactDir(dir string) ([]*Pact, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list pact dir: %w", err)
	}
	sort.Strings(paths)

	pacts := make([]*Pact, 0, len(paths))
	for _, path := range paths {
		p, err := ReadPactFile(path)
		if err != nil {
			return nil, err
		}
		pacts = append(pacts, p)
	}
	return pacts, nil
}

// StateNames returns the names of the interaction's provider states.
func (i *Interaction) StateNames() []string {
	names := make([]string, len(i.ProviderStates))
	for idx, s := range i.ProviderStates {
		names[idx] = s.Name
	}
	return names
}
