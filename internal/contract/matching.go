package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// MismatchKind classifies a difference between an expectation and what was observed.
type MismatchKind string

const (
	MismatchMethod  MismatchKind = "method"
	MismatchPath    MismatchKind = "path"
	MismatchQuery   MismatchKind = "query"
	MismatchStatus  MismatchKind = "status"
	MismatchHeader  MismatchKind = "header"
	MismatchBody    MismatchKind = "body"
	MismatchState   MismatchKind = "state"
	MismatchRequest MismatchKind = "request"
)

// Mismatch is one difference found while matching a request or a response.
type Mismatch struct {
	Kind    MismatchKind `json:"kind"`
	Message string       `json:"message"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s", m.Kind, m.Message)
}

func compareRequest(expected Request, r *http.Request, body []byte) []Mismatch {
	var mismatches []Mismatch
	if !strings.EqualFold(expected.Method, r.Method) {
		mismatches = append(mismatches, Mismatch{MismatchMethod, fmt.Sprintf("expected %s, got %s", expected.Method, r.Method)})
	}
	if expected.Path != r.URL.Path {
		mismatches = append(mismatches, Mismatch{MismatchPath, fmt.Sprintf("expected %s, got %s", expected.Path, r.URL.Path)})
	}

	query := map[string][]string(r.URL.Query())
	if diff := cmp.Diff(expected.Query, query, cmpopts.EquateEmpty()); diff != "" {
		mismatches = append(mismatches, Mismatch{MismatchQuery, "query mismatch (-expected +actual):\n" + diff})
	}

	mismatches = append(mismatches, compareHeaders(expected.Headers, r.Header)...)
	mismatches = append(mismatches, compareBody(expected.Body, body)...)
	return mismatches
}

func compareResponse(expected Response, status int, header http.Header, body []byte) []Mismatch {
	var mismatches []Mismatch
	if expected.Status != status {
		mismatches = append(mismatches, Mismatch{MismatchStatus, fmt.Sprintf("expected %d, got %d", expected.Status, status)})
	}
	mismatches = append(mismatches, compareHeaders(expected.Headers, header)...)
	mismatches = append(mismatches, compareBody(expected.Body, body)...)
	return mismatches
}

// compareHeaders checks that every expected header is present. Extra actual headers are allowed.
func compareHeaders(expected map[string][]string, actual http.Header) []Mismatch {
	var mismatches []Mismatch
	for name, want := range expected {
		got := actual.Values(name)
		if len(got) == 0 {
			mismatches = append(mismatches, Mismatch{MismatchHeader, fmt.Sprintf("missing header %s", name)})
			continue
		}

		if http.CanonicalHeaderKey(name) == "Content-Type" {
			if len(want) > 0 && !sameMediaType(want[0], got[0]) {
				mismatches = append(mismatches, Mismatch{MismatchHeader, fmt.Sprintf("expected Content-Type %q, got %q", want[0], got[0])})
			}
			continue
		}

		if w, g := joinHeaderValues(want), joinHeaderValues(got); w != g {
			mismatches = append(mismatches, Mismatch{MismatchHeader, fmt.Sprintf("expected %s %q, got %q", name, w, g)})
		}
	}
	return mismatches
}

func joinHeaderValues(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ",")
}

// sameMediaType reports whether actual has the expected media type and carries
// every parameter the expectation names.
func sameMediaType(expected, actual string) bool {
	wantType, wantParams, err := mime.ParseMediaType(expected)
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(actual))
	}
	gotType, gotParams, err := mime.ParseMediaType(actual)
	if err != nil || wantType != gotType {
		return false
	}
	for k, v := range wantParams {
		if !strings.EqualFold(gotParams[k], v) {
			return false
		}
	}
	return true
}

// compareBody matches an actual body against the expectation. A nil expectation
// is not checked. JSON expectations must be structurally equal to the actual body.
func compareBody(expected *Body, actual []byte) []Mismatch {
	if expected == nil {
		return nil
	}
	want, err := expected.Bytes()
	if err != nil {
		return []Mismatch{{MismatchBody, err.Error()}}
	}

	if len(want) == 0 {
		if len(actual) != 0 {
			return []Mismatch{{MismatchBody, fmt.Sprintf("expected an empty body, got %d bytes", len(actual))}}
		}
		return nil
	}

	if !expected.IsJSON() {
		if !bytes.Equal(want, actual) {
			return []Mismatch{{MismatchBody, fmt.Sprintf("expected %q, got %q", want, actual)}}
		}
		return nil
	}

	wantValue, err := decodeJSON(want)
	if err != nil {
		return []Mismatch{{MismatchBody, fmt.Sprintf("expected body is not valid JSON: %v", err)}}
	}
	gotValue, err := decodeJSON(actual)
	if err != nil {
		return []Mismatch{{MismatchBody, fmt.Sprintf("actual body is not valid JSON: %v", err)}}
	}
	if diff := cmp.Diff(wantValue, gotValue); diff != "" {
		return []Mismatch{{MismatchBody, "body mismatch (-expected +actual):\n" + diff}}
	}
	return nil
}

// decodeJSON keeps numbers as their literal text so large integers are not
// rounded through float64.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}
