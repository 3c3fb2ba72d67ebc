package broker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"user-contract-service/internal/contract"
	pkgerrors "user-contract-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testPact() *contract.Pact {
	p := contract.NewPact("UserConsumer", "UserProvider")
	p.AddInteraction().
		Given("user with id 1 exists").
		UponReceiving("a request to get user by id").
		WithRequest(http.MethodGet, "/users/1").
		WillRespondWith(http.StatusOK).
		WithHeader("Content-Type", "application/json").
		WithJSONBody(`{"id":1,"name":"John Doe","email":"john.doe@example.com"}`)
	return p
}

type fakeBroker struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	published map[string][]byte
	results   []VerificationResults
}

func newFakeBroker(t *testing.T) *fakeBroker {
	fb := &fakeBroker{t: t, published: make(map[string][]byte)}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /pacts/provider/{provider}/consumer/{consumer}/version/{version}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.published[r.PathValue("consumer")] = body
		fb.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /pacts/provider/{provider}/consumer/{consumer}/latest", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		body, ok := fb.published[r.PathValue("consumer")]
		fb.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}

		var doc map[string]any
		require.NoError(t, json.Unmarshal(body, &doc))
		doc["_links"] = map[string]any{
			"self":                            map[string]string{"href": fb.srv.URL + r.URL.Path},
			"pb:publish-verification-results": map[string]string{"href": "/pacts/provider/UserProvider/verification-results"},
		}
		w.Header().Set("Content-Type", "application/hal+json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("GET /pacts/provider/{provider}/latest", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		links := make([]map[string]string, 0, len(fb.published))
		for consumer := range fb.published {
			links = append(links, map[string]string{
				"href": fb.srv.URL + "/pacts/provider/" + r.PathValue("provider") + "/consumer/" + consumer + "/latest",
				"name": consumer,
			})
		}
		fb.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"_links": map[string]any{"pb:pacts": links}})
	})
	mux.HandleFunc("POST /pacts/provider/{provider}/verification-results", func(w http.ResponseWriter, r *http.Request) {
		var res VerificationResults
		if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fb.mu.Lock()
		fb.results = append(fb.results, res)
		fb.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})

	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "pact" || pass != "pact" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	fb.srv = httptest.NewServer(auth(mux))
	t.Cleanup(fb.srv.Close)
	return fb
}

func newTestClient(t *testing.T, baseURL, user, pass string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, Username: user, Password: pass}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestPublishAndFetch(t *testing.T) {
	fb := newFakeBroker(t)
	c := newTestClient(t, fb.srv.URL+"/", "pact", "pact")
	ctx := context.Background()

	require.NoError(t, c.PublishPact(ctx, testPact(), "1.0.0"))

	doc, err := c.LatestPact(ctx, "UserProvider", "UserConsumer")
	require.NoError(t, err)
	assert.Equal(t, "UserConsumer", doc.Pact.Consumer.Name)
	assert.Equal(t, "a request to get user by id", doc.Pact.Interactions[0].Description)
	assert.Equal(t, "/pacts/provider/UserProvider/verification-results", doc.VerificationResultsURL)
	assert.Contains(t, doc.SelfURL, "/consumer/UserConsumer/latest")

	require.NoError(t, c.PublishVerificationResults(ctx, doc.VerificationResultsURL, VerificationResults{
		Success:                    true,
		ProviderApplicationVersion: "2.0.0",
	}))
	require.Len(t, fb.results, 1)
	assert.Equal(t, VerificationResults{Success: true, ProviderApplicationVersion: "2.0.0"}, fb.results[0])
}

func TestLatestPactsForProvider(t *testing.T) {
	fb := newFakeBroker(t)
	c := newTestClient(t, fb.srv.URL, "pact", "pact")
	ctx := context.Background()

	docs, err := c.LatestPactsForProvider(ctx, "UserProvider")
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, c.PublishPact(ctx, testPact(), "1.0.0"))

	docs, err = c.LatestPactsForProvider(ctx, "UserProvider")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "UserProvider", docs[0].Pact.Provider.Name)
}

func TestErrors(t *testing.T) {
	fb := newFakeBroker(t)
	ctx := context.Background()

	t.Run("bad credentials", func(t *testing.T) {
		c := newTestClient(t, fb.srv.URL, "pact", "wrong")
		err := c.PublishPact(ctx, testPact(), "1.0.0")

		var be *Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, http.StatusUnauthorized, be.StatusCode)
		assert.Equal(t, http.MethodPut, be.Method)
	})

	t.Run("unknown pact", func(t *testing.T) {
		c := newTestClient(t, fb.srv.URL, "pact", "pact")
		_, err := c.LatestPact(ctx, "UserProvider", "Nobody")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing version", func(t *testing.T) {
		c := newTestClient(t, fb.srv.URL, "pact", "pact")
		require.Error(t, c.PublishPact(ctx, testPact(), ""))
	})

	t.Run("missing verification link", func(t *testing.T) {
		c := newTestClient(t, fb.srv.URL, "pact", "pact")
		require.Error(t, c.PublishVerificationResults(ctx, "", VerificationResults{}))
	})

	t.Run("unreachable broker", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := newTestClient(t, url, "pact", "pact")
		_, err := c.LatestPact(ctx, "UserProvider", "UserConsumer")
		assert.True(t, pkgerrors.IsTransport(err))
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := NewClient(Config{BaseURL: "not a url"}, nil)
		require.Error(t, err)
	})
}

func TestDecodeLinks(t *testing.T) {
	links, err := decodeLinks(json.RawMessage(`{"href":"/a"}`))
	require.NoError(t, err)
	assert.Equal(t, []Link{{Href: "/a"}}, links)

	links, err = decodeLinks(json.RawMessage(`[{"href":"/a"},{"href":"/b","name":"B"}]`))
	require.NoError(t, err)
	assert.Len(t, links, 2)

	links, err = decodeLinks(nil)
	require.NoError(t, err)
	assert.Empty(t, links)
}
