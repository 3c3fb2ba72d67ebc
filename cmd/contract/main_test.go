package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"user-contract-service/internal/adapter/db/memory"
	"user-contract-service/internal/adapter/gin/handler"
	"user-contract-service/internal/adapter/gin/router"
	"user-contract-service/internal/adapter/pactstate"
	"user-contract-service/internal/contract"
	"user-contract-service/internal/contract/broker"
	"user-contract-service/internal/domain/user"
	"user-contract-service/internal/pactfixture"
	usecase "user-contract-service/internal/usecase/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
}

func startProvider(t *testing.T, users []user.User) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	repo := memory.NewUserRepo(users)
	userHandler := handler.NewUserHandler(usecase.New(repo, log), log)
	stateHandler := handler.NewProviderStateHandler(pactstate.Handlers(repo, log), log)

	srv := httptest.NewServer(router.SetupRouter(userHandler, stateHandler, "user-provider", log))
	t.Cleanup(srv.Close)
	return srv
}

func writeFixture(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path, err := pactfixture.NewUserPact().WritePact(dir)
	require.NoError(t, err)
	return dir, path
}

func TestVerify_PactFile(t *testing.T) {
	setEnv(t)
	_, path := writeFixture(t)

	t.Run("provider honours the pact", func(t *testing.T) {
		srv := startProvider(t, user.SeedUsers())
		var out bytes.Buffer
		require.NoError(t, run(context.Background(), []string{"verify", "--provider-base-url", srv.URL, "--pact-file", path}, &out))
		assert.Contains(t, out.String(), "OK UserConsumer: a request to get user by id")
	})

	t.Run("provider without the state", func(t *testing.T) {
		srv := startProvider(t, []user.User{{ID: 2, Name: "Jane Smith", Email: "jane.smith@example.com"}})
		var out bytes.Buffer
		err := run(context.Background(), []string{"verify", "--provider-base-url", srv.URL, "--pact-file", path}, &out)
		require.Error(t, err)
		assert.Contains(t, out.String(), "FAILED")
	})
}

func TestPublish(t *testing.T) {
	setEnv(t)
	dir, _ := writeFixture(t)

	var (
		mu    sync.Mutex
		paths []string
	)
	brokerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, pass, _ := r.BasicAuth()
		if name != "pact" || pass != "pact" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer brokerSrv.Close()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"publish", "--dir", dir, "--version", "2.0.0", "--broker-url", brokerSrv.URL}, &out))

	assert.Equal(t, []string{"PUT /pacts/provider/UserProvider/consumer/UserConsumer/version/2.0.0"}, paths)
	assert.Contains(t, out.String(), "published UserConsumer-UserProvider.json")
}

func TestPublish_EmptyDir(t *testing.T) {
	setEnv(t)
	err := run(context.Background(), []string{"publish", "--dir", t.TempDir()}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pact files")
}

func TestVerify_EmptyProviderBaseURL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte("PACT_PROVIDER_BASE_URL=\n"), 0o600))
	t.Setenv("CONFIG_PATH", dir)
	t.Setenv("LOG_LEVEL", "error")

	err := run(context.Background(), []string{"verify"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pact.ProviderBaseURL is required")
}

// fakeBroker serves the given pacts for UserProvider and records verification results.
func fakeBroker(t *testing.T, pacts ...*contract.Pact) (*httptest.Server, *[]broker.VerificationResults) {
	t.Helper()
	var (
		mu      sync.Mutex
		results []broker.VerificationResults
	)

	mux := http.NewServeMux()
	links := make([]map[string]string, 0, len(pacts))
	for i, p := range pacts {
		href := fmt.Sprintf("/pacts/provider/UserProvider/consumer/%s/version/%d", p.Consumer.Name, i)
		links = append(links, map[string]string{"href": href})

		data, err := json.Marshal(p)
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		doc["_links"] = map[string]any{
			"self":                             map[string]string{"href": href},
			"pb:publish-verification-results": map[string]string{"href": href + "/verification-results"},
		}

		mux.HandleFunc("GET "+href, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/hal+json")
			_ = json.NewEncoder(w).Encode(doc)
		})
		mux.HandleFunc("POST "+href+"/verification-results", func(w http.ResponseWriter, r *http.Request) {
			var res broker.VerificationResults
			if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		})
	}
	mux.HandleFunc("GET /pacts/provider/UserProvider/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/hal+json")
		_ = json.NewEncoder(w).Encode(map[string]any{"_links": map[string]any{"pb:pacts": links}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &results
}

func TestVerify_Broker(t *testing.T) {
	setEnv(t)

	t.Run("publishes results", func(t *testing.T) {
		brokerSrv, results := fakeBroker(t, pactfixture.NewUserPact())
		provider := startProvider(t, user.SeedUsers())

		var out bytes.Buffer
		require.NoError(t, run(context.Background(), []string{
			"verify", "--provider-base-url", provider.URL, "--broker-url", brokerSrv.URL,
			"--provider-version", "3.1.0", "--publish",
		}, &out))

		assert.Contains(t, out.String(), "OK UserConsumer: a request to get user by id")
		assert.Equal(t, []broker.VerificationResults{{Success: true, ProviderApplicationVersion: "3.1.0"}}, *results)
	})

	t.Run("no pacts", func(t *testing.T) {
		brokerSrv, _ := fakeBroker(t)
		provider := startProvider(t, user.SeedUsers())

		err := run(context.Background(), []string{"verify", "--provider-base-url", provider.URL, "--broker-url", brokerSrv.URL}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no pacts found for UserProvider")
	})
}

func TestRun_Commands(t *testing.T) {
	setEnv(t)

	require.Error(t, run(context.Background(), nil, &bytes.Buffer{}))
	require.Error(t, run(context.Background(), []string{"deploy"}, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"help"}, &out))
	assert.Contains(t, out.String(), "publish")
}
