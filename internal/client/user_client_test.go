package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "user-contract-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetUserByID_Success(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":1,"name":"John Doe","email":"john.doe@example.com"}`))
	}))
	defer srv.Close()

	c := NewUserClient(srv.URL+"/", zaptest.NewLogger(t))
	u, err := c.GetUserByID(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "/users/1", gotPath)
	assert.Equal(t, &User{ID: 1, Name: "John Doe", Email: "john.doe@example.com"}, u)
}

func TestGetUserByID_ParsesRegardlessOfStatus(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, `{"id":2,"name":"Jane Smith","email":"jane.smith@example.com"}`)

	u, err := NewUserClient(srv.URL, zaptest.NewLogger(t)).GetUserByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", u.Name)
}

func TestGetUserByID_UnknownFieldsIgnored(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"id":1,"name":"John Doe","email":"john.doe@example.com","role":"admin"}`)

	u, err := NewUserClient(srv.URL, zaptest.NewLogger(t)).GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
}

func TestGetUserByID_EmptyNotFound(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "")

	_, err := NewUserClient(srv.URL, zaptest.NewLogger(t)).GetUserByID(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDecode(err))

	var de *pkgerrors.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusNotFound, de.StatusCode)
}

func TestGetUserByID_MalformedJSON(t *testing.T) {
	for _, body := range []string{`{"id":`, `<html></html>`, `{"id":"one"}`} {
		t.Run(body, func(t *testing.T) {
			srv := serve(t, http.StatusOK, body)
			_, err := NewUserClient(srv.URL, zaptest.NewLogger(t)).GetUserByID(context.Background(), 1)
			assert.True(t, pkgerrors.IsDecode(err), "got %v", err)
		})
	}
}

func TestGetUserByID_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewUserClient(url, zaptest.NewLogger(t)).GetUserByID(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransport(err))
	assert.False(t, pkgerrors.IsDecode(err))
}

func TestGetUserByID_RoundTrip(t *testing.T) {
	users := []User{
		{ID: 1, Name: "John Doe", Email: "john.doe@example.com"},
		{ID: 42, Name: "Zoë \"Z\" Ångström", Email: "zoe+test@example.org"},
		{ID: -3, Name: "", Email: ""},
	}

	for _, want := range users {
		t.Run(fmt.Sprint(want.ID), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, fmt.Sprintf("/users/%d", want.ID), r.URL.Path)
				_, _ = fmt.Fprintf(w, `{"id":%d,"name":%q,"email":%q}`, want.ID, want.Name, want.Email)
			}))
			defer srv.Close()

			got, err := NewUserClient(srv.URL, zaptest.NewLogger(t)).GetUserByID(context.Background(), want.ID)
			require.NoError(t, err)
			assert.Equal(t, want, *got)
		})
	}
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{}
	c := NewUserClient("http://example.invalid", nil, WithHTTPClient(hc))
	assert.Same(t, hc, c.httpClient)
}
