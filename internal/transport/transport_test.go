package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopress/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "  "})
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	c, err := New(Config{BaseURL: "https://blog.example.com/wp"})
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/wp/api/posts?slug=hello", c.URL("api/posts", url.Values{"slug": {"hello"}}))
}

func TestGet_DecodesJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "go", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`[{"id":1,"name":"Go"}]`))
	}, time.Second)

	var out []models.CategoryRecord
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	require.NoError(t, c.Get(context.Background(), "api/categories", url.Values{"search": {"go"}}, h, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Go", out[0].Name)
}

func TestPost_SendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Travel", body["name"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":5}`))
	}, time.Second)

	var out struct{ ID int64 }
	require.NoError(t, c.Post(context.Background(), "api/categories", map[string]string{"name": "Travel"}, nil, &out))
	assert.Equal(t, int64(5), out.ID)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"rest_forbidden"}`, http.StatusForbidden)
	}, time.Second)

	err := c.Get(context.Background(), "api/posts", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, `{"code":"rest_forbidden"}`, se.Body)
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}, time.Second)

	var out map[string]any
	err := c.Get(context.Background(), "api/posts", nil, nil, &out)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Body, "not json")
}

func TestTimeoutIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 20*time.Millisecond)

	err := c.Get(context.Background(), "api/posts", nil, nil, nil)
	var te *models.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodGet, te.Op)
}
