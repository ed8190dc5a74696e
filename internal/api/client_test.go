package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListDataSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/platforms/github/data-sources", r.URL.Path)
		assert.Equal(t, "Bearer api-token", r.Header.Get("Authorization"))
		assert.Equal(t, "platform-token", r.Header.Get("X-Platform-Token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data_sources":[{"id":"repo-1","name":"keepvault/api","kind":"repository","size_bytes":2048},{"id":"repo-2","name":"keepvault/web","kind":"repository"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "api-token")
	sources, err := c.ListDataSources(context.Background(), "github", "platform-token")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, DataSource{ID: "repo-1", Name: "keepvault/api", Kind: "repository", SizeBytes: 2048}, sources[0])
}

func TestClient_BaseURLWithPathPrefix(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data_sources":[]}`))
	}))
	defer srv.Close()

	for _, base := range []string{srv.URL + "/backup", srv.URL + "/backup/"} {
		_, err := NewClient(base, "api-token").ListDataSources(context.Background(), "slack", "tok")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"/backup/v1/platforms/slack/data-sources", "/backup/v1/platforms/slack/data-sources"}, paths)
}

func TestClient_CreateSource(t *testing.T) {
	var got CreateSourceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sources", r.URL.Path)
		assert.Equal(t, "session-xyz", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"src_1","name":"Engineering GitHub","platform":"github","schedule":"daily","retention_days":30,"encrypted":true,"created_at":"2026-03-01T09:00:00Z"}`))
	}))
	defer srv.Close()

	req := CreateSourceRequest{
		Name:          "Engineering GitHub",
		Platform:      "github",
		AccessToken:   "tok",
		DataSourceIDs: []string{"repo-1"},
		Schedule:      "daily",
		RetentionDays: 30,
		Encrypted:     true,
	}
	src, err := NewClient(srv.URL, "api-token").CreateSource(context.Background(), req, "session-xyz")
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.Equal(t, "src_1", src.ID)
	assert.True(t, src.CreatedAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantErr     error
		wantMessage string
	}{
		{"unauthorized", http.StatusUnauthorized, "application/json", `{"error":"bad token"}`, ErrUnauthorized, ""},
		{"forbidden", http.StatusForbidden, "text/plain", "no", ErrUnauthorized, ""},
		{"json error", http.StatusConflict, "application/json", `{"error":"source name already exists"}`, nil, "source name already exists"},
		{"plain error", http.StatusBadGateway, "text/plain", "upstream unavailable\n", nil, "upstream unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "t").CreateSource(context.Background(), CreateSourceRequest{Name: "x"}, "")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, err.Error())
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "t", WithTimeout(20*time.Millisecond)).ListDataSources(context.Background(), "slack", "x")
	require.Error(t, err)
}
