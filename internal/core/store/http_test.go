package store_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/store"
)

func TestHTTP_ReadAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entries.txt":
			_, _ = w.Write([]byte("urn:kpar:a 1.0.0 abc123\n"))
		case "/.project.json":
			_, _ = w.Write([]byte(`{"name":"a"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	s := store.NewHTTP(server.URL, nil)

	data, err := s.Read(ctx, ".project.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a"}`, string(data))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:kpar:a 1.0.0 abc123"}, keys)
}

func TestHTTP_WriteFails(t *testing.T) {
	t.Parallel()
	s := store.NewHTTP("http://example.invalid", nil)
	err := s.Write(context.Background(), "x", []byte("y"))
	require.Error(t, err)
	assert.True(t, s.ReadOnly())
}

func TestHTTP_NotFoundIsNetworkError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := store.NewHTTP(server.URL, nil)
	_, err := s.Read(context.Background(), "missing.kpar")
	require.Error(t, err)
}
