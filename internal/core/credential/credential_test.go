package credential_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/credential"
)

func TestMatch_Wildcards(t *testing.T) {
	t.Parallel()
	assert.True(t, credential.Match("https://*.example.com/**", "https://a.example.com/p.kpar"))
	assert.True(t, credential.Match("https://*.example.com/**", "https://a.example.com/deep/nested/p.kpar"))
	assert.False(t, credential.Match("https://*.example.com/**", "https://other.net/p.kpar"))
	assert.True(t, credential.Match("https://host/?.kpar", "https://host/a.kpar"))
	assert.False(t, credential.Match("https://host/?.kpar", "https://host/ab.kpar"))
}

func TestMatch_StarDoesNotCrossSlash(t *testing.T) {
	t.Parallel()
	assert.False(t, credential.Match("https://example.com/*", "https://example.com/a/b"))
	assert.True(t, credential.Match("https://example.com/*", "https://example.com/a"))
}

func TestNewBroker_ParsesEnvFamily(t *testing.T) {
	t.Parallel()
	b := credential.NewBroker([]string{
		"SYSAND_CRED_X=https://*.example.com/**",
		"SYSAND_CRED_X_BASIC_USER=foo",
		"SYSAND_CRED_X_BASIC_PASS=bar",
		"UNRELATED=ignored",
	})

	matches := b.Matching("https://a.example.com/p.kpar")
	require.Len(t, matches, 1)
	assert.Equal(t, "foo", matches[0].BasicUser)
	assert.Equal(t, "bar", matches[0].BasicPass)

	assert.Empty(t, b.Matching("https://other.net/"))
}

func TestBroker_Do_RetriesOnlyOn4xx(t *testing.T) {
	t.Parallel()
	var sawAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := credential.NewBroker([]string{
		"SYSAND_CRED_X=" + server.URL + "/**",
		"SYSAND_CRED_X_BASIC_USER=foo",
		"SYSAND_CRED_X_BASIC_PASS=bar",
	})

	resp, err := b.Do(context.Background(), http.DefaultClient, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/p.kpar", nil)
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, sawAuth, 2)
	assert.Empty(t, sawAuth[0], "first attempt must be unauthenticated")
	assert.Contains(t, sawAuth[1], "Basic")
}

func TestBroker_Do_NeverSendsCredentialToNonMatchingHost(t *testing.T) {
	t.Parallel()
	var sawAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	b := credential.NewBroker([]string{
		"SYSAND_CRED_X=https://totally-different.example.com/**",
		"SYSAND_CRED_X_BASIC_USER=foo",
		"SYSAND_CRED_X_BASIC_PASS=bar",
	})

	resp, err := b.Do(context.Background(), http.DefaultClient, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/p.kpar", nil)
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, sawAuth)
}
