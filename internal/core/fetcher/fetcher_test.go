package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/credential"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/hasher"
	"github.com/sysand-dev/sysand-go/internal/core/kpar"
	"github.com/sysand-dev/sysand-go/internal/core/model"
)

func testKpar(t *testing.T) []byte {
	t.Helper()
	content := []byte("package Demo;\n")
	infoJSON, err := model.EncodeJSON(model.Info{Name: "Demo", Version: "0.0.1", Usage: []model.Usage{}})
	require.NoError(t, err)
	metaJSON, err := model.EncodeJSON(model.Meta{
		Index:    map[string]string{"Demo": "Demo.sysml"},
		Checksum: map[string]model.Checksum{"Demo.sysml": {Value: hasher.SHA256Hex(content), Algorithm: model.AlgSHA256}},
	})
	require.NoError(t, err)
	data, err := kpar.Pack(map[string][]byte{
		".project.json": infoJSON,
		".meta.json":    metaJSON,
		"Demo.sysml":    content,
	}, kpar.PackOptions{})
	require.NoError(t, err)
	return data
}

func TestFetch_LocalDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))

	f := fetcher.New(t.TempDir(), nil)
	s, err := f.Fetch(context.Background(), fetcher.LocalDir(dir))
	require.NoError(t, err)

	data, err := s.Read(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestFetch_LocalKpar_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	kparPath := filepath.Join(dir, "demo.kpar")
	require.NoError(t, os.WriteFile(kparPath, testKpar(t), 0o644))

	f := fetcher.New(t.TempDir(), nil)
	s, err := f.Fetch(context.Background(), fetcher.LocalKpar(kparPath))
	require.NoError(t, err)

	data, err := s.Read(context.Background(), "Demo.sysml")
	require.NoError(t, err)
	assert.Equal(t, "package Demo;\n", string(data))
}

func TestFetch_RemoteKpar_VerifiesChecksum(t *testing.T) {
	t.Parallel()
	body := testKpar(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	f := fetcher.New(t.TempDir(), nil)
	f.Retry.MaxAttempts = 0

	good := &model.Checksum{Value: hasher.SHA256Hex(body), Algorithm: model.AlgSHA256}
	s, err := f.Fetch(context.Background(), fetcher.Descriptor{
		Kind: fetcher.KindRemoteKpar, URL: server.URL, ExpectedChecksum: good,
	})
	require.NoError(t, err)
	data, err := s.Read(context.Background(), "Demo.sysml")
	require.NoError(t, err)
	assert.Equal(t, "package Demo;\n", string(data))

	bad := &model.Checksum{Value: strings.Repeat("0", 64), Algorithm: model.AlgSHA256}
	_, err = f.Fetch(context.Background(), fetcher.Descriptor{
		Kind: fetcher.KindRemoteKpar, URL: server.URL, ExpectedChecksum: bad,
	})
	assert.Error(t, err)
}

func TestFetch_RemoteKpar_FailureLeavesNoScratchFile(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	workDir := t.TempDir()
	f := fetcher.New(workDir, nil)
	f.Retry.MaxAttempts = 0

	_, err := f.Fetch(context.Background(), fetcher.RemoteKpar(server.URL))
	require.Error(t, err)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed download must not leave a scratch file behind")
}

func TestFetch_RemoteDir_UsesCredentialOnRetry(t *testing.T) {
	t.Parallel()
	var sawAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("a.kpar\n"))
	}))
	defer server.Close()

	broker := credential.NewBroker([]string{
		"SYSAND_CRED_X=" + server.URL + "/**",
		"SYSAND_CRED_X_BASIC_USER=foo",
		"SYSAND_CRED_X_BASIC_PASS=bar",
	})
	f := fetcher.New(t.TempDir(), broker)
	f.Retry.MaxAttempts = 0

	s, err := f.Fetch(context.Background(), fetcher.RemoteDir(server.URL))
	require.NoError(t, err)

	keys, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.kpar"}, keys)
	require.Len(t, sawAuth, 2)
	assert.Empty(t, sawAuth[0])
	assert.Contains(t, sawAuth[1], "Basic")
}

func TestFetch_UnknownKindIsInvalid(t *testing.T) {
	t.Parallel()
	f := fetcher.New(t.TempDir(), nil)
	_, err := f.Fetch(context.Background(), fetcher.Descriptor{Kind: fetcher.Kind(99)})
	assert.Error(t, err)
}
