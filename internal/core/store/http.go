package store

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// HTTP is a read-only Store backed by a URL prefix: keys become URL
// path suffixes. List requires the server to expose an "entries.txt"
// manifest (see internal/core/index); without one, List fails rather
// than attempting directory autoindex scraping, since the pack shows
// no HTML-scraping library to ground that on.
type HTTP struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTP(baseURL string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: client}
}

func (s *HTTP) url(key string) string { return s.BaseURL + "/" + key }

func (s *HTTP) Exists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.BaseURL+"/", nil)
	if err != nil {
		return false, errs.New(errs.Network, s.BaseURL, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return false, errs.New(errs.Network, s.BaseURL, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400, nil
}

func (s *HTTP) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	u := s.url(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errs.New(errs.Network, u, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errs.New(errs.Network, u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.Network, u, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return ReadAll(resp.Body)
}

func (s *HTTP) Write(ctx context.Context, key string, data []byte) error {
	return errs.New(errs.IO, key, ErrReadOnly)
}

func (s *HTTP) Remove(ctx context.Context, key string) error {
	return errs.New(errs.IO, key, ErrReadOnly)
}

// List fetches "<base>/entries.txt" and treats each non-empty line as
// a key. This matches the environment/index manifest format of
// spec.md §4.6, which is the only manifest shape an HTTP store is
// required to honour.
func (s *HTTP) List(ctx context.Context) ([]string, error) {
	data, err := s.Read(ctx, "entries.txt")
	if err != nil {
		return nil, err
	}
	var keys []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			keys = append(keys, line)
		}
	}
	return SortedKeys(keys), nil
}

func (s *HTTP) ReadOnly() bool { return true }

func (s *HTTP) Close() error { return nil }

var _ Store = (*HTTP)(nil)
