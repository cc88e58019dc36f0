// Package index implements the client half of spec.md §4.6: an index
// is just an HTTP-exposed environment directory, listed via
// "<index>/entries.txt" and fetched via the fetcher's IndexLookup
// descriptor.
package index

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// Entry is one line of an index's entries.txt manifest: "iri<SP>version<SP>digest".
type Entry struct {
	IRI     string
	Version string
	Digest  string
}

// Client lists and resolves entries published at an index URL.
type Client struct {
	URL  string
	HTTP *http.Client
}

func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{URL: strings.TrimSuffix(url, "/"), HTTP: httpClient}
}

// List fetches and parses "<index>/entries.txt".
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/entries.txt", nil)
	if err != nil {
		return nil, errs.New(errs.Network, c.URL, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errs.New(errs.Network, c.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.Network, c.URL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	entries, err := parseEntries(resp.Body)
	if err != nil {
		return nil, errs.New(errs.Serialisation, c.URL, err)
	}
	return entries, nil
}

// Versions returns every version published for iri, in the order the
// manifest lists them (callers needing descending-SemVer order should
// sort via internal/core/version).
func (c *Client) Versions(ctx context.Context, iri string) ([]Entry, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.IRI == iri {
			out = append(out, e)
		}
	}
	return out, nil
}

func parseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed entries.txt line %q", line)
		}
		entries = append(entries, Entry{IRI: fields[0], Version: fields[1], Digest: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// KparURL returns "<index>/<digest>/<version>.kpar", the URL the
// fetcher's RemoteKpar descriptor downloads for a resolved entry.
func (c *Client) KparURL(digest, version string) string {
	return c.URL + "/" + digest + "/" + version + ".kpar"
}
