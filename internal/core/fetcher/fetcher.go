// Package fetcher implements the capability contract of spec.md §4.4:
// mapping a source descriptor to a materialised Project Store, with
// retries, cancellation, and optional checksum verification.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sysand-dev/sysand-go/internal/core/credential"
	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// Descriptor is the closed set of source descriptors a Fetcher
// accepts, per spec.md §4.4's table. Exactly one of these
// constructors should be used to build the value a caller passes to
// Fetch; the zero Descriptor is invalid.
type Descriptor struct {
	Kind Kind

	Path string // LocalDir, LocalKpar, Editable
	URL  string // RemoteDir, RemoteKpar

	GitURL string // GitRef
	GitRev string // GitRef, optional

	IndexURL string // IndexLookup
	IRI      string // IndexLookup
	Version  string // IndexLookup

	// ExpectedChecksum, if set, is verified against the fetched bytes
	// before Fetch returns a store; a mismatch is fatal.
	ExpectedChecksum *model.Checksum
}

type Kind int

const (
	KindLocalDir Kind = iota
	KindLocalKpar
	KindEditable
	KindRemoteDir
	KindRemoteKpar
	KindGitRef
	KindIndexLookup
)

func LocalDir(path string) Descriptor  { return Descriptor{Kind: KindLocalDir, Path: path} }
func LocalKpar(path string) Descriptor { return Descriptor{Kind: KindLocalKpar, Path: path} }
func Editable(path string) Descriptor  { return Descriptor{Kind: KindEditable, Path: path} }
func RemoteDir(url string) Descriptor  { return Descriptor{Kind: KindRemoteDir, URL: url} }
func RemoteKpar(url string) Descriptor { return Descriptor{Kind: KindRemoteKpar, URL: url} }
func GitRef(url, rev string) Descriptor {
	return Descriptor{Kind: KindGitRef, GitURL: url, GitRev: rev}
}
func IndexLookup(indexURL, iri, version string) Descriptor {
	return Descriptor{Kind: KindIndexLookup, IndexURL: indexURL, IRI: iri, Version: version}
}

// RetryPolicy configures the exponential backoff network operations
// use, per spec.md §4.4: 3 attempts by default, initial 250ms, factor
// 2.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Factor       float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 250 * time.Millisecond, Factor: 2}
}

// Fetcher materialises source descriptors into Project Stores.
type Fetcher struct {
	Client         *http.Client
	Broker         *credential.Broker
	Retry          RetryPolicy
	RequestTimeout time.Duration

	// WorkDir is the byte cache: where RemoteKpar downloads and GitRef
	// clones land before being opened as a store.
	WorkDir string

	// Progress, if set, receives human-readable progress lines as a
	// printf-style format string and its arguments.
	Progress func(format string, args ...any)
}

// New builds a Fetcher with sane defaults: a 30s-per-request HTTP
// client (spec.md §5's default request timeout) and the default
// retry policy.
func New(workDir string, broker *credential.Broker) *Fetcher {
	return &Fetcher{
		Client:         &http.Client{Timeout: 30 * time.Second},
		Broker:         broker,
		Retry:          DefaultRetryPolicy(),
		RequestTimeout: 30 * time.Second,
		WorkDir:        workDir,
	}
}

func (f *Fetcher) log(format string, args ...any) {
	if f.Progress != nil {
		f.Progress(format, args...)
	}
}

// Fetch materialises d into a Store. ctx governs both the overall
// deadline and cancellation; on cancellation no partial artifact is
// left visible (temp downloads/clones land under a per-call scratch
// directory that is removed on any non-success return).
//
// If d.ExpectedChecksum is set, LocalKpar, RemoteKpar and IndexLookup
// check it against the archive bytes before any store is returned.
// GitRef, LocalDir, Editable and RemoteDir do not check it: a cloned
// tree is returned without verification.
func (f *Fetcher) Fetch(ctx context.Context, d Descriptor) (store.Store, error) {
	switch d.Kind {
	case KindLocalDir:
		return store.NewLocalDir(d.Path), nil
	case KindEditable:
		return store.NewEditable(d.Path), nil
	case KindLocalKpar:
		return f.openLocalKpar(ctx, d.Path, d.ExpectedChecksum)
	case KindRemoteDir:
		return store.NewHTTP(d.URL, f.retryableClient().StandardClient()), nil
	case KindRemoteKpar:
		return f.fetchRemoteKpar(ctx, d.URL, d.ExpectedChecksum)
	case KindGitRef:
		return f.fetchGitRef(ctx, d.GitURL, d.GitRev)
	case KindIndexLookup:
		return f.fetchIndexLookup(ctx, d)
	default:
		return nil, errs.New(errs.InvalidValue, "", fmt.Errorf("unknown source descriptor kind"))
	}
}

// HTTPClient exposes the broker-wrapped client other core packages
// (the index client, during resolution) need to use for requests that
// aren't themselves a Fetch call.
func (f *Fetcher) HTTPClient() *http.Client {
	return f.httpClient()
}

// httpClient returns the configured *http.Client with its transport
// wrapped by the credential broker's unauthenticated-first/retry-on-
// 4xx policy, so every HTTP-backed descriptor (RemoteDir, RemoteKpar,
// IndexLookup) gets the same auth behaviour without routing through
// credential.Broker.Do explicitly.
func (f *Fetcher) httpClient() *http.Client {
	base := f.Client
	if base == nil {
		base = &http.Client{}
	}
	if f.Broker == nil {
		return base
	}
	clone := *base
	clone.Transport = f.Broker.Transport(base.Transport)
	return &clone
}

func verifyBlob(expected *model.Checksum, data []byte) error {
	if expected == nil {
		return nil
	}
	return model.VerifyChecksum(*expected, data)
}
