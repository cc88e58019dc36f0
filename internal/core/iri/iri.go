// Package iri parses and normalises the IRIs used to name interchange
// projects: urn:kpar:<name>, http(s)://, file://, ssh://, and the
// git+<scheme>:// variant.
package iri

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// IRI is a normalised project identifier. Two IRIs that normalise to
// the same string compare equal.
type IRI struct {
	normalised string
}

// Parse validates raw as an IRI and returns its normalised form.
// Percent-encoding in the path is collapsed to its minimal form (only
// characters that need escaping stay escaped, with upper-case hex
// digits), and a single trailing slash is stripped (the root path "/"
// is kept as-is, matching how most URL schemes treat it).
func Parse(raw string) (IRI, error) {
	if raw == "" {
		return IRI{}, errs.New(errs.InvalidValue, raw, fmt.Errorf("empty IRI"))
	}

	if strings.HasPrefix(raw, "urn:") {
		return IRI{normalised: normaliseURN(raw)}, nil
	}

	scheme, rest, hasScheme := strings.Cut(raw, ":")
	if !hasScheme {
		return IRI{}, errs.New(errs.InvalidValue, raw, fmt.Errorf("missing scheme"))
	}

	_ = rest
	gitPrefix := ""
	if strings.HasPrefix(scheme, "git+") {
		gitPrefix = "git+"
		scheme = strings.TrimPrefix(scheme, "git+")
	}

	switch strings.ToLower(scheme) {
	case "http", "https", "file", "ssh":
	default:
		return IRI{}, errs.New(errs.InvalidValue, raw, fmt.Errorf("unsupported IRI scheme %q", scheme))
	}

	u, err := url.Parse(strings.TrimPrefix(raw, gitPrefix))
	if err != nil {
		return IRI{}, errs.New(errs.InvalidValue, raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Host != "" {
		u.Host = strings.ToLower(u.Host)
	}
	// u.Path is already percent-decoded; clearing RawPath makes String()
	// re-escape it minimally instead of echoing the input's escapes.
	u.RawPath = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return IRI{normalised: gitPrefix + u.String()}, nil
}

// MustParse panics if raw does not parse; intended for constants known
// at compile time (e.g. standard-library IRIs).
func MustParse(raw string) IRI {
	i, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return i
}

func normaliseURN(raw string) string {
	parts := strings.SplitN(raw, ":", 3)
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	if len(parts) == 3 {
		parts[0] = "urn"
	}
	return strings.Join(parts, ":")
}

// String returns the normalised form of the IRI.
func (i IRI) String() string { return i.normalised }

// Equal reports whether two IRIs normalise to the same identifier.
func (i IRI) Equal(other IRI) bool { return i.normalised == other.normalised }

// IsZero reports whether i was never successfully parsed.
func (i IRI) IsZero() bool { return i.normalised == "" }
