// Package credential implements the credential broker of spec.md
// §4.5: environment-sourced auth material, matched to request URLs
// by a glob pattern, applied only on retry after a 4xx response.
package credential

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

const envPrefix = "SYSAND_CRED_"

// Credential is the auth material for one SYSAND_CRED_<X> entry.
type Credential struct {
	Name        string
	Pattern     string
	BasicUser   string
	BasicPass   string
	BearerToken string
}

// Apply sets the appropriate Authorization header on req. Basic auth
// takes precedence if both are configured for the same entry (an
// author error, but one that must not send two conflicting headers).
func (c Credential) Apply(req *http.Request) {
	if c.BasicUser != "" || c.BasicPass != "" {
		req.SetBasicAuth(c.BasicUser, c.BasicPass)
		return
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
}

// Broker holds every SYSAND_CRED_* credential read from the process
// environment at startup.
type Broker struct {
	credentials []Credential
}

// NewBroker reads environ (e.g. os.Environ()) for the SYSAND_CRED_*
// family described in spec.md §4.5.
func NewBroker(environ []string) *Broker {
	patterns := map[string]string{}
	users := map[string]string{}
	passes := map[string]string{}
	tokens := map[string]string{}

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, envPrefix)

		switch {
		case strings.HasSuffix(rest, "_BASIC_USER"):
			users[strings.TrimSuffix(rest, "_BASIC_USER")] = value
		case strings.HasSuffix(rest, "_BASIC_PASS"):
			passes[strings.TrimSuffix(rest, "_BASIC_PASS")] = value
		case strings.HasSuffix(rest, "_BEARER_TOKEN"):
			tokens[strings.TrimSuffix(rest, "_BEARER_TOKEN")] = value
		default:
			patterns[rest] = value
		}
	}

	var creds []Credential
	for name, pattern := range patterns {
		creds = append(creds, Credential{
			Name:        name,
			Pattern:     pattern,
			BasicUser:   users[name],
			BasicPass:   passes[name],
			BearerToken: tokens[name],
		})
	}
	return &Broker{credentials: creds}
}

// NewBrokerFromEnv reads SYSAND_CRED_* from os.Environ().
func NewBrokerFromEnv() *Broker { return NewBroker(os.Environ()) }

// Matching returns every credential whose pattern matches url, in the
// arbitrary order spec.md §4.5 permits.
func (b *Broker) Matching(url string) []Credential {
	var out []Credential
	for _, c := range b.credentials {
		if Match(c.Pattern, url) {
			out = append(out, c)
		}
	}
	return out
}

// Match implements the glob grammar of spec.md §4.5: "?" = one
// non-"/" character, "*" = a run of non-"/" characters, "**" = any
// run including "/".
func Match(pattern, url string) bool {
	return matchGlob([]rune(pattern), []rune(url))
}

func matchGlob(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}

	if len(pattern) >= 2 && pattern[0] == '*' && pattern[1] == '*' {
		rest := pattern[2:]
		for i := 0; i <= len(s); i++ {
			if matchGlob(rest, s[i:]) {
				return true
			}
		}
		return false
	}

	switch pattern[0] {
	case '*':
		rest := pattern[1:]
		for i := 0; i <= len(s); i++ {
			if matchGlob(rest, s[i:]) {
				return true
			}
			if i < len(s) && s[i] == '/' {
				break
			}
		}
		return false
	case '?':
		if len(s) == 0 || s[0] == '/' {
			return false
		}
		return matchGlob(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return matchGlob(pattern[1:], s[1:])
	}
}

// ErrNoCredential is returned by callers that want to distinguish "no
// credential matched this URL" from a real request failure.
func ErrNoCredential(url string) error {
	return errs.New(errs.InvalidValue, url, fmt.Errorf("no credential pattern matches this URL"))
}
