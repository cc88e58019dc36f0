// Package license validates SPDX license expressions, the grammar
// spec.md §3 requires for a Project's info.license field. No SPDX
// expression library appears anywhere in the retrieval pack, so this
// is a small hand-rolled recursive-descent parser over the subset of
// the SPDX spec (https://spdx.github.io/spdx-spec) that the grammar
// actually needs: license-ref, id[+], AND/OR, WITH exception, and
// parenthesised grouping.
package license

import (
	"fmt"
	"strings"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// knownIDs is a representative subset of the SPDX License List, not
// the full ~600-entry table; it exists so common expressions validate
// without a network call, while LicenseRef-* always validates so a
// project can name a license this build doesn't recognise.
var knownIDs = map[string]bool{
	"MIT": true, "0BSD": true, "BSD-2-Clause": true, "BSD-3-Clause": true,
	"Apache-2.0": true, "ISC": true, "MPL-2.0": true, "Unlicense": true,
	"CC0-1.0": true, "CC-BY-4.0": true, "CC-BY-SA-4.0": true,
	"GPL-2.0-only": true, "GPL-2.0-or-later": true,
	"GPL-3.0-only": true, "GPL-3.0-or-later": true,
	"LGPL-2.1-only": true, "LGPL-2.1-or-later": true,
	"LGPL-3.0-only": true, "LGPL-3.0-or-later": true,
	"AGPL-3.0-only": true, "AGPL-3.0-or-later": true,
	"EPL-2.0": true, "BSL-1.0": true, "Zlib": true, "WTFPL": true,
}

var knownExceptions = map[string]bool{
	"Classpath-exception-2.0": true,
	"GCC-exception-3.1":       true,
	"LLVM-exception":          true,
	"OpenSSL-exception":       true,
}

// Validate parses expr against the SPDX license-expression grammar
// and checks every bare identifier against knownIDs (LicenseRef-* and
// DocumentRef-*:LicenseRef-* are always accepted). Returns nil for an
// empty expr, since info.license is optional.
func Validate(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	p := &parser{tokens: tokenize(expr)}
	if err := p.expression(); err != nil {
		return errs.New(errs.InvalidValue, expr, err)
	}
	if p.pos != len(p.tokens) {
		return errs.New(errs.InvalidValue, expr, fmt.Errorf("unexpected trailing token %q", p.tokens[p.pos]))
	}
	return nil
}

func tokenize(expr string) []string {
	expr = strings.ReplaceAll(expr, "(", " ( ")
	expr = strings.ReplaceAll(expr, ")", " ) ")
	return strings.Fields(expr)
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

// expression := term ( ("AND" | "OR") term )*
func (p *parser) expression() error {
	if err := p.term(); err != nil {
		return err
	}
	for p.peek() == "AND" || p.peek() == "OR" {
		p.next()
		if err := p.term(); err != nil {
			return err
		}
	}
	return nil
}

// term := "(" expression ")" | licenseRef ["WITH" exceptionID]
func (p *parser) term() error {
	if p.peek() == "(" {
		p.next()
		if err := p.expression(); err != nil {
			return err
		}
		if p.next() != ")" {
			return fmt.Errorf("missing closing parenthesis")
		}
		return nil
	}

	id := p.next()
	if id == "" {
		return fmt.Errorf("expected a license identifier")
	}
	if err := validateID(id); err != nil {
		return err
	}
	if p.peek() == "WITH" {
		p.next()
		exc := p.next()
		if !knownExceptions[exc] {
			return fmt.Errorf("unrecognised license exception %q", exc)
		}
	}
	return nil
}

func validateID(id string) error {
	if strings.HasPrefix(id, "LicenseRef-") {
		return nil
	}
	if idx := strings.Index(id, ":"); idx > 0 && strings.HasPrefix(id, "DocumentRef-") {
		if strings.HasPrefix(id[idx+1:], "LicenseRef-") {
			return nil
		}
	}
	bare := strings.TrimSuffix(id, "+")
	if knownIDs[bare] {
		return nil
	}
	return fmt.Errorf("unrecognised SPDX license identifier %q", id)
}
