package fetcher

import (
	"context"

	"github.com/sysand-dev/sysand-go/internal/core/hasher"
	"github.com/sysand-dev/sysand-go/internal/core/index"
	"github.com/sysand-dev/sysand-go/internal/core/iri"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// fetchIndexLookup resolves an IRI/version pair against an index's
// published layout (spec.md §4.6's "<index>/<digest>/<version>.kpar",
// digest = hex(SHA-256(normalised IRI))), then delegates to the same
// download/verify path RemoteKpar uses.
func (f *Fetcher) fetchIndexLookup(ctx context.Context, d Descriptor) (store.Store, error) {
	id, err := iri.Parse(d.IRI)
	if err != nil {
		return nil, err
	}
	digest := hasher.DigestIRI(id.String())
	url := index.New(d.IndexURL, f.httpClient()).KparURL(digest, d.Version)
	return f.fetchRemoteKpar(ctx, url, d.ExpectedChecksum)
}
