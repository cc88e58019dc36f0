package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// fetchRemoteKpar downloads a KPAR over HTTP into a scratch file under
// f.WorkDir, verifying it against expected if given, then opens it as
// an Archive store. If ctx is cancelled or any step fails, the scratch
// file is removed and no artifact is left behind.
func (f *Fetcher) fetchRemoteKpar(ctx context.Context, url string, expected *model.Checksum) (store.Store, error) {
	scratch := filepath.Join(f.WorkDir, uuid.NewString()+".kpar")
	f.log("downloading %s", url)
	if err := f.download(ctx, url, scratch); err != nil {
		os.Remove(scratch)
		return nil, err
	}

	data, err := os.ReadFile(scratch)
	if err != nil {
		os.Remove(scratch)
		return nil, errs.New(errs.IO, scratch, err)
	}
	if err := verifyBlob(expected, data); err != nil {
		os.Remove(scratch)
		return nil, err
	}

	s, err := openArchive(scratch, data)
	if err != nil {
		os.Remove(scratch)
		return nil, err
	}
	return s, nil
}

// download GETs url with the broker's unauthenticated-first/retry-on-
// 4xx policy, wrapped in retryablehttp's exponential backoff for
// transient network failures and 5xx responses, and writes the body
// to dest. The write happens to a ".part" sibling that is renamed into
// place only on full success, so a cancelled or failed download never
// leaves a truncated file at dest.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	part := dest + ".part"
	defer os.Remove(part)

	out, err := os.Create(part)
	if err != nil {
		return errs.New(errs.IO, part, err)
	}

	resp, err := f.get(ctx, url)
	if err != nil {
		out.Close()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out.Close()
		return errs.New(errs.Network, url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return errs.New(errs.Network, url, err)
	}
	if err := out.Close(); err != nil {
		return errs.New(errs.IO, part, err)
	}
	if err := os.Rename(part, dest); err != nil {
		return errs.New(errs.IO, dest, err)
	}
	return nil
}

// get performs one logical GET. retryablehttp retries transport-level
// failures and 5xx responses with exponential backoff (spec.md §4.4);
// the credential broker, already wired into the client's transport by
// httpClient, handles the unauthenticated-first/retry-on-4xx policy
// underneath that.
func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.Network, url, err)
	}
	resp, err := f.retryableClient().Do(req)
	if err != nil {
		return nil, errs.New(errs.Network, url, err)
	}
	return resp, nil
}

func (f *Fetcher) retryableClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient = f.httpClient()
	// RetryMax counts retries after the first request, so MaxAttempts
	// total attempts means MaxAttempts-1 retries.
	c.RetryMax = f.Retry.MaxAttempts - 1
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	c.RetryWaitMin = f.Retry.InitialDelay
	c.RetryWaitMax = f.Retry.InitialDelay * time.Duration(f.Retry.Factor*float64(f.Retry.MaxAttempts))
	c.Logger = nil
	return c
}
