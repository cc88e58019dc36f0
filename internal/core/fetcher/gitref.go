package fetcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// fetchGitRef clones gitURL at rev into a scratch directory under
// f.WorkDir and opens it as a LocalDir store. No Go git
// library appears anywhere in the retrieval pack, so this shells out
// to the system "git" binary, which is the sole grounded option.
//
// If ctx is cancelled or the clone/checkout fails, the scratch
// directory is removed entirely rather than left half-populated.
func (f *Fetcher) fetchGitRef(ctx context.Context, gitURL, rev string) (store.Store, error) {
	scratch := filepath.Join(f.WorkDir, "git-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, errs.New(errs.IO, scratch, err)
	}

	ok := false
	defer func() {
		if !ok {
			os.RemoveAll(scratch)
		}
	}()

	f.log("cloning %s", gitURL)
	if err := f.runGit(ctx, "", "clone", "--quiet", "--no-checkout", gitURL, scratch); err != nil {
		return nil, err
	}
	if rev == "" {
		rev = "HEAD"
	}
	if err := f.runGit(ctx, scratch, "checkout", "--quiet", rev); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(filepath.Join(scratch, ".git")); err != nil {
		return nil, errs.New(errs.IO, scratch, err)
	}

	ok = true
	return store.NewLocalDir(scratch), nil
}

func (f *Fetcher) runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errs.New(errs.Network, dir, fmt.Errorf("git %v: %w: %s", args, err, out))
	}
	return nil
}
