package artifacts

import (
	"context"
	"path"
	"strings"

	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/fixtures"
	"github.com/kuitang/credits-e2e/internal/obs"
)

// Bucket is a Store that can also be read back. *s3client.Client
// implements it.
type Bucket interface {
	Store
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// RunPrefix is the key prefix of a run's uploads. An empty runID covers
// every run.
func RunPrefix(runID string) string {
	if runID == "" {
		return "runs/"
	}
	return "runs/" + runID + "/"
}

// ListRun returns the uploaded artifact keys for runID, or for every run
// when runID is empty.
func ListRun(ctx context.Context, b Bucket, runID string) ([]string, error) {
	return b.List(ctx, RunPrefix(runID))
}

// Runs returns the distinct run ids with uploads, in listing order.
func Runs(ctx context.Context, b Bucket) ([]string, error) {
	keys, err := b.List(ctx, RunPrefix(""))
	if err != nil {
		return nil, err
	}
	var runs []string
	seen := make(map[string]bool)
	for _, key := range keys {
		id, _, ok := strings.Cut(strings.TrimPrefix(key, RunPrefix("")), "/")
		if !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		runs = append(runs, id)
	}
	return runs, nil
}

// PruneRun deletes every upload of runID and returns how many were
// removed. runID is required.
func PruneRun(ctx context.Context, b Bucket, runID string) (int, error) {
	if strings.TrimSpace(runID) == "" || strings.Contains(runID, "/") {
		return 0, errs.New(errs.InvalidArgument, "artifacts: prune needs a single run id")
	}
	keys, err := ListRun(ctx, b, runID)
	if err != nil {
		return 0, err
	}
	for i, key := range keys {
		if err := b.Delete(ctx, key); err != nil {
			return i, err
		}
	}
	obs.From(ctx).Info("artifacts_pruned", "run_id", runID, "deleted", len(keys))
	return len(keys), nil
}

// Download fetches key into dir, keeping the object's base name.
func Download(ctx context.Context, b Bucket, key, dir string) (string, error) {
	data, err := b.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return fixtures.WriteFile(dir, path.Base(key), data)
}
