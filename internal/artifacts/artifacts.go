// Package artifacts records failure screenshots for browser tests.
// Screenshots always land in a local directory; when a bucket is
// configured they are also uploaded under runs/<run-id>/.
package artifacts

import (
	"context"
	"path"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/credits-e2e/internal/config"
	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/fixtures"
	"github.com/kuitang/credits-e2e/internal/obs"
	"github.com/kuitang/credits-e2e/internal/s3client"
)

var logger = obs.Pkg("artifacts")

// Store is where uploaded artifacts go. *s3client.Client implements it.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
}

// Artifact describes one saved screenshot.
type Artifact struct {
	Path string // local file
	Key  string // object key, empty when not uploaded
}

// Recorder saves screenshots for a single run.
type Recorder struct {
	dir   string
	runID string
	store Store
}

// NewRecorder creates a Recorder writing to dir. store may be nil.
func NewRecorder(dir, runID string, store Store) *Recorder {
	if dir == "" {
		dir = "test-results"
	}
	return &Recorder{dir: dir, runID: runID, store: store}
}

// FromConfig builds a Recorder from suite configuration, connecting to S3
// only when a bucket is configured.
func FromConfig(ctx context.Context, cfg *config.Config, runID string) (*Recorder, error) {
	if !cfg.UploadsArtifacts() {
		return NewRecorder(cfg.ArtifactsDir, runID, nil), nil
	}
	client, err := OpenBucket(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRecorder(cfg.ArtifactsDir, runID, client), nil
}

// OpenBucket connects to the configured artifacts bucket.
func OpenBucket(ctx context.Context, cfg *config.Config) (*s3client.Client, error) {
	if !cfg.UploadsArtifacts() {
		return nil, errs.New(errs.InvalidArgument, "artifacts: ARTIFACTS_BUCKET is not set")
	}
	return s3client.New(ctx, s3client.Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Bucket:          cfg.ArtifactsBucket,
		UsePathStyle:    cfg.AWSEndpointS3 != "",
	})
}

// Key returns the object key for a test's screenshot.
func (r *Recorder) Key(test string) string {
	return path.Join("runs", r.runID, FileName(test))
}

// Save writes png for test locally and uploads it when a store is set.
// A failed upload is logged and reported, but the local file is kept.
func (r *Recorder) Save(ctx context.Context, test string, png []byte) (Artifact, error) {
	local, err := fixtures.WriteFile(r.dir, FileName(test), png)
	if err != nil {
		return Artifact{}, err
	}
	art := Artifact{Path: local}

	if r.store == nil {
		obs.From(ctx).Info("artifact_saved", "path", local)
		return art, nil
	}

	key := r.Key(test)
	if err := r.store.Put(ctx, key, png, "image/png"); err != nil {
		obs.From(ctx).Warn("artifact_upload_failed", "key", key, "error", err)
		return art, err
	}
	art.Key = key
	obs.From(ctx).Info("artifact_saved", "path", local, "key", key)
	return art, nil
}

// Capture takes a full-page screenshot of page and saves it.
func (r *Recorder) Capture(ctx context.Context, page playwright.Page, test string) (Artifact, error) {
	if page == nil {
		return Artifact{}, errs.New(errs.InvalidArgument, "artifacts: nil page")
	}
	png, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		logger.Warn("screenshot_failed", "test", test, "error", err)
		return Artifact{}, errs.Wrap(errs.Unavailable, "artifacts: screenshot", err)
	}
	return r.Save(ctx, test, png)
}

// FileName turns a test name such as "TestCredits/new user" into a safe
// file name.
func FileName(test string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, test)
	name = strings.Trim(name, "._")
	if name == "" {
		name = "unnamed"
	}
	return name + ".png"
}
