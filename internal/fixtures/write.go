package fixtures

import (
	"os"
	"path/filepath"

	"github.com/kuitang/credits-e2e/internal/errs"
)

// WriteFile writes data to dir/name, creating dir if needed, and returns
// the written path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", errs.New(errs.InvalidArgument, "fixtures: file name must be a bare name")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.Internal, "fixtures: create output directory", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errs.Wrap(errs.Internal, "fixtures: write "+name, err)
	}
	return path, nil
}
