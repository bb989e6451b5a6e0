package prefs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const KeyOutputDir = "outputDir"

// DefaultOutputDir returns <home>/Pictures/Compressed when <home>/Pictures
// exists and <home>/Compressed otherwise.
func DefaultOutputDir(home string) string {
	info, err := os.Stat(filepath.Join(home, "Pictures"))
	return defaultOutputDir(home, err == nil && info.IsDir())
}

func defaultOutputDir(home string, hasPictures bool) string {
	if hasPictures {
		return filepath.Join(home, "Pictures", "Compressed")
	}
	return filepath.Join(home, "Compressed")
}

// OutputDirs resolves the output directory preference. Store failures are
// logged and never surface to callers of Get.
type OutputDirs struct {
	store  Store
	home   string
	logger *logrus.Logger
}

func NewOutputDirs(store Store, home string, logger *logrus.Logger) *OutputDirs {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OutputDirs{store: store, home: home, logger: logger}
}

func (o *OutputDirs) Default() string {
	return DefaultOutputDir(o.home)
}

func (o *OutputDirs) Get(ctx context.Context) string {
	value, ok, err := o.store.Get(ctx, KeyOutputDir)
	if err != nil {
		o.logger.WithError(err).Warn("read output dir preference, using default")
		return o.Default()
	}
	if !ok || strings.TrimSpace(value) == "" {
		return o.Default()
	}
	return value
}

func (o *OutputDirs) Set(ctx context.Context, dir string) error {
	return o.store.Set(ctx, KeyOutputDir, strings.TrimSpace(dir))
}
