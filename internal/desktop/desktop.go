package desktop

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ncruces/zenity"
)

var imageFilter = zenity.FileFilters{
	{Name: "Images", Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.webp"}, CaseFold: true},
}

// Desktop opens native dialogs and the platform file manager.
type Desktop struct {
	selectFiles func(options ...zenity.Option) ([]string, error)
	selectFile  func(options ...zenity.Option) (string, error)
	start       func(name string, args ...string) error
	goos        string
}

func New() *Desktop {
	return &Desktop{
		selectFiles: zenity.SelectFileMultiple,
		selectFile:  zenity.SelectFile,
		start:       startDetached,
		goos:        runtime.GOOS,
	}
}

// SelectImages shows a multi-select open dialog. Cancel yields no paths and
// no error.
func (d *Desktop) SelectImages(ctx context.Context) ([]string, error) {
	paths, err := d.selectFiles(
		zenity.Context(ctx),
		zenity.Title("Select images"),
		imageFilter,
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select images: %w", err)
	}
	return paths, nil
}

// SelectDirectory shows a directory dialog starting at defaultPath. ok is
// false when the user cancels.
func (d *Desktop) SelectDirectory(ctx context.Context, defaultPath string) (string, bool, error) {
	options := []zenity.Option{
		zenity.Context(ctx),
		zenity.Title("Select output directory"),
		zenity.Directory(),
	}
	if defaultPath != "" {
		options = append(options, zenity.Filename(defaultPath))
	}

	dir, err := d.selectFile(options...)
	if errors.Is(err, zenity.ErrCanceled) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select directory: %w", err)
	}
	return dir, dir != "", nil
}

// ShowInFolder reveals path in the platform file manager. An empty path
// does nothing.
func (d *Desktop) ShowInFolder(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	name, args, err := revealCommand(d.goos, path)
	if err != nil {
		return err
	}
	if err := d.start(name, args...); err != nil {
		return fmt.Errorf("reveal %s: %w", path, err)
	}
	return nil
}

func revealCommand(goos, path string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{"-R", path}, nil
	case "windows":
		return "explorer", []string{"/select," + path}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{filepath.Dir(path)}, nil
	default:
		return "", nil, fmt.Errorf("reveal in folder unsupported on %s", goos)
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
