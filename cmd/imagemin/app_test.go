package main

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/dunamismax/imagemin/internal/batch"
	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dunamismax/imagemin/internal/prefs"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	chdirForTest(t, t.TempDir())
	t.Setenv("HOME", home)
	t.Setenv("IMAGEMIN_LOGGING_CONSOLE", "false")
	cfgFile = ""
	return home
}

func TestNewAppFallsBackWhenPostgresUnreachable(t *testing.T) {
	home := isolateConfig(t)
	t.Setenv("IMAGEMIN_PREFS_BACKEND", "postgres")
	t.Setenv("IMAGEMIN_PREFS_DATABASE_URL", "postgres://imagemin@127.0.0.1:1/imagemin?sslmode=disable&connect_timeout=2")

	a, err := newApp(context.Background())
	if err != nil {
		t.Fatalf("expected app to start without preferences, got %v", err)
	}
	defer a.Close(context.Background())

	if got, want := a.outputDirs.Get(context.Background()), prefs.DefaultOutputDir(home); got != want {
		t.Fatalf("expected default output dir %s, got %s", want, got)
	}

	dir := filepath.Join(home, "elsewhere")
	if err := a.outputDirs.Set(context.Background(), dir); err != nil {
		t.Fatalf("expected in-memory preference to accept set, got %v", err)
	}
	if got := a.outputDirs.Get(context.Background()); got != dir {
		t.Fatalf("expected %s for this run, got %s", dir, got)
	}
}

func TestNewAppStartsWhilePebbleStoreIsHeld(t *testing.T) {
	home := isolateConfig(t)
	path := filepath.Join(t.TempDir(), "prefs")
	t.Setenv("IMAGEMIN_PREFS_PATH", path)

	held, err := prefs.NewPebbleStore(path)
	if err != nil {
		t.Fatalf("open pebble store: %v", err)
	}
	defer held.Close()

	a, err := newApp(context.Background())
	if err != nil {
		t.Fatalf("expected app to start while the store is held, got %v", err)
	}
	defer a.Close(context.Background())

	if got, want := a.outputDirs.Get(context.Background()), prefs.DefaultOutputDir(home); got != want {
		t.Fatalf("expected default output dir %s, got %s", want, got)
	}
}

func TestNewAppDefaultsCompressJPEGInAnyBuild(t *testing.T) {
	isolateConfig(t)
	t.Setenv("IMAGEMIN_PREFS_BACKEND", "memory")

	src := filepath.Join(t.TempDir(), "photo.jpg")
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 90, A: 255})
		}
	}
	f, err := os.Create(src)
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode source: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close source: %v", err)
	}

	a, err := newApp(context.Background())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close(context.Background())

	if a.choice != domain.ChoiceOriginal {
		t.Fatalf("expected default choice %q, got %q", domain.ChoiceOriginal, a.choice)
	}

	out := t.TempDir()
	report, err := a.runner.Run(context.Background(), batch.Request{
		Paths:     []string{src},
		Choice:    a.choice,
		Quality:   a.cfg.Batch.DefaultQuality,
		OutputDir: out,
	}, nil)
	if err != nil {
		t.Fatalf("expected default settings to compress a jpeg, got %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Format != domain.FormatJPEG {
		t.Fatalf("expected one jpeg result, got %+v", report.Results)
	}
	if want := filepath.Join(out, "photo_compressed.jpeg"); report.Results[0].CompressedPath != want {
		t.Fatalf("expected output %s, got %s", want, report.Results[0].CompressedPath)
	}
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
