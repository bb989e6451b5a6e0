package prefs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDefaultOutputDir(t *testing.T) {
	withPictures := t.TempDir()
	if err := os.Mkdir(filepath.Join(withPictures, "Pictures"), 0o755); err != nil {
		t.Fatalf("mkdir Pictures: %v", err)
	}
	withoutPictures := t.TempDir()
	picturesIsFile := t.TempDir()
	if err := os.WriteFile(filepath.Join(picturesIsFile, "Pictures"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write Pictures file: %v", err)
	}

	cases := []struct {
		name string
		home string
		want string
	}{
		{name: "pictures exists", home: withPictures, want: filepath.Join(withPictures, "Pictures", "Compressed")},
		{name: "no pictures", home: withoutPictures, want: filepath.Join(withoutPictures, "Compressed")},
		{name: "pictures is a file", home: picturesIsFile, want: filepath.Join(picturesIsFile, "Compressed")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if got := DefaultOutputDir(tc.home); got != tc.want {
					t.Fatalf("expected %s, got %s", tc.want, got)
				}
			}
		})
	}
}

func TestDefaultOutputDirRule(t *testing.T) {
	if got, want := defaultOutputDir("/home/u", true), filepath.Join("/home/u", "Pictures", "Compressed"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got, want := defaultOutputDir("/home/u", false), filepath.Join("/home/u", "Compressed"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestOutputDirsFallsBackToDefault(t *testing.T) {
	home := t.TempDir()
	dirs := NewOutputDirs(NewMemoryStore(), home, quietLogger())

	if got, want := dirs.Get(context.Background()), filepath.Join(home, "Compressed"); got != want {
		t.Fatalf("expected default %s, got %s", want, got)
	}

	if err := dirs.Set(context.Background(), "/srv/out"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := dirs.Get(context.Background()); got != "/srv/out" {
		t.Fatalf("expected stored dir, got %s", got)
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (brokenStore) Set(context.Context, string, string) error {
	return errors.New("disk on fire")
}

func (brokenStore) Close() error { return nil }

func TestOutputDirsStoreErrorUsesDefault(t *testing.T) {
	home := t.TempDir()
	dirs := NewOutputDirs(brokenStore{}, home, quietLogger())

	if got, want := dirs.Get(context.Background()), filepath.Join(home, "Compressed"); got != want {
		t.Fatalf("expected default %s, got %s", want, got)
	}
	if err := dirs.Set(context.Background(), "/x"); err == nil {
		t.Fatal("expected set error to surface")
	}
}

func TestPebbleStorePersistsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "db")
	home := t.TempDir()
	chosen := filepath.Join(t.TempDir(), "chosen")

	first, err := NewPebbleStore(path)
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	if err := NewOutputDirs(first, home, quietLogger()).Set(context.Background(), chosen); err != nil {
		t.Fatalf("set output dir: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close pebble: %v", err)
	}

	second, err := NewPebbleStore(path)
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	defer second.Close()

	if got := NewOutputDirs(second, home, quietLogger()).Get(context.Background()); got != chosen {
		t.Fatalf("expected persisted dir %s, got %s", chosen, got)
	}
}

func TestPebbleStoreMissingKey(t *testing.T) {
	store, err := NewPebbleStore(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected missing key")
	}
}

func TestOpenBackends(t *testing.T) {
	store, err := Open(context.Background(), Options{Backend: "memory"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}

	store, err = Open(context.Background(), Options{Path: filepath.Join(t.TempDir(), "db")})
	if err != nil {
		t.Fatalf("open default backend: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*PebbleStore); !ok {
		t.Fatalf("expected *PebbleStore by default, got %T", store)
	}

	if _, err := Open(context.Background(), Options{Backend: "redis"}); err == nil {
		t.Fatal("expected unknown backend error")
	}
	if _, err := Open(context.Background(), Options{Backend: "postgres"}); err == nil {
		t.Fatal("expected missing database url error")
	}
}
