package session

import (
	"errors"
	"testing"

	"github.com/dunamismax/imagemin/internal/domain"
)

func result(path string) domain.CompressionResult {
	return domain.NewCompressionResult(path, path+".out", 100, 50, domain.FormatPNG)
}

func TestAppendAutoSelectsFirst(t *testing.T) {
	s := New(nil)
	if _, _, _, err := s.Selected(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	s.Append(result("a"), result("b"))
	s.Append(result("c"))

	selected, index, slider, err := s.Selected()
	if err != nil {
		t.Fatalf("selected: %v", err)
	}
	if index != 0 || selected.OriginalPath != "a" || slider == nil {
		t.Fatalf("expected first result selected with a slider, got %d %s %v", index, selected.OriginalPath, slider)
	}

	list := s.List()
	if len(list) != 3 || list[0].OriginalPath != "a" || list[2].OriginalPath != "c" {
		t.Fatalf("unexpected list order: %+v", list)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := New(nil)
	s.Append(result("a"))
	list := s.List()
	list[0].OriginalPath = "mutated"
	if s.List()[0].OriginalPath != "a" {
		t.Fatal("expected List to return a copy")
	}
}

func TestSelectCreatesFreshSlider(t *testing.T) {
	s := New(nil)
	s.Append(result("a"), result("b"))
	_, _, first, _ := s.Selected()

	if _, err := s.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	selected, index, second, err := s.Selected()
	if err != nil {
		t.Fatalf("selected: %v", err)
	}
	if index != 1 || selected.OriginalPath != "b" {
		t.Fatalf("expected b selected, got %d %s", index, selected.OriginalPath)
	}
	if second == first {
		t.Fatal("expected a new slider for the new selection")
	}
	if second.Split() != 50 {
		t.Fatalf("expected fresh slider at 50, got %v", second.Split())
	}

	if _, err := s.Select(2); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := s.Select(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestClearResetsEverything(t *testing.T) {
	s := New(nil)
	s.Append(result("a"))
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("expected empty session, got %d", s.Len())
	}
	if _, _, _, err := s.Selected(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection after clear, got %v", err)
	}

	s.Append(result("b"))
	selected, _, _, err := s.Selected()
	if err != nil || selected.OriginalPath != "b" {
		t.Fatalf("expected auto-select after clear, got %s %v", selected.OriginalPath, err)
	}
}
