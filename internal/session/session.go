package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dunamismax/imagemin/internal/compare"
	"github.com/dunamismax/imagemin/internal/domain"
)

var (
	ErrNoSelection = errors.New("no result selected")
	ErrOutOfRange  = errors.New("result index out of range")
)

// Session keeps the results produced while the process runs, in order, and
// the comparison slider of the selected one.
type Session struct {
	mu       sync.RWMutex
	results  []domain.CompressionResult
	selected int
	slider   *compare.Slider
	capture  func() compare.PointerCapture
}

func New(capture func() compare.PointerCapture) *Session {
	return &Session{selected: -1, capture: capture}
}

// Append adds results and selects the first one when nothing is selected.
func (s *Session) Append(results ...domain.CompressionResult) {
	if len(results) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results...)
	if s.selected < 0 {
		s.selectLocked(0)
	}
}

func (s *Session) List() []domain.CompressionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CompressionResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	s.selected = -1
	s.slider = nil
}

// Select makes result i current and gives it a fresh slider.
func (s *Session) Select(i int) (domain.CompressionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.results) {
		return domain.CompressionResult{}, fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	s.selectLocked(i)
	return s.results[i], nil
}

// Selected returns the current result, its index and its slider.
func (s *Session) Selected() (domain.CompressionResult, int, *compare.Slider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected < 0 {
		return domain.CompressionResult{}, -1, nil, ErrNoSelection
	}
	return s.results[s.selected], s.selected, s.slider, nil
}

func (s *Session) selectLocked(i int) {
	var capture compare.PointerCapture
	if s.capture != nil {
		capture = s.capture()
	}
	s.selected = i
	s.slider = compare.NewSlider(capture)
}
