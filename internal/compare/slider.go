package compare

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	InitialSplit  = 50.0
	GuideDuration = 2500 * time.Millisecond
)

var (
	ErrInvalidViewport = errors.New("viewport width must be positive and coordinates finite")
	ErrUnknownPointer  = errors.New("unknown pointer event")
)

type PointerType string

const (
	PointerDown PointerType = "down"
	PointerMove PointerType = "move"
	PointerUp   PointerType = "up"
)

// Viewport is the horizontal extent of the comparison area in pointer
// coordinates.
type Viewport struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

func (v Viewport) contains(x float64) bool {
	return x >= v.Left && x <= v.Left+v.Width
}

func (v Viewport) valid(x float64) bool {
	return finite(x) && finite(v.Left) && finite(v.Width) && v.Width > 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SplitPercent maps x onto [0,100] across the viewport. Non-finite input
// yields 0.
func SplitPercent(x float64, v Viewport) float64 {
	split := (x - v.Left) / v.Width * 100
	switch {
	case math.IsNaN(split) || split < 0:
		return 0
	case split > 100:
		return 100
	}
	return split
}

// PointerCapture attaches and detaches the global move/up listeners.
type PointerCapture interface {
	Capture()
	Release()
}

type noopCapture struct{}

func (noopCapture) Capture() {}
func (noopCapture) Release() {}

type Layout struct {
	Split          float64 `json:"split"`
	ClipInsetRight float64 `json:"clipInsetRight"`
	Divider        float64 `json:"divider"`
	Dragging       bool    `json:"dragging"`
	ShowGuide      bool    `json:"showGuide"`
}

// Slider holds the interaction state for one before/after pair.
// transition serializes state changes with their capture calls so that
// readers holding mu never wait on a capture.
type Slider struct {
	transition sync.Mutex
	mu         sync.Mutex
	split    float64
	dragging bool
	shownAt  time.Time
	now      func() time.Time
	capture  PointerCapture
}

func NewSlider(capture PointerCapture) *Slider {
	return newSlider(capture, time.Now)
}

func newSlider(capture PointerCapture, now func() time.Time) *Slider {
	if capture == nil {
		capture = noopCapture{}
	}
	return &Slider{
		split:   InitialSplit,
		shownAt: now(),
		now:     now,
		capture: capture,
	}
}

// Handle applies one pointer event and returns the resulting layout.
func (s *Slider) Handle(kind PointerType, x float64, v Viewport) (Layout, error) {
	switch kind {
	case PointerDown:
		return s.PointerDown(x, v)
	case PointerMove:
		return s.PointerMove(x, v)
	case PointerUp:
		return s.PointerUp(), nil
	default:
		return s.Layout(), fmt.Errorf("%w: %q", ErrUnknownPointer, kind)
	}
}

func (s *Slider) PointerDown(x float64, v Viewport) (Layout, error) {
	if !v.valid(x) {
		return s.Layout(), ErrInvalidViewport
	}

	s.transition.Lock()
	defer s.transition.Unlock()

	captured := false
	s.mu.Lock()
	if v.contains(x) {
		if !s.dragging {
			s.dragging = true
			captured = true
		}
		s.split = SplitPercent(x, v)
	}
	s.mu.Unlock()

	if captured {
		s.capture.Capture()
	}
	return s.Layout(), nil
}

func (s *Slider) PointerMove(x float64, v Viewport) (Layout, error) {
	if !v.valid(x) {
		return s.Layout(), ErrInvalidViewport
	}

	s.mu.Lock()
	if s.dragging {
		s.split = SplitPercent(x, v)
	}
	s.mu.Unlock()
	return s.Layout(), nil
}

func (s *Slider) PointerUp() Layout {
	s.transition.Lock()
	defer s.transition.Unlock()

	released := false
	s.mu.Lock()
	if s.dragging {
		s.dragging = false
		released = true
	}
	s.mu.Unlock()

	if released {
		s.capture.Release()
	}
	return s.Layout()
}

func (s *Slider) Split() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.split
}

func (s *Slider) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// GuideVisible is true for GuideDuration after the slider was created.
func (s *Slider) GuideVisible() bool {
	return s.now().Sub(s.shownAt) < GuideDuration
}

func (s *Slider) Layout() Layout {
	s.mu.Lock()
	split, dragging := s.split, s.dragging
	s.mu.Unlock()

	return Layout{
		Split:          split,
		ClipInsetRight: 100 - split,
		Divider:        split,
		Dragging:       dragging,
		ShowGuide:      s.GuideVisible(),
	}
}
