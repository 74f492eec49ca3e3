package ruby

import (
	"sync"

	"github.com/boxesandglue/rubyfont/outline"
)

// Baseline holds the running extremes of the consistent baseline: the top
// target only ever grows and the bottom target only ever shrinks.
type Baseline struct {
	mu        sync.Mutex
	top       float64
	bottom    float64
	hasTop    bool
	hasBottom bool
}

// WidenTop raises the top target to at least required and returns the
// updated target.
func (b *Baseline) WidenTop(required float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasTop || required > b.top {
		b.top = required
		b.hasTop = true
	}
	return b.top
}

// WidenBottom lowers the bottom target to at most required and returns the
// updated target.
func (b *Baseline) WidenBottom(required float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasBottom || required < b.bottom {
		b.bottom = required
		b.hasBottom = true
	}
	return b.bottom
}

// Top returns the current top target.
func (b *Baseline) Top() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.top, b.hasTop
}

// Bottom returns the current bottom target.
func (b *Baseline) Bottom() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bottom, b.hasBottom
}

// Reset forgets both targets.
func (b *Baseline) Reset() {
	b.mu.Lock()
	b.hasTop, b.hasBottom = false, false
	b.top, b.bottom = 0, 0
	b.mu.Unlock()
}

// State is the mutable part of an annotator for one font: the baseline
// cache and a face of the annotation font. A State must not be shared
// between fonts or annotators.
type State struct {
	Baseline Baseline

	face outline.Face
}

func newState(f outline.Font) *State {
	return &State{face: f.NewFace()}
}
