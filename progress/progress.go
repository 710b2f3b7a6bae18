// Package progress carries the pipeline's percentage signals. A Tracker can
// be sampled from any goroutine while the pipeline runs.
package progress

import (
	"math"
	"sync"
	"sync/atomic"
)

// Func receives a percentage in [0, 100].
type Func func(pct float64)

// Report calls f when it is set.
func (f Func) Report(pct float64) {
	if f != nil {
		f(pct)
	}
}

// Snapshot is a point-in-time copy of a Tracker.
type Snapshot struct {
	Stage string  `json:"stage"`
	Batch float64 `json:"batch"`
	File  float64 `json:"file"`
}

// Tracker holds a coarse, per-batch percentage that never decreases within a
// stage, and a fine-grained percentage for the file currently being handled.
type Tracker struct {
	batch atomic.Uint64
	file  atomic.Uint64

	mu    sync.RWMutex
	stage string
}

// Begin starts a new stage and resets both percentages to zero.
func (t *Tracker) Begin(stage string) {
	t.mu.Lock()
	t.stage = stage
	t.mu.Unlock()

	t.batch.Store(math.Float64bits(0))
	t.file.Store(math.Float64bits(0))
}

// SetBatch raises the batch percentage. Lower values are ignored.
func (t *Tracker) SetBatch(pct float64) {
	pct = clamp(pct)
	for {
		old := t.batch.Load()
		if pct <= math.Float64frombits(old) {
			return
		}
		if t.batch.CompareAndSwap(old, math.Float64bits(pct)) {
			return
		}
	}
}

// SetFile records the progress of the current file. It may go down when a new
// file starts.
func (t *Tracker) SetFile(pct float64) {
	t.file.Store(math.Float64bits(clamp(pct)))
}

func (t *Tracker) Batch() float64 { return math.Float64frombits(t.batch.Load()) }

func (t *Tracker) File() float64 { return math.Float64frombits(t.file.Load()) }

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	stage := t.stage
	t.mu.RUnlock()

	return Snapshot{Stage: stage, Batch: t.Batch(), File: t.File()}
}

// BatchFunc and FileFunc adapt the tracker to the callback form used by the
// pipeline stages.
func (t *Tracker) BatchFunc() Func { return t.SetBatch }

func (t *Tracker) FileFunc() Func { return t.SetFile }

func clamp(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}

	return pct
}
