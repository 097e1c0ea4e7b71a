package screen

import (
	"context"
	"time"

	"github.com/RXminuS/impression-hash/internal/trace"
	"github.com/RXminuS/impression-hash/pkg/impression"
)

// Hasher fingerprints encoded images.
type Hasher interface {
	HashImage(ctx context.Context, data []byte) (*impression.Fingerprint, error)
}

// Change describes a frame that differs from the last reported one.
type Change struct {
	At         time.Time `json:"at"`
	Hash       string    `json:"hash"`
	Similarity float64   `json:"similarity"` // to the previous reported frame
	First      bool      `json:"first"`
}

// Watcher polls a Source and reports perceptual changes.
type Watcher struct {
	src       Source
	hasher    Hasher
	interval  time.Duration
	threshold float64
	last      *impression.Fingerprint
}

// NewWatcher creates a watcher. Non-positive interval and out of range
// threshold fall back to the defaults.
func NewWatcher(src Source, h Hasher, interval time.Duration, threshold float64) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Watcher{src: src, hasher: h, interval: interval, threshold: threshold}
}

// Run polls until ctx is done. Frames that fail to capture or hash are skipped.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.poll(ctx, onChange)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) poll(ctx context.Context, onChange func(Change)) {
	if ctx.Err() != nil {
		return
	}
	ctx, _ = trace.EnsureContext(ctx)
	log := trace.Logger(ctx)

	data, err := w.src.Grab(ctx)
	if err != nil {
		log.Debug("capture failed", "error", err)
		return
	}
	fp, err := w.hasher.HashImage(ctx, data)
	if err != nil {
		log.Debug("frame skipped", "error", err)
		return
	}

	c := Change{At: time.Now(), Hash: fp.Changes(), First: w.last == nil}
	if w.last != nil {
		sim, err := w.last.Similarity(fp)
		if err != nil {
			log.Debug("frame skipped", "error", err)
			return
		}
		if sim >= w.threshold {
			return
		}
		c.Similarity = sim
	}
	w.last = fp
	onChange(c)
}
