// Package fanout drives per-slide image generation in bounded batches.
// One slide's failure never blocks or fails its siblings.
package fanout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"founderframe/internal/model"
)

const (
	// DefaultBatchSize is kept at 1 to respect strict rate limits;
	// 3 worked against earlier, more generous quotas.
	DefaultBatchSize = 1
	// DefaultBatchDelay is the pause between batches.
	DefaultBatchDelay = 1 * time.Second
)

// ImageGenerator renders one slide illustration.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*model.ImageRef, error)
}

// Request is one slide needing an image.
type Request struct {
	SlideID string
	Prompt  string
}

// ApplyFunc receives each slide's terminal outcome; ref is nil on
// failure.
type ApplyFunc func(slideID string, ref *model.ImageRef)

// Runner executes image fan-outs. Every deck generation begins a new
// epoch; results tagged with a stale epoch are dropped so a replaced
// deck never sees leftovers from its predecessor.
type Runner struct {
	gen        ImageGenerator
	batchSize  int
	batchDelay time.Duration
	epoch      atomic.Int64
}

func NewRunner(gen ImageGenerator, batchSize int, batchDelay time.Duration) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchDelay <= 0 {
		batchDelay = DefaultBatchDelay
	}
	return &Runner{gen: gen, batchSize: batchSize, batchDelay: batchDelay}
}

// Begin starts a new generation epoch and invalidates all older ones.
func (r *Runner) Begin() int64 {
	return r.epoch.Add(1)
}

// Run processes the requests in batches of batchSize, issuing every
// request within a batch concurrently and waiting for the whole batch
// before moving on. A fixed delay separates batches, skipped after the
// last one. Run blocks until done; callers start it in a goroutine.
func (r *Runner) Run(ctx context.Context, epoch int64, reqs []Request, apply ApplyFunc) {
	for i := 0; i < len(reqs); i += r.batchSize {
		if r.epoch.Load() != epoch {
			logrus.WithField("epoch", epoch).Info("image fan-out superseded, stopping")
			return
		}

		end := i + r.batchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		batch := reqs[i:end]

		var wg sync.WaitGroup
		for _, req := range batch {
			wg.Add(1)
			go func(req Request) {
				defer wg.Done()
				r.generateOne(ctx, epoch, req, apply)
			}(req)
		}
		wg.Wait()

		if end < len(reqs) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.batchDelay):
			}
		}
	}
}

func (r *Runner) generateOne(ctx context.Context, epoch int64, req Request, apply ApplyFunc) {
	ref, err := r.gen.GenerateImage(ctx, req.Prompt)
	if r.epoch.Load() != epoch {
		logrus.WithFields(logrus.Fields{"slide": req.SlideID, "epoch": epoch}).
			Info("dropping stale image result")
		return
	}
	if err != nil {
		logrus.WithField("slide", req.SlideID).Warnf("image generation failed: %v", err)
		apply(req.SlideID, nil)
		return
	}
	apply(req.SlideID, ref)
}
