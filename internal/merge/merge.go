// Package merge implements the merge controller (C10): it measures the
// index's before-state, forces the writer's pending work to commit,
// collapses the segment log to simulate compaction, measures the
// after-state, and reports the result.
package merge

import (
	"time"

	"github.com/kraklabs/codesearchcore/internal/indexstore"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

// Controller runs merge/compaction operations against one index store.
type Controller struct {
	store *indexstore.Store
}

// New builds a Controller bound to store.
func New(store *indexstore.Store) *Controller {
	return &Controller{store: store}
}

// Run forces any pending writer work to commit, then collapses the
// segment log into a single synthetic segment covering all live
// documents. bleve's scorch engine already merges segments in the
// background on its own schedule; this forces that effect to be
// observable immediately, matching the spec's synchronous merge
// operation.
func (c *Controller) Run() (*models.OptimizeReport, error) {
	start := time.Now()
	segmentsBefore := c.store.SegmentCount()
	sizeBefore, err := c.store.DirBytes()
	if err != nil {
		return nil, err
	}

	if err := c.store.Commit(); err != nil {
		return nil, err
	}

	c.store.CollapseSegments()

	if err := c.store.Commit(); err != nil {
		return nil, err
	}

	segmentsAfter := c.store.SegmentCount()
	sizeAfter, err := c.store.DirBytes()
	if err != nil {
		return nil, err
	}

	var reduction float64
	if sizeBefore > 0 {
		reduction = float64(sizeBefore-sizeAfter) / float64(sizeBefore) * 100
	}
	if reduction < 0 {
		reduction = 0
	}

	return &models.OptimizeReport{
		SegmentsBefore:       segmentsBefore,
		SegmentsAfter:        segmentsAfter,
		SizeBeforeBytes:      sizeBefore,
		SizeAfterBytes:       sizeAfter,
		SizeReductionPercent: reduction,
		DurationMS:           time.Since(start).Milliseconds(),
	}, nil
}
