package main

import (
	"io"
	"math"
	"path/filepath"
	"sync/atomic"

	"github.com/dunamismax/imagemin/internal/batch"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressBarCallback renders batch events as one overall bar. Call Wait on
// the returned progress after the batch returns.
func progressBarCallback(out io.Writer) (batch.Callback, *mpb.Progress) {
	progress := mpb.New(
		mpb.WithOutput(out),
		mpb.WithWidth(60),
		mpb.WithRefreshRate(100),
	)

	var bar *mpb.Bar
	var current atomic.Value
	current.Store("")

	callback := func(event batch.Event) {
		switch event.Type {
		case batch.EventStart:
			bar = progress.AddBar(int64(event.Total),
				mpb.PrependDecorators(
					decor.Name("Compressing", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Percentage(decor.WC{W: 5}),
					decor.Any(func(decor.Statistics) string { return " " + current.Load().(string) }),
				),
			)

		case batch.EventFileComplete, batch.EventFileFailed:
			current.Store(filepath.Base(event.Path))
			if bar != nil {
				bar.SetCurrent(int64(math.Round(event.Percent * float64(event.Total) / 100)))
			}

		case batch.EventComplete:
			if bar != nil {
				bar.SetCurrent(int64(event.Total))
			}

		case batch.EventAborted:
			if bar != nil {
				bar.Abort(false)
			}
		}
	}

	return callback, progress
}
