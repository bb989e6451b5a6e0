package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dunamismax/imagemin/internal/batch"
	"github.com/dunamismax/imagemin/internal/desktop"
	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
)

func newCompressCmd() *cobra.Command {
	var (
		format     string
		quality    int
		outputDir  string
		skipFailed bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "compress [files...]",
		Short: "Compress images; opens a file picker when no files are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			choice := a.choice
			if cmd.Flags().Changed("format") {
				if choice, err = domain.ParseFormatChoice(format); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("quality") {
				quality = a.cfg.Batch.DefaultQuality
			}
			if quality < domain.MinQuality || quality > domain.MaxQuality {
				return fmt.Errorf("%w: %d (want %d-%d)", domain.ErrInvalidQuality, quality, domain.MinQuality, domain.MaxQuality)
			}

			paths := args
			if len(paths) == 0 {
				if paths, err = desktop.New().SelectImages(ctx); err != nil {
					return err
				}
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No files selected.")
					return nil
				}
			}

			runner := a.runner
			if skipFailed {
				runner = batch.NewRunner(a.processor, batch.Options{Policy: batch.PolicySkip, Logger: a.log})
			}

			var (
				callback batch.Callback
				progress *mpb.Progress
			)
			if !quiet {
				callback, progress = progressBarCallback(cmd.ErrOrStderr())
			}

			report, runErr := runner.Run(ctx, batch.Request{
				Paths:     paths,
				Choice:    choice,
				Quality:   quality,
				OutputDir: outputDir,
			}, callback)

			if progress != nil {
				progress.Wait()
			}

			writeSummary(cmd.OutOrStdout(), report)

			if runErr != nil {
				return runErr
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("finished with %d failed files", len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "original", "output format: original, webp, avif, jpeg or png")
	cmd.Flags().IntVarP(&quality, "quality", "q", domain.DefaultQuality, "quality 10-100; 100 is lossless for webp and avif")
	cmd.Flags().StringVarP(&outputDir, "out", "o", "", "output directory (default: saved preference)")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "keep going when a file fails")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "no progress bar")

	return cmd
}

func writeSummary(w io.Writer, report batch.Report) {
	var original, compressed int64
	for _, r := range report.Results {
		original += r.OriginalSize
		compressed += r.CompressedSize
		fmt.Fprintf(w, "%s -> %s  %s -> %s  (%.1f%%)\n",
			r.OriginalPath,
			r.CompressedPath,
			humanize.Bytes(uint64(r.OriginalSize)),
			humanize.Bytes(uint64(r.CompressedSize)),
			r.CompressionRatio,
		)
	}

	for _, f := range report.Failures {
		fmt.Fprintf(w, "FAILED %s: %v\n", f.Path, f.Err)
	}

	if len(report.Results) > 0 {
		fmt.Fprintf(w, "\nCompressed %d files: %s -> %s, saved %.1f%%\n",
			len(report.Results),
			humanize.Bytes(uint64(original)),
			humanize.Bytes(uint64(compressed)),
			domain.CompressionRatio(original, compressed),
		)
	}
	if report.Aborted {
		fmt.Fprintln(w, "Batch aborted.")
	}
}
