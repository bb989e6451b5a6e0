package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imagemin",
		Short: "Recompress images to WebP, AVIF, JPEG or PNG",
		Long: `imagemin recompresses local images at a chosen quality and lets you
compare the original with the result.

Run "imagemin serve" for the local UI backend, or "imagemin compress" to
process files from the command line.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.imagemin/config.yaml)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newCompressCmd(),
		newOutputDirCmd(),
		newRevealCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
