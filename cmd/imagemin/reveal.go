package main

import (
	"github.com/dunamismax/imagemin/internal/desktop"
	"github.com/spf13/cobra"
)

func newRevealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reveal PATH",
		Short: "Show a file in the platform file manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return desktop.New().ShowInFolder(args[0])
		},
	}
}
