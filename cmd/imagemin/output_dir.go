package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dunamismax/imagemin/internal/desktop"
	"github.com/spf13/cobra"
)

func newOutputDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "output-dir",
		Short: "Show the output directory preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			fmt.Fprintln(cmd.OutOrStdout(), a.outputDirs.Get(cmd.Context()))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set DIR",
		Short: "Save the output directory preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.outputDirs.Set(cmd.Context(), dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pick",
		Short: "Choose the output directory with a native dialog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			dir, ok, err := desktop.New().SelectDirectory(cmd.Context(), a.outputDirs.Get(cmd.Context()))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Unchanged.")
				return nil
			}
			if err := a.outputDirs.Set(cmd.Context(), dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	})

	return cmd
}
