package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/constants"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory of the configured store",
		Long: `List a directory of the configured store.

Without a path the store's home directory is listed. A path that is not a
directory falls back to its parent, the way the browser widget does.

Examples:
  pathbrowser ls
  pathbrowser ls /projects/run-42
  pathbrowser --backend s3 ls /`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Browser.StartDirectory = args[0]
			}

			ctx, cancel := context.WithTimeout(GetContext(), constants.StoreOperationTimeout)
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			var surfaced []string
			opts := cfg.Options()
			opts.RefreshTimer = 0
			opts.Logger = GetLogger()
			opts.OnError = func(message string) { surfaced = append(surfaced, message) }

			inst := browser.New(browser.NewRegistry(nil), st, opts)
			defer inst.Destroy()
			if err := inst.Start(ctx); err != nil {
				return err
			}

			printListing(cmd.OutOrStdout(), inst, newListingStyles(!noColor && stdoutIsTerminal()))
			for _, msg := range surfaced {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable styled output")
	return cmd
}
