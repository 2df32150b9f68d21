package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/localfs"
	"github.com/rescale/pathbrowser/internal/progress"
)

// uploadPlan is the set of local roots to upload and their totals.
type uploadPlan struct {
	roots      []browser.NativeEntry
	files      int
	totalBytes int64
}

// planUpload opens every local path and sizes the files below it. Exclude
// patterns are relative to each root.
func planUpload(paths []string, includeHidden bool, exclude []string) (*uploadPlan, error) {
	if err := localfs.ValidatePatterns(exclude); err != nil {
		return nil, err
	}
	plan := &uploadPlan{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}
		filter := localfs.Filter{Base: abs, IncludeHidden: includeHidden, Exclude: exclude}
		entry, err := localfs.Open(abs, filter)
		if err != nil {
			return nil, err
		}
		err = localfs.WalkFiles(abs, localfs.WalkOptions{Filter: filter, SkipHiddenDirs: true}, func(fe localfs.FileEntry) error {
			plan.files++
			plan.totalBytes += fe.Size
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
		plan.roots = append(plan.roots, entry)
	}
	return plan, nil
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var (
		includeHidden bool
		exclude       []string
		simple        bool
	)

	cmd := &cobra.Command{
		Use:   "upload <local-path>... <dest-dir>",
		Short: "Upload local files and directories into the store",
		Long: `Upload local files and directories into a directory of the configured store.

Directories are uploaded recursively, recreating their structure below the
destination, which is created as needed. Roots are uploaded in order; a
failing root is reported and the remaining roots still run.

Examples:
  pathbrowser upload results/ /projects/run-42
  pathbrowser upload --exclude '*.tmp' --exclude '.git/**' src /backup
  pathbrowser upload --simple big.tar /incoming`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, dest := args[:len(args)-1], args[len(args)-1]
			ctx := GetContext()
			log := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(exclude) == 0 {
				exclude = cfg.ExcludePatterns()
			}
			plan, err := planUpload(local, includeHidden || cfg.Store.IncludeHidden, exclude)
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			m := cfg.PathModel()
			dest = m.Normalize(dest)

			var ui progress.UI
			if simple {
				isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
				ui = progress.NewBatchUI(progress.NewCLIProgress(), plan.totalBytes,
					fmt.Sprintf("Uploading %d file(s)", plan.files), os.Stderr, isTerminal)
			} else {
				ui = progress.NewUploadUI(plan.files, m.Display(dest))
			}

			// Route log lines above the bars while they are drawn.
			prev := log.Output()
			log.SetOutput(ui.Writer())
			defer log.SetOutput(prev)

			roots := make([]browser.NativeEntry, len(plan.roots))
			for i, r := range plan.roots {
				roots[i] = progress.Track(r, ui)
			}

			uploader := browser.NewUploader(st, m)
			uploader.Logger = log
			uploader.OnFile = func(it browser.UploadItem, err error) {
				progress.Complete(ui, it.File, err)
			}
			failed := 0
			err = uploader.Process(ctx, roots, dest, func(root string, err error) {
				failed++
				log.Warn().Str("root", root).Err(err).Msg("Upload failed")
			})
			ui.Wait()

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d root(s) to %s, %d failed\n",
				len(roots)-failed, m.Display(dest), failed)
			return err
		},
	}

	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Include hidden files and directories")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "Exclude pattern (doublestar syntax, repeatable; default from config)")
	cmd.Flags().BoolVar(&simple, "simple", false, "Show a single progress bar for the whole batch")
	return cmd
}
