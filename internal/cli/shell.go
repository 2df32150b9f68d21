package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/events"
	"github.com/rescale/pathbrowser/internal/localfs"
	"github.com/rescale/pathbrowser/internal/progress"
	"github.com/rescale/pathbrowser/internal/store"
)

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

// Shell hosts several browser panes over one store. All panes share a
// registry, so they share the selection namespace, the clipboard, the
// drag context and the open context menu.
type Shell struct {
	reg    *browser.Registry
	st     store.DirectoryStore
	opts   browser.Options
	filter localfs.Filter
	out    io.Writer
	styles listingStyles

	panes []*browser.Instance
	cur   int

	mu      sync.Mutex
	pending []string
}

// NewShell creates a shell without panes. opts is the template every pane
// is created from; its OnError and OnOpen are replaced.
func NewShell(reg *browser.Registry, st store.DirectoryStore, opts browser.Options, filter localfs.Filter, out io.Writer, styles listingStyles) *Shell {
	return &Shell{reg: reg, st: st, opts: opts, filter: filter, out: out, styles: styles}
}

// AddPane opens a new pane and makes it current. dir empty starts at the
// store's home directory.
func (s *Shell) AddPane(ctx context.Context, dir string) (*browser.Instance, error) {
	opts := s.opts
	n := len(s.panes) + 1
	opts.OnError = func(message string) { s.surface(fmt.Sprintf("[%d] %s", n, message)) }
	opts.OnOpen = func(path string) { s.surface(fmt.Sprintf("[%d] open %s", n, path)) }
	if dir != "" {
		opts.StartDirectory = dir
	}
	inst := browser.New(s.reg, s.st, opts)
	if err := inst.Start(ctx); err != nil {
		inst.Destroy()
		return nil, err
	}
	s.panes = append(s.panes, inst)
	s.cur = len(s.panes) - 1
	return inst, nil
}

// Current returns the active pane.
func (s *Shell) Current() *browser.Instance {
	if len(s.panes) == 0 {
		return nil
	}
	return s.panes[s.cur]
}

// Panes returns the open panes in creation order.
func (s *Shell) Panes() []*browser.Instance { return s.panes }

// Close destroys every pane.
func (s *Shell) Close() {
	for _, p := range s.panes {
		p.Destroy()
	}
	s.panes = nil
}

func (s *Shell) surface(msg string) {
	s.mu.Lock()
	s.pending = append(s.pending, msg)
	s.mu.Unlock()
}

// flush prints surfaced messages and reports whether there were any.
func (s *Shell) flush() bool {
	s.mu.Lock()
	msgs := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, m := range msgs {
		fmt.Fprintln(s.out, s.styles.errText.Render("! "+m))
	}
	return len(msgs) > 0
}

type shellCommand struct {
	usage   string
	help    string
	minArgs int
	maxArgs int // -1 for unbounded
	run     func(s *Shell, ctx context.Context, args []string) error
}

var shellCommands map[string]shellCommand

func init() {
	shellCommands = map[string]shellCommand{
		"help":    {usage: "help", help: "List commands", maxArgs: 0, run: (*Shell).cmdHelp},
		"pane":    {usage: "pane [n|new [dir]]", help: "List panes, switch to pane n or open a new one", maxArgs: 2, run: (*Shell).cmdPane},
		"cd":      {usage: "cd <path>", help: "Navigate the current pane (relative to its directory unless absolute)", minArgs: 1, maxArgs: 1, run: (*Shell).cmdCd},
		"up":      {usage: "up", help: "Go to the parent directory", run: (*Shell).cmdUp},
		"back":    {usage: "back", help: "Go back in history", run: (*Shell).cmdBack},
		"refresh": {usage: "refresh", help: "Reload the current directory", run: (*Shell).cmdRefresh},
		"ls":      {usage: "ls", help: "Print the current pane", run: (*Shell).cmdLs},
		"select":  {usage: "select [name...]", help: "Toggle entries in the shared selection, or clear it", maxArgs: -1, run: (*Shell).cmdSelect},
		"copy":    {usage: "copy", help: "Put the selection on the clipboard", run: (*Shell).cmdCopy},
		"cut":     {usage: "cut", help: "Put the selection on the clipboard for a move", run: (*Shell).cmdCut},
		"paste":   {usage: "paste", help: "Paste the clipboard into the current directory", run: (*Shell).cmdPaste},
		"mkdir":   {usage: "mkdir <name>", help: "Create a directory", minArgs: 1, maxArgs: 1, run: (*Shell).cmdMkdir},
		"touch":   {usage: "touch <name>", help: "Create an empty file", minArgs: 1, maxArgs: 1, run: (*Shell).cmdTouch},
		"rename":  {usage: "rename <old> <new>", help: "Rename an entry of the current directory", minArgs: 2, maxArgs: 2, run: (*Shell).cmdRename},
		"rm":      {usage: "rm [name...]", help: "Delete entries, or the selection when no name is given", maxArgs: -1, run: (*Shell).cmdRm},
		"mv":      {usage: "mv <name> <pane> [dir]", help: "Drag an entry (with the selection it belongs to) onto another pane", minArgs: 2, maxArgs: 3, run: (*Shell).cmdMv},
		"upload":  {usage: "upload <local-path>...", help: "Drop local files and directories onto the current pane", minArgs: 1, maxArgs: -1, run: (*Shell).cmdUpload},
		"open":    {usage: "open <name>", help: "Double click an entry", minArgs: 1, maxArgs: 1, run: (*Shell).cmdOpen},
		"menu":    {usage: "menu <name|.> <label>...", help: "Run a context menu entry on an item, or on the content area with '.'", minArgs: 2, maxArgs: -1, run: (*Shell).cmdMenu},
		"quit":    {usage: "quit", help: "Leave the shell", run: func(*Shell, context.Context, []string) error { return errQuit }},
	}
	shellCommands["exit"] = shellCommands["quit"]
}

// Exec runs one command line. It returns errQuit for quit and exit.
func (s *Shell) Exec(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	name, args := strings.ToLower(args[0]), args[1:]
	c, ok := shellCommands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	if len(args) < c.minArgs || (c.maxArgs >= 0 && len(args) > c.maxArgs) {
		return fmt.Errorf("usage: %s", c.usage)
	}
	if s.Current() == nil && name != "help" && name != "pane" && name != "quit" && name != "exit" {
		return errors.New("no pane open")
	}
	return c.run(s, ctx, args)
}

// Run reads commands from in until EOF or quit. Failures are printed and
// the loop continues.
func (s *Shell) Run(ctx context.Context, in io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprintf(s.out, "[%d] %s> ", s.cur+1, s.Current().Address())
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		err := s.Exec(ctx, scanner.Text())
		surfaced := s.flush()
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil && !surfaced:
			fmt.Fprintln(s.out, s.styles.errText.Render("error: "+err.Error()))
		}
	}
}

func (s *Shell) show() error {
	printListing(s.out, s.Current(), s.styles)
	return nil
}

func (s *Shell) cmdHelp(context.Context, []string) error {
	names := make([]string, 0, len(shellCommands))
	for n := range shellCommands {
		if n != "exit" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		c := shellCommands[n]
		fmt.Fprintf(s.out, "  %-26s %s\n", c.usage, c.help)
	}
	return nil
}

func (s *Shell) paneIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(s.panes) {
		return 0, fmt.Errorf("no pane %q (have %d)", arg, len(s.panes))
	}
	return n - 1, nil
}

func (s *Shell) cmdPane(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for i, p := range s.panes {
			marker := " "
			if i == s.cur {
				marker = "*"
			}
			fmt.Fprintf(s.out, "%s %d %s\n", marker, i+1, p.Address())
		}
		return nil
	}
	if args[0] == "new" {
		dir := ""
		if len(args) == 2 {
			dir = args[1]
		}
		if _, err := s.AddPane(ctx, dir); err != nil {
			return err
		}
		return s.show()
	}
	i, err := s.paneIndex(args[0])
	if err != nil {
		return err
	}
	s.cur = i
	return s.show()
}

// resolve turns a cd argument into a path: absolute when it starts at the
// root, otherwise relative to the current directory.
func (s *Shell) resolve(arg string) string {
	inst := s.Current()
	m := inst.Paths()
	if strings.HasPrefix(arg, m.Root()) {
		return arg
	}
	p := inst.Path()
	for _, seg := range strings.Split(arg, m.Separator()) {
		switch seg {
		case "", ".":
		case "..":
			p = m.Parent(p)
		default:
			p = m.Join(p, seg)
		}
	}
	return p
}

func (s *Shell) cmdCd(ctx context.Context, args []string) error {
	if err := s.Current().Navigate(ctx, s.resolve(args[0])); err != nil {
		return err
	}
	return s.show()
}

func (s *Shell) cmdUp(ctx context.Context, _ []string) error {
	if err := s.Current().Up(ctx); err != nil {
		return err
	}
	return s.show()
}

func (s *Shell) cmdBack(ctx context.Context, _ []string) error {
	if err := s.Current().Back(ctx); err != nil {
		return err
	}
	return s.show()
}

func (s *Shell) cmdRefresh(ctx context.Context, _ []string) error {
	if err := s.Current().Refresh(ctx); err != nil {
		return err
	}
	return s.show()
}

func (s *Shell) cmdLs(context.Context, []string) error { return s.show() }

// requireItem fails unless name is a row of the current pane.
func (s *Shell) requireItem(name string) error {
	for _, it := range s.Current().Items() {
		if it.Key == name {
			return nil
		}
	}
	return fmt.Errorf("no entry %q in %s", name, s.Current().Address())
}

func (s *Shell) cmdSelect(ctx context.Context, args []string) error {
	inst := s.Current()
	if len(args) == 0 {
		inst.ClickWidget(ctx, browser.ZoneContent, false)
		return nil
	}
	for _, name := range args {
		if err := s.requireItem(name); err != nil {
			return err
		}
		inst.ClickItem(ctx, name, browser.Click{Ctrl: true, Zone: browser.ZoneItem})
	}
	fmt.Fprintf(s.out, "selected: %s\n", strings.Join(s.reg.Selected(inst.Name()), ", "))
	return nil
}

func (s *Shell) cmdCopy(context.Context, []string) error {
	s.Current().Copy()
	return nil
}

func (s *Shell) cmdCut(context.Context, []string) error {
	s.Current().Cut()
	return nil
}

func (s *Shell) cmdPaste(ctx context.Context, _ []string) error {
	return s.Current().Paste(ctx)
}

func (s *Shell) cmdMkdir(ctx context.Context, args []string) error {
	inst := s.Current()
	return inst.CreateAt(ctx, store.KindDirectory, inst.Paths().Join(inst.Path(), args[0]))
}

func (s *Shell) cmdTouch(ctx context.Context, args []string) error {
	inst := s.Current()
	return inst.CreateAt(ctx, store.KindFile, inst.Paths().Join(inst.Path(), args[0]))
}

func (s *Shell) cmdRename(ctx context.Context, args []string) error {
	if err := s.requireItem(args[0]); err != nil {
		return err
	}
	return s.Current().Rename(ctx, args[0], args[1])
}

func (s *Shell) cmdRm(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return s.Current().DeleteSelected(ctx)
	}
	for _, name := range args {
		if err := s.requireItem(name); err != nil {
			return err
		}
	}
	return s.Current().Delete(ctx, args...)
}

func (s *Shell) cmdMv(ctx context.Context, args []string) error {
	if err := s.requireItem(args[0]); err != nil {
		return err
	}
	i, err := s.paneIndex(args[1])
	if err != nil {
		return err
	}
	target := s.panes[i]
	drop := browser.Drop{}
	if len(args) == 3 {
		drop.Item = args[2]
	}
	s.Current().DragStart(args[0])
	return target.Drop(ctx, drop)
}

// cmdUpload drops local roots onto the current pane. Byte counts go to the
// event bus as upload progress events when the shell has one.
func (s *Shell) cmdUpload(ctx context.Context, args []string) error {
	plan, err := planUpload(args, s.filter.IncludeHidden, s.filter.Exclude)
	if err != nil {
		return err
	}
	var reporter progress.Reporter = progress.NoOpProgress{}
	if s.opts.Bus != nil {
		reporter = progress.NewEventProgress(s.opts.Bus)
	}
	ui := progress.NewBatchUI(reporter, plan.totalBytes,
		fmt.Sprintf("Uploading %d file(s)", plan.files), s.out, false)

	roots := make([]browser.NativeEntry, len(plan.roots))
	for i, r := range plan.roots {
		roots[i] = progress.Track(r, ui)
	}
	inst := s.Current()
	up := inst.Uploader()
	prev := up.OnFile
	up.OnFile = func(it browser.UploadItem, err error) { progress.Complete(ui, it.File, err) }
	defer func() { up.OnFile = prev }()

	err = inst.Drop(ctx, browser.Drop{Native: roots})
	ui.Wait()
	return err
}

func (s *Shell) cmdOpen(ctx context.Context, args []string) error {
	if err := s.requireItem(args[0]); err != nil {
		return err
	}
	inst := s.Current()
	dir := inst.Path()
	inst.ClickItem(ctx, args[0], browser.Click{Zone: browser.ZoneItem})
	if err := inst.DoubleClickItem(ctx, args[0], browser.Click{}); err != nil {
		return err
	}
	if inst.Path() != dir {
		return s.show()
	}
	return nil
}

func (s *Shell) cmdMenu(ctx context.Context, args []string) error {
	inst := s.Current()
	if args[0] == "." {
		inst.ContextMenu(ctx, browser.TargetContent, "")
	} else {
		if err := s.requireItem(args[0]); err != nil {
			return err
		}
		inst.ContextMenu(ctx, browser.TargetItem, args[0])
	}
	labels := args[1:]
	for n := 1; n <= len(labels); n++ {
		if err := inst.MenuSelect(ctx, labels[:n]...); err != nil {
			s.reg.HideMenus()
			return err
		}
	}
	s.reg.HideMenus()
	return nil
}

// splitArgs splits a command line into words with shell quoting rules.
// Environment variables and backticks are left alone.
func splitArgs(line string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	args, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q: %w", line, err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("unsupported operator in %q", line)
	}
	return args, nil
}

// newShellCmd creates the 'shell' command.
func newShellCmd() *cobra.Command {
	var (
		panes   int
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "shell [dir...]",
		Short: "Interactive multi-pane browser",
		Long: `Interactive browser with several panes over the configured store.

All panes share one selection namespace and clipboard: select entries in
one pane, cut, switch panes and paste. Mutations refresh every pane that
shows an affected directory. With watch = true in browser.conf, changes
made outside the shell refresh the panes too (local backend).

Each argument opens a pane on that directory.

Examples:
  pathbrowser shell
  pathbrowser shell /incoming /archive
  echo "select a.txt; cut" | pathbrowser shell`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			log := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			bus := events.NewEventBus(0)
			defer bus.Close()
			reg := browser.NewRegistry(bus)
			opts := cfg.Options()
			opts.Bus = bus
			opts.Logger = log

			filter := localfs.Filter{IncludeHidden: cfg.Store.IncludeHidden, Exclude: cfg.ExcludePatterns()}
			color := !noColor && stdoutIsTerminal()
			sh := NewShell(reg, st, opts, filter, cmd.OutOrStdout(), newListingStyles(color))
			defer sh.Close()

			dirs := args
			for len(dirs) < panes {
				dirs = append(dirs, "")
			}
			for _, d := range dirs {
				if _, err := sh.AddPane(ctx, d); err != nil {
					return err
				}
			}
			sh.cur = 0

			if w, ok := st.(store.Watcher); ok && cfg.Store.Watch {
				watchCtx, stop := context.WithCancel(ctx)
				defer stop()
				go func() {
					if err := reg.Follow(watchCtx, cfg.Browser.Name, w); err != nil {
						log.Warn().Err(err).Msg("Change watcher stopped")
					}
				}()
			}

			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			if interactive {
				fmt.Fprintln(sh.out, "Type help for commands.")
				_ = sh.show()
			}
			return sh.Run(ctx, os.Stdin, interactive)
		},
	}

	cmd.Flags().IntVarP(&panes, "panes", "p", 2, "Number of panes to open")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable styled output")
	return cmd
}
