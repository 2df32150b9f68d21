package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/pathbrowser/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage browser.conf",
		Long: `Configuration management commands for pathbrowser.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath resolves --config or the default browser.conf location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultBrowserConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for pathbrowser.

Secrets (secret_access_key, account_key, proxy password) are never written
to browser.conf; supply them through the environment or the prompt.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at: %s\n", path)
					fmt.Fprintln(cmd.OutOrStdout(), "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := promptConfig(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.SaveBrowserConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Configuration saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// promptConfig asks for the settings of each backend, starting from the
// defaults. An empty answer keeps the default.
func promptConfig(r *bufio.Reader, w io.Writer) (*config.BrowserConfig, error) {
	cfg := config.NewBrowserConfig()
	ask := func(label string, dst *string) error {
		v, err := promptLine(r, w, label, *dst)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	askBool := func(label string, dst *bool) error {
		def := "n"
		if *dst {
			def = "y"
		}
		v, err := promptLine(r, w, label+" (y/n)", def)
		if err != nil {
			return err
		}
		*dst = strings.HasPrefix(strings.ToLower(v), "y")
		return nil
	}

	fmt.Fprintln(w, "Path Browser Configuration Setup")
	fmt.Fprintln(w, "================================")
	fmt.Fprintln(w)

	sc := &cfg.Store
	if err := ask("Backend (memory, local, s3, azure)", &sc.Backend); err != nil {
		return nil, err
	}
	sc.Backend = strings.ToLower(sc.Backend)

	var err error
	switch sc.Backend {
	case config.BackendLocal:
		if err = ask("Local root", &sc.LocalRoot); err == nil {
			if err = askBool("Show hidden entries", &sc.IncludeHidden); err == nil {
				if err = ask("Exclude patterns (comma-separated)", &sc.Exclude); err == nil {
					err = askBool("Watch for changes", &sc.Watch)
				}
			}
		}
	case config.BackendS3:
		for _, q := range []struct {
			label string
			dst   *string
		}{
			{"Bucket", &sc.Bucket},
			{"Region", &sc.Region},
			{"Prefix", &sc.Prefix},
			{"Endpoint (empty for AWS)", &sc.Endpoint},
			{"Access key ID (empty for the default chain)", &sc.AccessKeyID},
		} {
			if err = ask(q.label, q.dst); err != nil {
				break
			}
		}
	case config.BackendAzure:
		for _, q := range []struct {
			label string
			dst   *string
		}{
			{"Account URL", &sc.AccountURL},
			{"Account name (empty for SAS URLs)", &sc.AccountName},
			{"Container", &sc.Container},
			{"Prefix", &sc.Prefix},
		} {
			if err = ask(q.label, q.dst); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(w)
	b := &cfg.Browser
	if err := ask("Start directory", &b.StartDirectory); err != nil {
		return nil, err
	}
	refresh := strconv.Itoa(b.RefreshTimerMs)
	if err := ask("Refresh timer (ms)", &refresh); err != nil {
		return nil, err
	}
	n, convErr := strconv.Atoi(refresh)
	if convErr != nil {
		return nil, fmt.Errorf("refresh timer must be a number: %w", convErr)
	}
	b.RefreshTimerMs = n

	if sc.Backend == config.BackendS3 || sc.Backend == config.BackendAzure {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Proxy modes: no-proxy, system, basic, ntlm")
		if err := ask("Proxy mode", &cfg.Proxy.Mode); err != nil {
			return nil, err
		}
		if cfg.Proxy.Mode == config.ProxyModeBasic || cfg.Proxy.Mode == config.ProxyModeNTLM {
			if err := ask("Proxy URL", &cfg.Proxy.URL); err != nil {
				return nil, err
			}
			if err := ask("Proxy user", &cfg.Proxy.User); err != nil {
				return nil, err
			}
		}
		if err := ask("No proxy hosts", &cfg.Proxy.NoProxy); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the configuration from browser.conf with the --backend and
--local-root overrides applied. Secrets are reported as set or not set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path, err := configPath()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	}

	return cmd
}

func secretState(v string) string {
	if v == "" {
		return "<not set>"
	}
	return "<set>"
}

func printConfig(w io.Writer, cfg *config.BrowserConfig, path string) {
	b, sc := cfg.Browser, cfg.Store

	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browser Settings:")
	fmt.Fprintf(w, "  Root:              %s\n", b.Root)
	fmt.Fprintf(w, "  Separator:         %s\n", b.Separator)
	fmt.Fprintf(w, "  Name:              %s\n", b.Name)
	fmt.Fprintf(w, "  Labels:            %t\n", b.Labels)
	fmt.Fprintf(w, "  Rename delay:      %dms\n", b.RenameDelayMs)
	fmt.Fprintf(w, "  Double click:      %dms\n", b.DoubleClickDelayMs)
	fmt.Fprintf(w, "  Refresh timer:     %dms\n", b.RefreshTimerMs)
	if b.StartDirectory != "" {
		fmt.Fprintf(w, "  Start directory:   %s\n", b.StartDirectory)
	}
	fmt.Fprintf(w, "  Escape cancels:    %t\n", b.EscapeCancelsRename)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Store Settings:")
	fmt.Fprintf(w, "  Backend:           %s\n", sc.Backend)
	switch sc.Backend {
	case config.BackendLocal:
		fmt.Fprintf(w, "  Local root:        %s\n", sc.LocalRoot)
		fmt.Fprintf(w, "  Include hidden:    %t\n", sc.IncludeHidden)
		if patterns := cfg.ExcludePatterns(); len(patterns) > 0 {
			fmt.Fprintf(w, "  Exclude patterns:  %s\n", strings.Join(patterns, ", "))
		}
		fmt.Fprintf(w, "  Watch:             %t\n", sc.Watch)
	case config.BackendS3:
		fmt.Fprintf(w, "  Bucket:            %s\n", sc.Bucket)
		fmt.Fprintf(w, "  Region:            %s\n", sc.Region)
		fmt.Fprintf(w, "  Prefix:            %s\n", sc.Prefix)
		if sc.Endpoint != "" {
			fmt.Fprintf(w, "  Endpoint:          %s\n", sc.Endpoint)
		}
		fmt.Fprintf(w, "  Access key ID:     %s\n", sc.AccessKeyID)
		fmt.Fprintf(w, "  Secret access key: %s\n", secretState(sc.SecretAccessKey))
	case config.BackendAzure:
		// Only the host of the account URL; the query may carry a SAS token.
		accountURL := sc.AccountURL
		if i := strings.IndexByte(accountURL, '?'); i >= 0 {
			accountURL = accountURL[:i] + "?<sas>"
		}
		fmt.Fprintf(w, "  Account URL:       %s\n", accountURL)
		fmt.Fprintf(w, "  Account name:      %s\n", sc.AccountName)
		fmt.Fprintf(w, "  Account key:       %s\n", secretState(sc.AccountKey))
		fmt.Fprintf(w, "  Container:         %s\n", sc.Container)
		fmt.Fprintf(w, "  Prefix:            %s\n", sc.Prefix)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Proxy Settings:")
	fmt.Fprintf(w, "  Mode:              %s\n", cfg.Proxy.Mode)
	if cfg.Proxy.URL != "" {
		fmt.Fprintf(w, "  URL:               %s\n", cfg.Proxy.URL)
	}
	if cfg.Proxy.User != "" {
		fmt.Fprintf(w, "  User:              %s\n", cfg.Proxy.User)
		fmt.Fprintf(w, "  Password:          %s\n", secretState(cfg.Proxy.Password))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(w, "  (file does not exist - using defaults)")
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			path, err := configPath()
			if err != nil {
				return err
			}
			if cfgFile == "" {
				fmt.Fprintln(w, "Default configuration path:")
			} else {
				fmt.Fprintln(w, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(w, "  %s\n\n", path)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(w, "Status: ✓ File exists")
				fmt.Fprintf(w, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(w, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(w, "Status: File does not exist")
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Create a configuration file with: pathbrowser config init")
			}
			return nil
		},
	}

	return cmd
}
