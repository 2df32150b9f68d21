// Package config provides configuration management for the path browser.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/pathmodel"
)

// Store backends
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendAzure  = "azure"
)

// Proxy modes
const (
	ProxyModeNone   = "no-proxy"
	ProxyModeSystem = "system"
	ProxyModeBasic  = "basic"
	ProxyModeNTLM   = "ntlm"
)

// BrowserConfig is the on-disk configuration of the path browser CLI.
//
// Config file location:
//   - Windows: %APPDATA%\Rescale\PathBrowser\browser.conf
//   - Unix: ~/.config/pathbrowser/browser.conf
//
// INI format:
//
//	[browser]
//	root = /
//	separator = /
//	name = default
//	labels = true
//	rename_delay_ms = 300
//	dblclick_delay_ms = 2000
//	refresh_timer_ms = 100
//	start_directory =
//	escape_cancels_rename = false
//
//	[store]
//	backend = local
//	local_root = .
//	include_hidden = false
//	exclude = *.tmp,.git/**
//	watch = false
//	bucket =
//	region =
//	prefix =
//	endpoint =
//	access_key_id =
//	secret_access_key =
//	account_url =
//	account_name =
//	account_key =
//	container =
//
//	[proxy]
//	mode = no-proxy
//	url =
//	no_proxy =
//	user =
//	password =
type BrowserConfig struct {
	Browser BrowserSection
	Store   StoreSection
	Proxy   ProxyConfig
}

// BrowserSection holds widget behaviour settings.
type BrowserSection struct {
	Root                string
	Separator           string
	Name                string
	Labels              bool
	RenameDelayMs       int
	DoubleClickDelayMs  int
	RefreshTimerMs      int
	StartDirectory      string
	EscapeCancelsRename bool
}

// StoreSection selects and configures the DirectoryStore backend.
type StoreSection struct {
	Backend string

	// local
	LocalRoot     string
	IncludeHidden bool
	Exclude       string // Comma-separated doublestar patterns
	Watch         bool

	// s3
	Bucket          string
	Region          string
	Prefix          string // Also used as the blob prefix for azure
	Endpoint        string // S3-compatible endpoint, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string // Not persisted

	// azure
	AccountURL  string
	AccountName string
	AccountKey  string // Not persisted
	Container   string
}

// ProxyConfig configures the HTTP transport used by cloud backends.
type ProxyConfig struct {
	Mode     string
	URL      string
	NoProxy  string
	User     string
	Password string
}

// Validation errors
var (
	ErrUnknownBackend       = errors.New("store backend must be one of memory, local, s3, azure")
	ErrMissingBucket        = errors.New("bucket is required for the s3 backend")
	ErrMissingContainer     = errors.New("account_url and container are required for the azure backend")
	ErrInvalidDelays        = errors.New("rename_delay_ms must be below dblclick_delay_ms")
	ErrNegativeRefreshTimer = errors.New("refresh_timer_ms must not be negative")
	ErrUnknownProxyMode     = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyURL      = errors.New("proxy url is required for basic and ntlm modes")
	ErrEmptySeparator       = errors.New("separator must not be empty")
)

// DefaultBrowserConfigPath returns the default path for the browser.conf file.
func DefaultBrowserConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "browser.conf"), nil
}

// NewBrowserConfig creates a new BrowserConfig with default values.
func NewBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Browser: BrowserSection{
			Root:                pathmodel.DefaultRoot,
			Separator:           pathmodel.DefaultSeparator,
			Name:                constants.DefaultName,
			Labels:              true,
			RenameDelayMs:       int(constants.RenameDelay / time.Millisecond),
			DoubleClickDelayMs:  int(constants.DoubleClickDelay / time.Millisecond),
			RefreshTimerMs:      int(constants.RefreshTimer / time.Millisecond),
			StartDirectory:      "",
			EscapeCancelsRename: false,
		},
		Store: StoreSection{
			Backend:   BackendLocal,
			LocalRoot: ".",
		},
		Proxy: ProxyConfig{
			Mode: ProxyModeNone,
		},
	}
}

// LoadBrowserConfig loads configuration from the browser.conf file.
// If path is empty, uses the default path.
// If the file doesn't exist, returns a config with default values and no error.
func LoadBrowserConfig(path string) (*BrowserConfig, error) {
	cfg := NewBrowserConfig()

	if path == "" {
		var err error
		path, err = DefaultBrowserConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load browser.conf: %w", err)
	}

	def := cfg.Browser
	b := iniFile.Section("browser")
	cfg.Browser.Root = b.Key("root").MustString(def.Root)
	cfg.Browser.Separator = b.Key("separator").MustString(def.Separator)
	cfg.Browser.Name = b.Key("name").MustString(def.Name)
	cfg.Browser.Labels = b.Key("labels").MustBool(def.Labels)
	cfg.Browser.RenameDelayMs = b.Key("rename_delay_ms").MustInt(def.RenameDelayMs)
	cfg.Browser.DoubleClickDelayMs = b.Key("dblclick_delay_ms").MustInt(def.DoubleClickDelayMs)
	cfg.Browser.RefreshTimerMs = b.Key("refresh_timer_ms").MustInt(def.RefreshTimerMs)
	cfg.Browser.StartDirectory = b.Key("start_directory").String()
	cfg.Browser.EscapeCancelsRename = b.Key("escape_cancels_rename").MustBool(false)

	s := iniFile.Section("store")
	cfg.Store.Backend = strings.ToLower(s.Key("backend").MustString(BackendLocal))
	cfg.Store.LocalRoot = s.Key("local_root").MustString(".")
	cfg.Store.IncludeHidden = s.Key("include_hidden").MustBool(false)
	cfg.Store.Exclude = s.Key("exclude").String()
	cfg.Store.Watch = s.Key("watch").MustBool(false)
	cfg.Store.Bucket = s.Key("bucket").String()
	cfg.Store.Region = s.Key("region").String()
	cfg.Store.Prefix = s.Key("prefix").String()
	cfg.Store.Endpoint = s.Key("endpoint").String()
	cfg.Store.AccessKeyID = s.Key("access_key_id").String()
	cfg.Store.SecretAccessKey = s.Key("secret_access_key").String()
	cfg.Store.AccountURL = s.Key("account_url").String()
	cfg.Store.AccountName = s.Key("account_name").String()
	cfg.Store.AccountKey = s.Key("account_key").String()
	cfg.Store.Container = s.Key("container").String()

	p := iniFile.Section("proxy")
	cfg.Proxy.Mode = strings.ToLower(p.Key("mode").MustString(ProxyModeNone))
	cfg.Proxy.URL = p.Key("url").String()
	cfg.Proxy.NoProxy = p.Key("no_proxy").String()
	cfg.Proxy.User = p.Key("user").String()
	cfg.Proxy.Password = p.Key("password").String()

	return cfg, nil
}

// SaveBrowserConfig saves configuration to the browser.conf file.
// If path is empty, uses the default path.
func SaveBrowserConfig(cfg *BrowserConfig, path string) error {
	if path == "" {
		var err error
		path, err = DefaultBrowserConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	b, err := iniFile.NewSection("browser")
	if err != nil {
		return fmt.Errorf("failed to create browser section: %w", err)
	}
	b.Key("root").SetValue(cfg.Browser.Root)
	b.Key("separator").SetValue(cfg.Browser.Separator)
	b.Key("name").SetValue(cfg.Browser.Name)
	b.Key("labels").SetValue(fmt.Sprintf("%t", cfg.Browser.Labels))
	b.Key("rename_delay_ms").SetValue(fmt.Sprintf("%d", cfg.Browser.RenameDelayMs))
	b.Key("dblclick_delay_ms").SetValue(fmt.Sprintf("%d", cfg.Browser.DoubleClickDelayMs))
	b.Key("refresh_timer_ms").SetValue(fmt.Sprintf("%d", cfg.Browser.RefreshTimerMs))
	b.Key("start_directory").SetValue(cfg.Browser.StartDirectory)
	b.Key("escape_cancels_rename").SetValue(fmt.Sprintf("%t", cfg.Browser.EscapeCancelsRename))

	s, err := iniFile.NewSection("store")
	if err != nil {
		return fmt.Errorf("failed to create store section: %w", err)
	}
	s.Key("backend").SetValue(cfg.Store.Backend)
	s.Key("local_root").SetValue(cfg.Store.LocalRoot)
	s.Key("include_hidden").SetValue(fmt.Sprintf("%t", cfg.Store.IncludeHidden))
	s.Key("exclude").SetValue(cfg.Store.Exclude)
	s.Key("watch").SetValue(fmt.Sprintf("%t", cfg.Store.Watch))
	s.Key("bucket").SetValue(cfg.Store.Bucket)
	s.Key("region").SetValue(cfg.Store.Region)
	s.Key("prefix").SetValue(cfg.Store.Prefix)
	s.Key("endpoint").SetValue(cfg.Store.Endpoint)
	s.Key("access_key_id").SetValue(cfg.Store.AccessKeyID)
	s.Key("account_url").SetValue(cfg.Store.AccountURL)
	s.Key("account_name").SetValue(cfg.Store.AccountName)
	s.Key("container").SetValue(cfg.Store.Container)
	// Secrets are never persisted. Supply them through the environment
	// or edit the file by hand.

	p, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	p.Key("mode").SetValue(cfg.Proxy.Mode)
	p.Key("url").SetValue(cfg.Proxy.URL)
	p.Key("no_proxy").SetValue(cfg.Proxy.NoProxy)
	p.Key("user").SetValue(cfg.Proxy.User)

	// Use temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the configuration for invalid values.
func (cfg *BrowserConfig) Validate() error {
	if cfg.Browser.Separator == "" {
		return ErrEmptySeparator
	}
	if cfg.Browser.RenameDelayMs >= cfg.Browser.DoubleClickDelayMs {
		return ErrInvalidDelays
	}
	if cfg.Browser.RefreshTimerMs < 0 {
		return ErrNegativeRefreshTimer
	}

	switch cfg.Store.Backend {
	case BackendMemory, BackendLocal:
	case BackendS3:
		if cfg.Store.Bucket == "" {
			return ErrMissingBucket
		}
	case BackendAzure:
		if cfg.Store.AccountURL == "" || cfg.Store.Container == "" {
			return ErrMissingContainer
		}
	default:
		return ErrUnknownBackend
	}

	switch cfg.Proxy.Mode {
	case ProxyModeNone, ProxyModeSystem:
	case ProxyModeBasic, ProxyModeNTLM:
		if cfg.Proxy.URL == "" {
			return ErrMissingProxyURL
		}
	default:
		return ErrUnknownProxyMode
	}
	return nil
}

// ExcludePatterns returns the exclude patterns as a slice.
func (cfg *BrowserConfig) ExcludePatterns() []string {
	if cfg.Store.Exclude == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(cfg.Store.Exclude, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// SetExcludePatterns sets the exclude patterns from a slice.
func (cfg *BrowserConfig) SetExcludePatterns(patterns []string) {
	cfg.Store.Exclude = strings.Join(patterns, ",")
}

// Options converts the [browser] section to widget options. Callbacks,
// layout, bus and logger are left for the host to fill in.
func (cfg *BrowserConfig) Options() browser.Options {
	opts := browser.DefaultOptions()
	opts.Root = cfg.Browser.Root
	opts.Separator = cfg.Browser.Separator
	opts.Name = cfg.Browser.Name
	opts.Labels = cfg.Browser.Labels
	opts.RenameDelay = time.Duration(cfg.Browser.RenameDelayMs) * time.Millisecond
	opts.DoubleClickDelay = time.Duration(cfg.Browser.DoubleClickDelayMs) * time.Millisecond
	opts.RefreshTimer = time.Duration(cfg.Browser.RefreshTimerMs) * time.Millisecond
	opts.StartDirectory = cfg.Browser.StartDirectory
	opts.EscapeCancelsRename = cfg.Browser.EscapeCancelsRename
	return opts
}

// PathModel returns the path model implied by root and separator.
func (cfg *BrowserConfig) PathModel() pathmodel.Model {
	return pathmodel.New(cfg.Browser.Root, cfg.Browser.Separator)
}
