package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBrowserConfig(t *testing.T) {
	cfg := NewBrowserConfig()

	if cfg.Browser.Root != "/" {
		t.Errorf("Expected Root=/, got %s", cfg.Browser.Root)
	}
	if cfg.Browser.Name != "default" {
		t.Errorf("Expected Name=default, got %s", cfg.Browser.Name)
	}
	if cfg.Browser.RenameDelayMs != 300 {
		t.Errorf("Expected RenameDelayMs=300, got %d", cfg.Browser.RenameDelayMs)
	}
	if cfg.Browser.DoubleClickDelayMs != 2000 {
		t.Errorf("Expected DoubleClickDelayMs=2000, got %d", cfg.Browser.DoubleClickDelayMs)
	}
	if cfg.Browser.RefreshTimerMs != 100 {
		t.Errorf("Expected RefreshTimerMs=100, got %d", cfg.Browser.RefreshTimerMs)
	}
	if cfg.Browser.EscapeCancelsRename {
		t.Error("Expected EscapeCancelsRename=false")
	}
	if cfg.Store.Backend != BackendLocal {
		t.Errorf("Expected Backend=local, got %s", cfg.Store.Backend)
	}
	require.NoError(t, cfg.Validate())
}

func TestBrowserConfigLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "browser.conf")

	cfg := NewBrowserConfig()
	cfg.Browser.Name = "shared"
	cfg.Browser.Labels = false
	cfg.Browser.RenameDelayMs = 250
	cfg.Browser.EscapeCancelsRename = true
	cfg.Store.Backend = BackendS3
	cfg.Store.Bucket = "data"
	cfg.Store.Region = "us-west-2"
	cfg.Store.Prefix = "team/"
	cfg.Store.Endpoint = "http://minio.local:9000"
	cfg.Store.AccessKeyID = "AKIDEXAMPLE"
	cfg.Store.SecretAccessKey = "s3-secret"
	cfg.Store.AccountKey = "azure-key"
	cfg.SetExcludePatterns([]string{"*.tmp", ".git/**"})
	cfg.Proxy.Mode = ProxyModeBasic
	cfg.Proxy.URL = "http://proxy.local:3128"
	cfg.Proxy.User = "alice"
	cfg.Proxy.Password = "secret"

	require.NoError(t, SaveBrowserConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadBrowserConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "shared", loaded.Browser.Name)
	assert.False(t, loaded.Browser.Labels)
	assert.Equal(t, 250, loaded.Browser.RenameDelayMs)
	assert.True(t, loaded.Browser.EscapeCancelsRename)
	assert.Equal(t, BackendS3, loaded.Store.Backend)
	assert.Equal(t, "data", loaded.Store.Bucket)
	assert.Equal(t, "us-west-2", loaded.Store.Region)
	assert.Equal(t, "team/", loaded.Store.Prefix)
	assert.Equal(t, "http://minio.local:9000", loaded.Store.Endpoint)
	assert.Equal(t, "AKIDEXAMPLE", loaded.Store.AccessKeyID)
	assert.Empty(t, loaded.Store.SecretAccessKey)
	assert.Empty(t, loaded.Store.AccountKey)
	assert.Equal(t, []string{"*.tmp", ".git/**"}, loaded.ExcludePatterns())
	assert.Equal(t, ProxyModeBasic, loaded.Proxy.Mode)
	assert.Equal(t, "alice", loaded.Proxy.User)
	assert.Empty(t, loaded.Proxy.Password, "password must not be persisted")
}

func TestLoadBrowserConfigMissingFile(t *testing.T) {
	cfg, err := LoadBrowserConfig(filepath.Join(t.TempDir(), "absent.conf"))
	require.NoError(t, err)
	assert.Equal(t, NewBrowserConfig(), cfg)
}

func TestLoadBrowserConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser.conf")
	content := "[browser]\nname = docs\n\n[store]\nbackend = MEMORY\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadBrowserConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.Browser.Name)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 2000, cfg.Browser.DoubleClickDelayMs)
	assert.Equal(t, ProxyModeNone, cfg.Proxy.Mode)
}

func TestLoadBrowserConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browser.conf")
	require.NoError(t, os.WriteFile(path, []byte("[browser\nname"), 0600))

	_, err := LoadBrowserConfig(path)
	assert.Error(t, err)
}

func TestBrowserConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*BrowserConfig)
		want   error
	}{
		{"defaults", func(*BrowserConfig) {}, nil},
		{"memory backend", func(c *BrowserConfig) { c.Store.Backend = BackendMemory }, nil},
		{"unknown backend", func(c *BrowserConfig) { c.Store.Backend = "ftp" }, ErrUnknownBackend},
		{"s3 without bucket", func(c *BrowserConfig) { c.Store.Backend = BackendS3 }, ErrMissingBucket},
		{"azure without container", func(c *BrowserConfig) {
			c.Store.Backend = BackendAzure
			c.Store.AccountURL = "https://acct.blob.core.windows.net"
		}, ErrMissingContainer},
		{"rename after double click", func(c *BrowserConfig) { c.Browser.RenameDelayMs = 2000 }, ErrInvalidDelays},
		{"negative refresh", func(c *BrowserConfig) { c.Browser.RefreshTimerMs = -1 }, ErrNegativeRefreshTimer},
		{"empty separator", func(c *BrowserConfig) { c.Browser.Separator = "" }, ErrEmptySeparator},
		{"unknown proxy mode", func(c *BrowserConfig) { c.Proxy.Mode = "socks" }, ErrUnknownProxyMode},
		{"ntlm without url", func(c *BrowserConfig) { c.Proxy.Mode = ProxyModeNTLM }, ErrMissingProxyURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewBrowserConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExcludePatternsTrimsBlanks(t *testing.T) {
	cfg := NewBrowserConfig()
	cfg.Store.Exclude = " *.log , ,node_modules/** "
	assert.Equal(t, []string{"*.log", "node_modules/**"}, cfg.ExcludePatterns())

	cfg.Store.Exclude = ""
	assert.Nil(t, cfg.ExcludePatterns())
}

func TestBrowserConfigOptions(t *testing.T) {
	cfg := NewBrowserConfig()
	cfg.Browser.Root = "/data"
	cfg.Browser.Separator = ":"
	cfg.Browser.Name = "remote"
	cfg.Browser.RefreshTimerMs = 0
	cfg.Browser.StartDirectory = "/data:projects"

	opts := cfg.Options()
	assert.Equal(t, "/data", opts.Root)
	assert.Equal(t, ":", opts.Separator)
	assert.Equal(t, "remote", opts.Name)
	assert.True(t, opts.Labels)
	assert.Equal(t, 300*time.Millisecond, opts.RenameDelay)
	assert.Equal(t, 2*time.Second, opts.DoubleClickDelay)
	assert.Equal(t, time.Duration(0), opts.RefreshTimer)
	assert.Equal(t, "/data:projects", opts.StartDirectory)

	m := cfg.PathModel()
	assert.Equal(t, "/data:projects", m.Join("projects"))
}
