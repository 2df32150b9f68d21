package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rescale/pathbrowser/internal/config"
	"github.com/rescale/pathbrowser/internal/http"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/store/factory"
)

// loadConfig reads browser.conf and applies the global flag overrides.
func loadConfig() (*config.BrowserConfig, error) {
	cfg, err := config.LoadBrowserConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Store.Backend = strings.ToLower(backend)
	}
	if localRoot != "" {
		cfg.Store.LocalRoot = localRoot
	}
	return cfg, nil
}

// openStore builds the configured store, asking for the proxy password
// first when the proxy needs one and none is configured.
func openStore(ctx context.Context, cfg *config.BrowserConfig) (store.DirectoryStore, error) {
	if cfg.Store.Backend != config.BackendMemory && cfg.Store.Backend != config.BackendLocal &&
		http.NeedsProxyPassword(cfg.Proxy) {
		password, err := promptPassword(fmt.Sprintf("Proxy password for %s", cfg.Proxy.User))
		if err != nil {
			return nil, fmt.Errorf("proxy password required: %w", err)
		}
		cfg.Proxy.Password = password
	}

	st, err := factory.Open(ctx, cfg, GetLogger())
	if err != nil {
		return nil, err
	}
	GetLogger().Debug().Str("backend", cfg.Store.Backend).Msg("Store opened")
	return st, nil
}
