// Package factory builds the DirectoryStore selected by a BrowserConfig.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rescale/pathbrowser/internal/config"
	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/http"
	"github.com/rescale/pathbrowser/internal/logging"
	"github.com/rescale/pathbrowser/internal/pathutil"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/store/azurestore"
	"github.com/rescale/pathbrowser/internal/store/localstore"
	"github.com/rescale/pathbrowser/internal/store/memstore"
	"github.com/rescale/pathbrowser/internal/store/s3store"
)

// Open validates cfg and constructs its store. Stores that can report
// changes also implement store.Watcher; callers check with a type assertion.
func Open(ctx context.Context, cfg *config.BrowserConfig, logger *logging.Logger) (store.DirectoryStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	m := cfg.PathModel()
	sc := cfg.Store
	storeLogger := logger.Child(func(c zerolog.Context) zerolog.Context {
		return c.Str("store", sc.Backend)
	})

	switch sc.Backend {
	case config.BackendMemory:
		return memstore.New(m), nil

	case config.BackendLocal:
		root, err := pathutil.Resolve(sc.LocalRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve local root %s: %w", sc.LocalRoot, err)
		}
		s, err := localstore.New(root, m, localstore.Options{
			IncludeHidden: sc.IncludeHidden,
			Exclude:       cfg.ExcludePatterns(),
			Logger:        storeLogger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.BackendS3:
		// The AWS SDK retries on its own; the client only contributes the
		// proxy and connection pool settings.
		client, err := http.CreateOptimizedClient(cfg.Proxy, storeLogger)
		if err != nil {
			return nil, err
		}
		s, err := s3store.New(ctx, s3store.Config{
			Bucket:          sc.Bucket,
			Region:          sc.Region,
			Prefix:          sc.Prefix,
			Endpoint:        sc.Endpoint,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
			HTTPClient:      client,
			Logger:          storeLogger,
		}, m)
		if err != nil {
			return nil, err
		}
		s.SetRetry(layeredRetry(storeLogger))
		return s, nil

	case config.BackendAzure:
		client, err := http.CreateOptimizedClient(cfg.Proxy, storeLogger)
		if err != nil {
			return nil, err
		}
		s, err := azurestore.New(azurestore.Config{
			AccountURL:  sc.AccountURL,
			AccountName: sc.AccountName,
			AccountKey:  sc.AccountKey,
			Container:   sc.Container,
			Prefix:      sc.Prefix,
			HTTPClient:  http.NewRetryingClient(client, storeLogger),
			Logger:      storeLogger,
		}, m)
		if err != nil {
			return nil, err
		}
		s.SetRetry(layeredRetry(storeLogger))
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, sc.Backend)
}

// layeredRetry is the store-level policy used on top of a retrying transport.
func layeredRetry(logger *logging.Logger) http.Config {
	rc := http.DefaultConfig()
	rc.MaxRetries = constants.LayeredStoreRetries
	rc.OnRetry = func(attempt int, err error, errorType http.ErrorType) {
		logger.Debug().Int("attempt", attempt).Str("type", http.ErrorTypeName(errorType)).Err(err).Msg("Retrying store request")
	}
	return rc
}
