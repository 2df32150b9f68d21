// Package http builds the proxy-aware, retrying HTTP transport used by the
// cloud-backed directory stores.
package http

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"

	"github.com/rescale/pathbrowser/internal/config"
	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/logging"
)

// defaultProxyPort is used when the proxy URL carries no port.
const defaultProxyPort = "8080"

// ConfigureHTTPClient configures an HTTP client with proxy settings.
// logger may be nil.
func ConfigureHTTPClient(cfg config.ProxyConfig, logger *logging.Logger) (*nethttp.Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100, // must be >= MaxIdleConnsPerHost
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
	client := &nethttp.Client{Transport: transport}

	switch strings.ToLower(cfg.Mode) {
	case config.ProxyModeNone, "":
		transport.Proxy = nil

	case config.ProxyModeSystem:
		transport.Proxy = nethttp.ProxyFromEnvironment

	case config.ProxyModeNTLM, config.ProxyModeBasic:
		// Fall back to a direct connection if the URL is missing, so a
		// half-written config still lets the user browse local stores.
		if cfg.URL == "" {
			logger.Warn().Str("mode", cfg.Mode).Msg("Proxy url is missing - falling back to no-proxy mode")
			transport.Proxy = nil
			return client, nil
		}

		proxyURL, err := buildProxyURL(cfg)
		if err != nil {
			return nil, err
		}
		transport.Proxy = proxyFuncWithBypass(proxyURL, cfg.NoProxy, logger)

		if cfg.User != "" && cfg.Password == "" {
			logger.Warn().Str("user", cfg.User).Msg("Proxy user configured but password missing - proxy auth disabled until password is set")
		}

		if strings.ToLower(cfg.Mode) == config.ProxyModeNTLM {
			client.Transport = ntlmssp.Negotiator{RoundTripper: transport}
		}

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.Mode)
	}

	return client, nil
}

// buildProxyURL parses the configured proxy URL, defaulting the scheme and
// port, and embeds credentials only when both user and password are set.
func buildProxyURL(cfg config.ProxyConfig) (*url.URL, error) {
	raw := cfg.URL
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url %q: %w", cfg.URL, err)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q: missing host", cfg.URL)
	}
	if proxyURL.Port() == "" {
		proxyURL.Host = net.JoinHostPort(proxyURL.Hostname(), defaultProxyPort)
	}

	// Empty password in URL can cause auth failures with some proxies
	if cfg.User != "" && cfg.Password != "" {
		proxyURL.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		proxyURL.User = nil
	}
	return proxyURL, nil
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// If noProxy is empty, behaves identically to nethttp.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string, logger *logging.Logger) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			logger.Debug().Str("host", req.URL.Host).Msg("Proxy bypass (direct connection)")
		} else {
			logger.Debug().Str("host", req.URL.Host).Str("proxy", result.Host).Msg("Proxied")
		}
		return result, err
	}
}

// NeedsProxyPassword returns true if the proxy configuration requires a password
// but one has not been provided. Used by CLI to determine if interactive prompt is needed.
func NeedsProxyPassword(cfg config.ProxyConfig) bool {
	mode := strings.ToLower(cfg.Mode)
	if mode != config.ProxyModeBasic && mode != config.ProxyModeNTLM {
		return false
	}
	return cfg.User != "" && cfg.Password == ""
}
