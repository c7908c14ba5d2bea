// Package credential supplies bearer tokens for the hosted agent service.
//
// Two interchangeable strategies exist: the platform's managed identity
// (queried through the instance metadata endpoint) and a static API key.
// Select tries the platform identity first and falls back to the key.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

// staticTokenLifetime is the synthetic expiry attached to API-key tokens.
// Static keys do not expire; the window just prompts callers to re-request
// periodically.
const staticTokenLifetime = time.Hour

// Static returns a token source that presents the API key as the bearer
// token, with an expiry one hour in the future on every call.
func Static(key string) oauth2.TokenSource {
	return staticSource{key: key}
}

type staticSource struct {
	key string
}

func (s staticSource) Token() (*oauth2.Token, error) {
	if s.key == "" {
		return nil, errors.New("credential: empty API key")
	}
	return &oauth2.Token{
		AccessToken: s.key,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(staticTokenLifetime),
	}, nil
}

// Config controls credential selection.
type Config struct {
	// APIKey is the static fallback key. Required when the platform
	// identity is unavailable.
	APIKey string
	// Resource is the audience requested from the platform identity.
	Resource string
	// MetadataEndpoint overrides the platform metadata token endpoint;
	// empty selects the standard endpoint (or IDENTITY_ENDPOINT).
	MetadataEndpoint string
	// ProbeTimeout bounds the startup probe of the platform identity.
	ProbeTimeout time.Duration
}

// Select picks the credential strategy at startup: probe the platform
// identity once, and on any failure fall back to the static API key.
// There is no third fallback; both failing is fatal to the caller.
func Select(ctx context.Context, cfg Config, logger *slog.Logger) (oauth2.TokenSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}

	platform := Platform(PlatformConfig{
		Endpoint: cfg.MetadataEndpoint,
		Resource: cfg.Resource,
		Timeout:  probeTimeout,
	})

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, probeErr := platform.TokenContext(probeCtx)
	if probeErr == nil {
		logger.Info("Using platform managed identity")
		return oauth2.ReuseTokenSource(nil, platform), nil
	}
	logger.Info("Platform identity unavailable, trying API key", "error", probeErr)

	if cfg.APIKey == "" {
		return nil, errors.New("credential: platform identity unavailable and no API key configured")
	}
	if _, err := Static(cfg.APIKey).Token(); err != nil {
		return nil, fmt.Errorf("credential: API key fallback failed: %w", err)
	}
	logger.Info("Using API key credential")
	return Static(cfg.APIKey), nil
}
