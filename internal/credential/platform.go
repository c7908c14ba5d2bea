package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// defaultMetadataEndpoint is the standard instance metadata token endpoint
// available inside platform-managed compute.
const defaultMetadataEndpoint = "http://169.254.169.254/metadata/identity/oauth2/token"

const metadataAPIVersion = "2018-02-01"

// PlatformConfig configures the platform identity source.
type PlatformConfig struct {
	// Endpoint is the metadata token endpoint. Empty selects the
	// IDENTITY_ENDPOINT environment variable, then the standard endpoint.
	Endpoint string
	// Resource is the audience the token is requested for.
	Resource string
	// Timeout bounds each metadata request. The metadata service is
	// link-local, so this stays short.
	Timeout time.Duration
}

// PlatformSource obtains bearer tokens from the host platform's managed
// identity via the instance metadata service. It holds no secret.
type PlatformSource struct {
	endpoint string
	resource string
	httpc    *http.Client
}

// Ensure PlatformSource satisfies the token source contract.
var _ oauth2.TokenSource = (*PlatformSource)(nil)

// Platform returns a token source backed by the platform identity.
func Platform(cfg PlatformConfig) *PlatformSource {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("IDENTITY_ENDPOINT")
	}
	if endpoint == "" {
		endpoint = defaultMetadataEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PlatformSource{
		endpoint: endpoint,
		resource: cfg.Resource,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// Token implements oauth2.TokenSource.
func (s *PlatformSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext fetches a token from the metadata endpoint.
func (s *PlatformSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	q := url.Values{}
	q.Set("api-version", metadataAPIVersion)
	if s.resource != "" {
		q.Set("resource", s.resource)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Metadata", "true")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform identity request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("platform identity returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in,string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode platform identity response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("platform identity returned no token")
	}

	expiry := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}
