// Package fetch provides clients for the upstream token security providers.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

// SecurityFetcher is the interface the analysis pipeline depends on.
// A (nil, nil) return means the provider has no data for the token, which
// is a valid outcome distinct from a provider failure.
type SecurityFetcher interface {
	FetchSecurity(ctx context.Context, chain types.SupportedChain, address string) (*model.SecurityReport, error)

	// ServiceName identifies the provider in the per-service rate limiter.
	ServiceName() string
}

// newRetryClient creates a new HTTP client with retry capabilities
func newRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c
}

// StandardClient converts a retryablehttp.Client to a standard http.Client
func StandardClient(retryClient *retryablehttp.Client) *http.Client {
	return retryClient.StandardClient()
}
