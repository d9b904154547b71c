// Package integrations provides the shared HTTP client used to talk to
// upstream services.
//
// [Client] wraps net/http with default headers, a request timeout, retries
// for transient failures (see [httputil.Retry]), response caching through a
// [cache.Cache], and observability hooks for every round trip. Service
// clients embed it:
//
//	base := integrations.NewClient(c, "github", cache.TTLMetadata, headers)
//	err := base.Cached(ctx, key, refresh, &resp, func() error {
//	    return base.PostJSON(ctx, endpoint, req, &resp)
//	})
//
// Errors carry codes from [scmerrors]: NOT_FOUND for 404, NETWORK_ERROR for
// transport failures and unexpected statuses (5xx are retried), and
// CONTRACT_VIOLATION for bodies that cannot be decoded.
//
// [httputil.Retry]: github.com/matzehuels/scmenrich/pkg/httputil.Retry
// [cache.Cache]: github.com/matzehuels/scmenrich/pkg/cache.Cache
// [scmerrors]: github.com/matzehuels/scmenrich/pkg/errors
package integrations
