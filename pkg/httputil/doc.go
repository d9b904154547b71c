// Package httputil provides retry helpers shared by the HTTP clients.
//
// [Retry] re-runs an operation while it fails with a [RetryableError],
// doubling the delay between attempts. Clients wrap transient failures
// (connection errors, 5xx responses) with [Retryable] and leave everything
// else unwrapped, so API errors and contract violations fail immediately:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
package httputil
