// Package httputil provides retry helpers for registry HTTP clients.
//
// [Retry] re-runs an operation with exponential backoff, but only when the
// returned error was marked transient with [Retryable] (or wrapped in a
// [RetryableError] directly). Everything else, such as a 404 from the
// registry, is returned on the first attempt:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// [RetryWithBackoff] uses 3 attempts starting at a one second delay.
package httputil
