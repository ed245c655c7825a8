// Package http provides the HTTP client used to talk to the filings portal.
//
// This package handles:
//   - GET requests returning decoded page text (charset aware)
//   - form-encoded POST requests returning the raw body
//   - streamed GET requests for final documents
//   - a global request-rate limiter
//
// Requests are never retried. Non-2xx responses are returned as *StatusError,
// which wraps ErrNotFound, ErrForbidden, ErrUnauthorized or ErrServerError
// where applicable.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Timeout:           60 * time.Second,
//	    RequestsPerSecond: 2,
//	})
//
//	page, err := client.GetText(ctx, listingURL, query)
//	body, err := client.PostForm(ctx, listingURL, form)
//	defer body.Close()
package http
