// Package fetch is the HTTP transport shared by the release checker, the
// document merger and the Nexus repository.
//
// It wraps go-retryablehttp with a fixed request timeout and an optional
// retry budget, and classifies every non-2xx answer as ErrBadHTTPStatus, with
// 404 additionally matching ErrNotFound.
package fetch
