// Package catalog provides the HTTP layer for the game-catalog API.
//
// # Overview
//
// This package turns a collection's query state into HTTP requests and
// normalizes the responses into page envelopes. It owns no collection state.
// That lives in package paging.
//
// # Architecture
//
//   - query.go: typed query builder (page, limit, expand, filter, search, order)
//   - client.go: GET client with rate limiting, bearer auth and request ids
//   - runner.go: per-(endpoint, page) in-flight registry with cancellation
//   - mutate.go: retrying client for single-record writes
//   - types.go: page envelope and entity records
//
// # Query Encoding
//
//	page=N&limit=M
//	expand[<name>]=*
//	filter[<key>]=<value>            (empty values skipped)
//	order[<key>]=asc|desc
//	search[<key>]=like,*<value>*     (plain scalars)
//	search[<key>]=null               (verbatim)
//	search[<key>]=between,<a>,<b>    (operator prefixes pass through)
//	search[<key>][]=<v>              (one entry per array value)
//
// Query.Validate rejects empty or bracketed keys and unknown directions
// before anything is serialized.
//
// # Cancellation
//
// Runner keeps one cancel function per (endpoint, page). A newer request for
// the same key cancels the older one, and CancelEndpoint cancels every page of
// an endpoint. RunIf adds a guard checked under the same lock before a
// request is registered, so a caller whose query is already outdated never
// aborts the request that replaced it. A canceled request resolves to a placeholder page with
// Canceled set and a nil error. Callers never need a cancellation branch and
// must not commit placeholders. Any other failure is returned wrapped with %w.
//
// # Error Handling
//
//   - HTTP status >= 400: *StatusError, matched by errors.Is(err, ErrStatus)
//   - Transport failures: "execute request: ..."
//   - Malformed bodies: "decode response: ..."
//
// The read path does not retry. Mutator retries connection errors and 5xx
// responses up to a configured bound through go-retryablehttp.
package catalog
