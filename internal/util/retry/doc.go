// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable attempts,
// delays and an optional predicate selecting retryable errors. Provider
// adapters use it for throttled AWS calls and for deletes that race against
// dependent resources still being torn down.
package retry
