// Package retry wraps fallible operations with bounded retries and
// capped exponential backoff. Every DFlow REST call runs through Do;
// the backoff schedule is shared with nothing and carries no state
// between calls.
package retry
