// Package retry implements bounded retry with exponential jitter backoff
// for object store calls.
package retry
