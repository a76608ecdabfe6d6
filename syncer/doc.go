// Package syncer reconciles a set of built objects against the remote
// bucket.
//
// For each object it inspects the remote key and decides between create,
// update and skip; identical content is never re-uploaded, so a re-run on
// unchanged inputs performs zero writes. Artifact uploads run in parallel
// and must all succeed before any index page is written; the root index is
// always the final write, so the published index never references an
// object that is not yet present.
//
// Transient store failures are retried a bounded number of times with
// exponential jitter backoff; permanent failures abort the run
// immediately.
package syncer
