// Package stats computes per-user statistics over generation jobs.
//
// Every query reads one snapshot of the owner's jobs and derives its numbers
// from it with pure functions (Summarize, BucketByDay, Recommend), so the
// figures within one response are consistent with each other. Results may be
// cached for a short TTL; readers accept numbers that are "as of roughly now".
package stats
