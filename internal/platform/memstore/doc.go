// Package memstore provides in-memory implementations of the store
// interfaces. It backs the "memory" database driver used for local
// development and end-to-end tests, and mirrors the transition rules
// enforced by the postgres package.
package memstore
