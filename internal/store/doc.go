// Package store defines the persistence contracts for generation jobs,
// their exercises and downloads. Implementations live under internal/platform
// and must make every status transition atomic with respect to readers.
package store
