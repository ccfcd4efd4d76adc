// Package domain contains the core business entities of the exercise pipeline:
// generation jobs, the exercises they produce, and downloads that export them.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
