// Package blob defines the file storage used for rendered exports and
// provides local-disk and in-memory implementations. A Google Cloud Storage
// implementation lives in internal/platform/gcs.
package blob
