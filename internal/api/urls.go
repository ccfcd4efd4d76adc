package api

import (
	"strings"

	"github.com/google/uuid"
)

// URLBuilder produces the links returned to clients. An empty base yields
// relative URLs.
type URLBuilder struct {
	base string
}

// NewURLBuilder creates a URLBuilder rooted at base.
func NewURLBuilder(base string) URLBuilder {
	return URLBuilder{base: strings.TrimRight(base, "/")}
}

// Generation returns the progress URL of a generation job.
func (b URLBuilder) Generation(id uuid.UUID) string {
	return b.base + "/generation/" + id.String()
}

// Download returns the URL serving a download's file.
func (b URLBuilder) Download(id uuid.UUID) string {
	return b.base + "/download/" + id.String()
}
