// Package export renders a completed generation into downloadable files.
// Each supported format has a Renderer; a Registry selects one by format.
package export
