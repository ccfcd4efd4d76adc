// Package generation defines the boundary between the job runtime and the
// services that produce exercises. A Generator streams drafts for one
// generation request; the Gemini-backed implementation lives in
// internal/platform/gemini and a deterministic arithmetic generator lives here.
package generation
