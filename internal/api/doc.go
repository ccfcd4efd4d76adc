// Package api handles incoming HTTP requests, request validation and
// response formatting. It acts as an adapter between HTTP clients and the
// services in internal/service, translating errors into status codes with
// MapErrorToStatusCode and into client-safe messages with GetSafeErrorMessage.
//
// Every error body has the shape {"detail": "...", "trace_id": "..."}.
package api
