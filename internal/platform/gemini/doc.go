// Package gemini implements generation.Generator with Google's Gemini API
// through the google.golang.org/genai client. A prompt is built from an
// embedded template, the model is asked for a JSON document, and each
// exercise in the response is validated and emitted in order.
package gemini
