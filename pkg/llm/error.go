// Package llm provides the internal representations of chat completion requests
// and responses exchanged with the hosted completion service.
package llm

// ErrorResponse represents an error body from the completion API or from our own API.
type ErrorResponse struct {
	Error string `json:"error"`
}
