// Package providers adapts OpenAI-compatible chat-completion backends
// (OpenAI, Azure OpenAI, gateways, local servers) to schema.LLMProvider.
package providers

import "fmt"

// ProviderError is returned when the completion endpoint answers with a
// non-200 status. Body holds a bounded excerpt of the response.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("completion provider returned HTTP %d: %s", e.StatusCode, e.Body)
}
