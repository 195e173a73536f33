// Package provider defines the generation collaborator used by the router:
// the message types sent to an LLM and the Provider interface implemented
// by the modules under modules/provider.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live in separate packages (e.g., modules/provider/openaicompat)
// and typically also implement core.Module for lifecycle management.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	// A returned error means no usable text was produced.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
