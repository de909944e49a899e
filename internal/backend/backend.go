// Package backend bridges the conversation engine to a language-model
// provider. The engine treats every non-success outcome uniformly; the
// only distinguished failure is ErrUnavailable at construction time.
package backend

import (
	"context"
	"errors"

	"parley/internal/memory"
)

// Request is the normalized generation request.
type Request struct {
	// Context is the personalization line merged into the system
	// prompt; empty when the session has no signals yet.
	Context string
	// Guidance is an extra steering instruction appended as a system
	// message; may be empty.
	Guidance string
	// Turns is the recent conversation window, oldest first.
	Turns []memory.Message
	// Diversify asks the provider for a deliberately different answer
	// after a repetitive candidate was rejected.
	Diversify bool
}

// Response is the provider's reply.
type Response struct {
	Text        string
	TotalTokens int
}

// Generator issues a single generation request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// ErrUnavailable means the provider cannot be reached or initialized.
// Surfaced once at startup, never per turn.
var ErrUnavailable = errors.New("backend unavailable")

// diversifyInstruction is appended when regenerating after a rejected
// candidate.
const diversifyInstruction = "The previous response was repetitive. Generate a completely different, creative response. Ask a unique question or make an original comment that hasn't been made before in this conversation."
