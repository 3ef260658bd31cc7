// Package provider defines the ports between the generation layer and the
// third-party AI and speech services.
//
// Implementations perform exactly one request per call and never retry;
// retrying is the job of internal/retry. A provider that answers with a
// non-success status returns a *retry.StatusError. A provider that refuses
// the input on content grounds returns an error wrapping
// retry.ErrUnprocessableInput.
package provider

import "context"

// Role is the author of a chat message.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is one chat-completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatCompleter returns the text content of the first choice.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// VisionRequest asks a vision model to describe one image.
type VisionRequest struct {
	ImageURL string
	Prompt   string
}

// VisionAnalyzer returns the model's text answer for an image.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, req VisionRequest) (string, error)
}

// SpeechRequest is one text-to-speech request.
type SpeechRequest struct {
	Text          string
	Voice         string
	AudioEncoding string
	SampleRate    int
}

// SpeechResponse carries base64 encoded audio.
type SpeechResponse struct {
	AudioBase64     string
	DurationSeconds float64
}

// SpeechSynthesizer converts text to audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (SpeechResponse, error)
}
