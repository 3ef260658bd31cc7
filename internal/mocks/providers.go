package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/reelgen-api/internal/provider"
)

// MockChatCompleter implements provider.ChatCompleter for testing.
type MockChatCompleter struct {
	// CompleteFn allows test cases to mock the Complete behavior
	CompleteFn func(ctx context.Context, req provider.ChatRequest) (string, error)

	// Default response values
	Response string
	Err      error

	mu       sync.Mutex
	requests []provider.ChatRequest
}

// Complete implements provider.ChatCompleter.
func (m *MockChatCompleter) Complete(ctx context.Context, req provider.ChatRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, req)
	}
	return m.Response, m.Err
}

// CallCount returns how many times Complete was called.
func (m *MockChatCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockChatCompleter) Requests() []provider.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.ChatRequest(nil), m.requests...)
}

// MockVisionAnalyzer implements provider.VisionAnalyzer for testing.
type MockVisionAnalyzer struct {
	// AnalyzeFn allows test cases to mock the Analyze behavior
	AnalyzeFn func(ctx context.Context, req provider.VisionRequest) (string, error)

	// Responses maps an image URL to a canned answer
	Responses map[string]string
	Err       error

	mu       sync.Mutex
	requests []provider.VisionRequest
}

// Analyze implements provider.VisionAnalyzer.
func (m *MockVisionAnalyzer) Analyze(ctx context.Context, req provider.VisionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.AnalyzeFn != nil {
		return m.AnalyzeFn(ctx, req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Responses[req.ImageURL], nil
}

// CallCount returns how many times Analyze was called.
func (m *MockVisionAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// MockSpeechSynthesizer implements provider.SpeechSynthesizer for testing.
type MockSpeechSynthesizer struct {
	// SynthesizeFn allows test cases to mock the Synthesize behavior
	SynthesizeFn func(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error)

	Response provider.SpeechResponse
	Err      error

	mu       sync.Mutex
	requests []provider.SpeechRequest
}

// Synthesize implements provider.SpeechSynthesizer.
func (m *MockSpeechSynthesizer) Synthesize(ctx context.Context, req provider.SpeechRequest) (provider.SpeechResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.SynthesizeFn != nil {
		return m.SynthesizeFn(ctx, req)
	}
	return m.Response, m.Err
}

// CallCount returns how many times Synthesize was called.
func (m *MockSpeechSynthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockSpeechSynthesizer) Requests() []provider.SpeechRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.SpeechRequest(nil), m.requests...)
}
