// Package gemini implements provider.ChatCompleter on Google's Gemini API.
//
// It is the alternative chat backend, selected with providers.chat.backend.
// System messages become the system instruction and assistant messages are
// sent with the model role. Each call issues one request; API errors come
// back as *retry.StatusError and blocked prompts wrap
// retry.ErrUnprocessableInput.
package gemini
