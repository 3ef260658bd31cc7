// Package openai adapts the OpenAI chat-completions API, and any server
// compatible with it, to the provider ports used by generation and frame
// analysis.
//
// Clients are created with SDK retries disabled. Each call performs one HTTP
// request and API failures are returned as *retry.StatusError so the retry
// executor decides what happens next.
package openai
