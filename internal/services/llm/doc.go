// Package llm is a thin chat-completion client used by the script stage.
//
// The client speaks the OpenAI-compatible /chat/completions schema, which
// also covers OpenRouter and most self-hosted gateways. Each call is a single
// attempt: the stage's retry policy decides whether to try again, using the
// error markers from package services (408/425/429/5xx and network failures
// are transient, other 4xx are fatal, a missing API key is a configuration
// error).
//
// Some providers answer with the streaming schema, a legacy "text" field, or
// wrap the whole reply in a Markdown code fence; Complete tolerates the first
// two and StripCodeFence removes the third.
package llm
