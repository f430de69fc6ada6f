package ai

import (
	"encoding/json"
	"fmt"
)

// ChatRequest is the request body for an OpenAI-compatible chat completions endpoint
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatMessage represents a chat message in OpenAI format
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatResponse is the subset of the chat completions response the client reads
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Content returns choices[0].message.content, or false when the response has no choices.
func (r *ChatResponse) Content() (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	return r.Choices[0].Message.Content, true
}

// BuildRequestPayload encodes a two-message chat request (system, then user).
// Temperature is always present in the output, including 0.
func BuildRequestPayload(systemPrompt, userMessage, model string, temperature float64, maxTokens int) ([]byte, error) {
	request := ChatRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return payload, nil
}
